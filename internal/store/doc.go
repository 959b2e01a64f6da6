// Package store provides SQLite-backed storage for parsed bibliographies
// and resolution snapshots.
//
// Two tables:
//   - bibliographies: normalized entries keyed by the hash of the raw
//     source text, so an unchanged .bib file is parsed once
//   - resolutions: an append-only log of resolver snapshots, keyed by
//     (context_id, seq)
//
// # Critical Patterns
//
// Logical Time:
//   - Ordering uses the resolver's seq, NEVER timestamps
//   - Queries order by seq ASC, id ASC COLLATE BINARY
//
// Canonical Encoding:
//   - Entries, orders and markers are stored as canonical JSON
//     (ir.MarshalCanonical), so equal content is byte-equal on disk
//
// Idempotent Writes:
//   - Every insert uses ON CONFLICT DO NOTHING; writing the same
//     bibliography or snapshot twice is a no-op
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
