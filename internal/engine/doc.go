// Package engine implements the citation dependency resolver.
//
// A Resolver is the explicit resolution context for one document. It
// coordinates three facts that arrive in any order:
//
//   - the citation order is known (the document has settled),
//   - the bibliography is known (a parse succeeded),
//   - a marker's keys changed.
//
// Every marker eventually gets correct numbers and entries, without any
// assumption about which fact becomes true first.
//
// ARCHITECTURE:
//
// Explicit entry points:
// The resolver performs no observation. An external notifier calls
// Recompute with an Event (or one of the typed helpers). Each call runs
// synchronously to completion.
//
// Waiting queues:
// Work that cannot run yet is recorded as a PendingWork value naming the
// marker, in one of two FIFO queues (WaitingOnOrder, WaitingOnBibliography).
// When a dependency becomes satisfied its queue is drained: snapshotted,
// cleared, then each item runs once in order. Items re-enqueued during a
// drain land in the next generation.
//
// Wholesale replacement:
// The bibliography store is immutable. A re-parse swaps the pointer; readers
// never see a partial store.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Every Recompute pass is stamped with the next seq from the Clock.
// Snapshots carry the seq, never a wall-clock time.
//
// Deterministic Output:
// Markers resolve in document order, queues drain in FIFO order, and no
// maps are iterated when producing output.
//
// Concurrency:
// A Resolver is single-threaded and not safe for concurrent use. Callers
// that receive notifications on several goroutines must serialize them.
package engine
