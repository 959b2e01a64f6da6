// Package ir provides the shared bibliography types for bibcite.
//
// This package contains type definitions and canonical serialization only.
// All other internal packages import ir; ir imports nothing internal. This
// keeps ir the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Entries are immutable once built; copy before mutating Fields
//   - Field names are always lower-case
//   - All JSON tags use snake_case
//   - Content hashes use canonical JSON with domain separation
package ir
