// Package harness replays citation-resolution scenarios.
//
// A scenario is a YAML file listing resolver notifications in the order
// they arrive (marker changes, removals, document settles, bibliography
// parses) followed by assertions on the final state and on what was pushed
// along the way. Scenarios exist to pin down arrival-order behavior: the
// same document and bibliography delivered in different orders must end in
// the same state.
//
// Each run uses a fresh Resolver with a deterministic clock and a fixed
// context ID, so the recorded trace is byte-identical across runs and can
// be compared against a golden file (testdata/golden/<name>.golden).
//
// Example:
//
//	name: deferred_marker
//	description: A marker waits for both the order and the bibliography.
//	bibliographies:
//	  main: "@misc{x, title = {X}}"
//	steps:
//	  - marker: {id: m1, keys: "x"}
//	  - settle: true
//	  - bibtex: main
//	assertions:
//	  - type: marker
//	    marker: m1
//	    numbers: [0]
package harness
