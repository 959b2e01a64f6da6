// Package citation tracks the citation markers of one document and derives
// the citation order from them.
//
// A marker is one in-document usage citing one or more bibliography keys.
// The Registry keeps live markers in document order; Order rescans them in
// full on every call, appending each key on first appearance. There is no
// incremental maintenance: the rescan is O(total key occurrences), which is
// bounded by document size.
//
// Resolution state (numbers and entries) lives on the marker but is only
// written through Registry.Resolve, called by the resolver.
package citation
