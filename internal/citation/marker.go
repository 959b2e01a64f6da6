package citation

import (
	"slices"

	"github.com/roach88/bibcite/internal/ir"
)

// Unresolved is the Numbers sentinel for a key whose position is not known.
const Unresolved = -1

// MarkerID identifies a marker within one document.
type MarkerID string

// Marker is one citation usage.
//
// Numbers and Entries always have the same length as Keys. Until a marker
// is resolved every number is Unresolved and every entry is nil. After
// resolution a nil entry means the key is not in the bibliography.
type Marker struct {
	ID      MarkerID    `json:"id"`
	Keys    []string    `json:"keys"`
	Numbers []int       `json:"numbers"`
	Entries []*ir.Entry `json:"entries"`

	resolved bool
}

// Lookup finds bibliography entries by key.
// *bibliography.Store satisfies it.
type Lookup interface {
	Lookup(key string) (*ir.Entry, bool)
}

func newMarker(id MarkerID, keys []string) *Marker {
	m := &Marker{ID: id}
	m.reset(keys)
	return m
}

func (m *Marker) reset(keys []string) {
	m.Keys = slices.Clone(keys)
	m.Numbers = make([]int, len(keys))
	for i := range m.Numbers {
		m.Numbers[i] = Unresolved
	}
	m.Entries = make([]*ir.Entry, len(keys))
	m.resolved = false
}

// Resolved reports whether the marker has been resolved since its keys
// last changed.
func (m Marker) Resolved() bool {
	return m.resolved
}

// Missing returns the keys resolved to the not-found sentinel.
// Empty until the marker is resolved.
func (m Marker) Missing() []string {
	if !m.resolved {
		return nil
	}
	var missing []string
	for i, e := range m.Entries {
		if e == nil {
			missing = append(missing, m.Keys[i])
		}
	}
	return missing
}

// Clone returns a copy whose slices are not shared with m.
// Entries themselves are immutable and stay shared.
func (m Marker) Clone() Marker {
	return Marker{
		ID:       m.ID,
		Keys:     slices.Clone(m.Keys),
		Numbers:  slices.Clone(m.Numbers),
		Entries:  slices.Clone(m.Entries),
		resolved: m.resolved,
	}
}

// resolve recomputes numbers and entries. Returns true if anything changed.
func (m *Marker) resolve(order Order, lookup Lookup) bool {
	changed := !m.resolved
	for i, k := range m.Keys {
		n := order.Index(k)
		e, ok := lookup.Lookup(k)
		if !ok {
			e = nil
		}
		if m.Numbers[i] != n || !ir.EntriesEqual(m.Entries[i], e) {
			changed = true
		}
		m.Numbers[i] = n
		m.Entries[i] = e
	}
	m.resolved = true
	return changed
}
