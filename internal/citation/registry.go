package citation

import (
	"slices"
)

// Registry holds the live markers of one document in document order.
// It is not safe for concurrent use.
type Registry struct {
	markers []*Marker
	byID    map[MarkerID]*Marker
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[MarkerID]*Marker)}
}

// Upsert creates or updates the marker id with keys.
//
// A new marker is inserted immediately before the marker named by before,
// or appended when before is empty or unknown. An existing marker keeps
// its position unless before names another live marker, in which case it
// moves there. If the keys change, the marker's resolution is reset.
//
// Returns true if the marker was created or its keys or position changed.
func (r *Registry) Upsert(id MarkerID, keys []string, before MarkerID) bool {
	m, exists := r.byID[id]
	if !exists {
		m = newMarker(id, keys)
		r.byID[id] = m
		r.insert(m, before)
		return true
	}

	changed := false
	if !slices.Equal(m.Keys, keys) {
		m.reset(keys)
		changed = true
	}
	if before != "" && before != id {
		if _, ok := r.byID[before]; ok && r.next(id) != before {
			r.markers = slices.DeleteFunc(r.markers, func(x *Marker) bool { return x == m })
			r.insert(m, before)
			changed = true
		}
	}
	return changed
}

func (r *Registry) insert(m *Marker, before MarkerID) {
	if before != "" {
		if i := r.position(before); i >= 0 {
			r.markers = slices.Insert(r.markers, i, m)
			return
		}
	}
	r.markers = append(r.markers, m)
}

func (r *Registry) position(id MarkerID) int {
	return slices.IndexFunc(r.markers, func(m *Marker) bool { return m.ID == id })
}

// next returns the ID of the marker after id, or "".
func (r *Registry) next(id MarkerID) MarkerID {
	i := r.position(id)
	if i < 0 || i+1 >= len(r.markers) {
		return ""
	}
	return r.markers[i+1].ID
}

// Remove drops the marker. Returns false if it was not live.
func (r *Registry) Remove(id MarkerID) bool {
	m, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)
	r.markers = slices.DeleteFunc(r.markers, func(x *Marker) bool { return x == m })
	return true
}

// Has reports whether id is live.
func (r *Registry) Has(id MarkerID) bool {
	_, ok := r.byID[id]
	return ok
}

// Get returns a copy of the marker.
func (r *Registry) Get(id MarkerID) (Marker, bool) {
	m, ok := r.byID[id]
	if !ok {
		return Marker{}, false
	}
	return m.Clone(), true
}

// Len returns the number of live markers.
func (r *Registry) Len() int {
	return len(r.markers)
}

// IDs returns live marker IDs in document order.
func (r *Registry) IDs() []MarkerID {
	ids := make([]MarkerID, len(r.markers))
	for i, m := range r.markers {
		ids[i] = m.ID
	}
	return ids
}

// Markers returns copies of the live markers in document order.
func (r *Registry) Markers() []Marker {
	out := make([]Marker, len(r.markers))
	for i, m := range r.markers {
		out[i] = m.Clone()
	}
	return out
}

// Order rescans every marker in document order.
func (r *Registry) Order() Order {
	lists := make([][]string, len(r.markers))
	for i, m := range r.markers {
		lists[i] = m.Keys
	}
	return NewOrder(lists...)
}

// Resolve recomputes the marker's numbers and entries against order and
// lookup. It reports whether the marker is live and whether its resolution
// changed.
func (r *Registry) Resolve(id MarkerID, order Order, lookup Lookup) (changed, ok bool) {
	m, ok := r.byID[id]
	if !ok {
		return false, false
	}
	return m.resolve(order, lookup), true
}
