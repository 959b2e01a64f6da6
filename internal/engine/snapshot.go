package engine

import (
	"github.com/roach88/bibcite/internal/citation"
	"github.com/roach88/bibcite/internal/ir"
)

// Snapshot is a point-in-time copy of a resolution context.
type Snapshot struct {
	ContextID         string            `json:"context_id"`
	Seq               int64             `json:"seq"`
	OrderKnown        bool              `json:"order_known"`
	BibliographyKnown bool              `json:"bibliography_known"`
	BibliographyHash  string            `json:"bibliography_hash,omitempty"`
	Order             []string          `json:"order"`
	Markers           []citation.Marker `json:"markers"`
	References        []Reference       `json:"references"`
	Pending           []PendingWork     `json:"pending"`
}

// Snapshot copies the resolver's current state. Pending lists the order
// queue before the bibliography queue, each in FIFO order.
func (r *Resolver) Snapshot() Snapshot {
	s := Snapshot{
		ContextID:         r.id,
		Seq:               r.seq,
		OrderKnown:        r.orderKnown,
		BibliographyKnown: r.bib != nil,
		Order:             r.order.Keys(),
		Markers:           r.registry.Markers(),
		References:        r.References(),
		Pending:           append(r.waitingOnOrder.Items(), r.waitingOnBib.Items()...),
	}
	if r.bib != nil {
		s.BibliographyHash = r.bib.Hash()
	}
	if s.Order == nil {
		s.Order = []string{}
	}
	if s.References == nil {
		s.References = []Reference{}
	}
	return s
}

// CanonicalValue returns the resolution content for hashing.
// ContextID and Seq are excluded: two contexts that resolved the same
// document against the same bibliography hash identically.
func (s Snapshot) CanonicalValue() any {
	markers := make([]any, len(s.Markers))
	for i, m := range s.Markers {
		markers[i] = markerValue(m)
	}
	refs := make([]any, len(s.References))
	for i, ref := range s.References {
		refs[i] = map[string]any{
			"number": ref.Number,
			"key":    ref.Key,
			"entry":  ref.Entry,
		}
	}
	pending := make([]any, len(s.Pending))
	for i, w := range s.Pending {
		pending[i] = map[string]any{
			"kind":   w.Kind.String(),
			"marker": string(w.Marker),
		}
	}
	return map[string]any{
		"order_known":        s.OrderKnown,
		"bibliography_known": s.BibliographyKnown,
		"bibliography_hash":  s.BibliographyHash,
		"order":              s.Order,
		"markers":            markers,
		"references":         refs,
		"pending":            pending,
	}
}

func markerValue(m citation.Marker) map[string]any {
	entries := make([]any, len(m.Entries))
	for i, e := range m.Entries {
		entries[i] = e
	}
	return map[string]any{
		"id":       string(m.ID),
		"keys":     m.Keys,
		"numbers":  m.Numbers,
		"entries":  entries,
		"resolved": m.Resolved(),
	}
}

// Hash returns the content hash of the snapshot.
func (s Snapshot) Hash() (string, error) {
	return ir.SnapshotHash(s)
}
