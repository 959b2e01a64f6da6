package engine

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/bibcite/internal/bibliography"
	"github.com/roach88/bibcite/internal/bibtex"
	"github.com/roach88/bibcite/internal/citation"
	"github.com/roach88/bibcite/internal/ir"
)

// Reference is one row of the reference list: a cited key, its position
// in the citation order, and its entry (nil if not in the bibliography).
type Reference struct {
	Number int       `json:"number"`
	Key    string    `json:"key"`
	Entry  *ir.Entry `json:"entry"`
}

// MarkerSink receives a marker whenever its resolution changes.
type MarkerSink interface {
	PushMarker(seq int64, m citation.Marker)
}

// MarkerSinkFunc adapts a function to MarkerSink.
type MarkerSinkFunc func(seq int64, m citation.Marker)

// PushMarker calls f.
func (f MarkerSinkFunc) PushMarker(seq int64, m citation.Marker) { f(seq, m) }

// ReferenceSink receives the reference list whenever it changes.
type ReferenceSink interface {
	PushReferences(seq int64, refs []Reference)
}

// ReferenceSinkFunc adapts a function to ReferenceSink.
type ReferenceSinkFunc func(seq int64, refs []Reference)

// PushReferences calls f.
func (f ReferenceSinkFunc) PushReferences(seq int64, refs []Reference) { f(seq, refs) }

type discardSink struct{}

func (discardSink) PushMarker(int64, citation.Marker)  {}
func (discardSink) PushReferences(int64, []Reference) {}

// Resolver is the resolution context for one document.
//
// INVARIANTS:
//   - order has each key at most once, in first-appearance order
//   - a live marker is in at most one waiting queue at a time
//   - bib is only ever replaced, never mutated
//   - resolved markers satisfy Numbers[i] == order.Index(Keys[i]) as of the
//     pass that last resolved them
type Resolver struct {
	id     string
	clock  Sequencer
	logger *slog.Logger
	seq    int64

	registry   *citation.Registry
	order      citation.Order
	orderKnown bool
	bib        *bibliography.Store

	references []Reference
	refsPushed bool

	waitingOnOrder *pendingQueue
	waitingOnBib   *pendingQueue

	markerSink    MarkerSink
	referenceSink ReferenceSink
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithMarkerSink sets where changed markers are pushed.
func WithMarkerSink(s MarkerSink) ResolverOption {
	return func(r *Resolver) {
		r.markerSink = s
	}
}

// WithReferenceSink sets where the rebuilt reference list is pushed.
func WithReferenceSink(s ReferenceSink) ResolverOption {
	return func(r *Resolver) {
		r.referenceSink = s
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithClock sets the pass clock. Default: a new Clock starting at 0.
func WithClock(c Sequencer) ResolverOption {
	return func(r *Resolver) {
		r.clock = c
	}
}

// WithContextID fixes the context ID instead of generating a UUIDv7.
func WithContextID(id string) ResolverOption {
	return func(r *Resolver) {
		r.id = id
	}
}

// WithIDGenerator sets the generator used when no context ID is fixed.
func WithIDGenerator(g IDGenerator) ResolverOption {
	return func(r *Resolver) {
		if r.id == "" {
			r.id = g.Generate()
		}
	}
}

// New creates a Resolver for one document. Neither the citation order nor
// the bibliography is known yet.
func New(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		clock:          NewClock(),
		logger:         slog.Default(),
		registry:       citation.NewRegistry(),
		waitingOnOrder: newPendingQueue(WaitingOnOrder),
		waitingOnBib:   newPendingQueue(WaitingOnBibliography),
		markerSink:     discardSink{},
		referenceSink:  discardSink{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.id == "" {
		r.id = UUIDv7Generator{}.Generate()
	}
	r.logger = r.logger.With("context", r.id)
	return r
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Recompute applies one event and runs every piece of work it unblocks.
//
// Returns a RuntimeError only for malformed events; the resolver state is
// unchanged in that case.
func (r *Resolver) Recompute(ev Event) error {
	if err := ev.validate(); err != nil {
		return err
	}
	r.seq = r.clock.Next()
	r.logger.Debug("recompute", "event", ev.Type.String(), "seq", r.seq, "marker", ev.Marker)

	switch ev.Type {
	case EventMarkerChanged:
		r.markerChanged(ev.Marker, ev.Keys, ev.Before)
	case EventMarkerRemoved:
		r.markerRemoved(ev.Marker)
	case EventDocumentSettled:
		r.documentSettled()
	case EventBibliographyParsed:
		r.bibliographyParsed(ev.Bibliography)
	}
	return nil
}

// UpsertMarker reports a marker created or changed.
func (r *Resolver) UpsertMarker(id citation.MarkerID, keys []string, before citation.MarkerID) error {
	return r.Recompute(MarkerChanged(id, keys, before))
}

// RemoveMarker reports a marker removed from the document.
func (r *Resolver) RemoveMarker(id citation.MarkerID) error {
	return r.Recompute(MarkerRemoved(id))
}

// SettleDocument reports that the document's markers are stable.
func (r *Resolver) SettleDocument() error {
	return r.Recompute(DocumentSettled())
}

// LoadBibliography installs store as the bibliography.
func (r *Resolver) LoadBibliography(store *bibliography.Store) error {
	return r.Recompute(BibliographyParsed(store))
}

// LoadBibtex parses text and installs the result.
//
// On a parse error nothing is installed and no event fires: markers that
// wait on the bibliography keep waiting. The error is returned wrapped.
func (r *Resolver) LoadBibtex(text string) error {
	res, err := bibtex.Parse(text)
	if err != nil {
		r.logger.Warn("bibliography parse failed, citations stay deferred", "error", err)
		return fmt.Errorf("load bibliography: %w", err)
	}
	for _, key := range res.Duplicates {
		r.logger.Warn("duplicate citation key ignored", "key", key)
	}
	return r.LoadBibliography(bibliography.New(res.Entries))
}

// LoadEntries installs pre-structured entries, bypassing the parser.
func (r *Resolver) LoadEntries(entries []ir.Entry) error {
	return r.LoadBibliography(bibliography.New(entries))
}

func (r *Resolver) markerChanged(id citation.MarkerID, keys []string, before citation.MarkerID) {
	if !r.registry.Upsert(id, keys, before) {
		r.logger.Debug("marker unchanged", "marker", id)
		return
	}
	r.handleMarker(id)
}

func (r *Resolver) markerRemoved(id citation.MarkerID) {
	if !r.registry.Remove(id) {
		r.logger.Debug("remove of unknown marker ignored", "marker", id)
	}
}

func (r *Resolver) documentSettled() {
	r.order = r.registry.Order()
	r.orderKnown = true
	r.logger.Info("citation order computed", "keys", r.order.Len(), "markers", r.registry.Len())

	r.drain(r.waitingOnOrder)

	// Numbers shift when the order changes; already resolved markers are
	// not in any queue.
	if r.bib != nil {
		r.handleAll()
		r.rebuildReferences()
	}
}

func (r *Resolver) bibliographyParsed(store *bibliography.Store) {
	r.bib = store
	r.logger.Info("bibliography installed", "entries", store.Len(), "hash", store.Hash())

	r.drain(r.waitingOnBib)
	r.rebuildReferences()
	r.handleAll()
}

// handleMarker is the per-marker handling: defer on the first missing
// dependency, otherwise resolve and push if anything changed.
func (r *Resolver) handleMarker(id citation.MarkerID) {
	switch {
	case !r.orderKnown:
		if r.waitingOnOrder.Enqueue(id) {
			r.logger.Debug("marker deferred", "marker", id, "kind", WaitingOnOrder.String())
		}
	case r.bib == nil:
		if r.waitingOnBib.Enqueue(id) {
			r.logger.Debug("marker deferred", "marker", id, "kind", WaitingOnBibliography.String())
		}
	default:
		changed, ok := r.registry.Resolve(id, r.order, r.bib)
		if !ok || !changed {
			return
		}
		m, _ := r.registry.Get(id)
		r.logger.Debug("marker resolved", "marker", id, "numbers", m.Numbers, "missing", m.Missing())
		r.markerSink.PushMarker(r.seq, m)
	}
}

// handleAll re-runs marker handling for every live marker in document order.
func (r *Resolver) handleAll() {
	for _, id := range r.registry.IDs() {
		r.handleMarker(id)
	}
}

// drain runs one generation of q. Removed markers are skipped.
func (r *Resolver) drain(q *pendingQueue) {
	work := q.Drain()
	if len(work) == 0 {
		return
	}
	ran := 0
	for _, w := range work {
		if !r.registry.Has(w.Marker) {
			continue
		}
		r.handleMarker(w.Marker)
		ran++
	}
	r.logger.Info("drained pending work", "kind", q.kind.String(), "queued", len(work), "ran", ran)
}

func (r *Resolver) rebuildReferences() {
	keys := r.order.Keys()
	refs := make([]Reference, len(keys))
	for i, k := range keys {
		e, _ := r.bib.Lookup(k)
		refs[i] = Reference{Number: i, Key: k, Entry: e}
	}

	if r.refsPushed && referencesEqual(r.references, refs) {
		return
	}
	r.references = refs
	r.refsPushed = true
	r.referenceSink.PushReferences(r.seq, slices.Clone(refs))
}

func referencesEqual(a, b []Reference) bool {
	return slices.EqualFunc(a, b, func(x, y Reference) bool {
		return x.Number == y.Number && x.Key == y.Key && ir.EntriesEqual(x.Entry, y.Entry)
	})
}

// ContextID returns the resolution context's ID.
func (r *Resolver) ContextID() string {
	return r.id
}

// Seq returns the seq of the last Recompute pass (0 before the first).
func (r *Resolver) Seq() int64 {
	return r.seq
}

// Marker returns a copy of the live marker id.
func (r *Resolver) Marker(id citation.MarkerID) (citation.Marker, bool) {
	return r.registry.Get(id)
}

// Markers returns copies of every live marker in document order.
func (r *Resolver) Markers() []citation.Marker {
	return r.registry.Markers()
}

// Order returns the citation order as of the last settle.
func (r *Resolver) Order() []string {
	return r.order.Keys()
}

// References returns the current reference list.
func (r *Resolver) References() []Reference {
	return slices.Clone(r.references)
}

// Pending returns the queued work of one kind in FIFO order.
func (r *Resolver) Pending(kind PendingKind) []PendingWork {
	switch kind {
	case WaitingOnOrder:
		return r.waitingOnOrder.Items()
	case WaitingOnBibliography:
		return r.waitingOnBib.Items()
	default:
		return nil
	}
}

// OrderKnown reports whether the document has settled at least once.
func (r *Resolver) OrderKnown() bool {
	return r.orderKnown
}

// BibliographyKnown reports whether a bibliography has been installed.
func (r *Resolver) BibliographyKnown() bool {
	return r.bib != nil
}

// Bibliography returns the installed store, or nil.
func (r *Resolver) Bibliography() *bibliography.Store {
	return r.bib
}
