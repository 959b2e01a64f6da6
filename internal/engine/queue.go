package engine

import (
	"github.com/roach88/bibcite/internal/citation"
)

// PendingKind names the dependency a piece of work waits on.
type PendingKind int

const (
	// WaitingOnOrder work runs once the citation order is known.
	WaitingOnOrder PendingKind = iota + 1
	// WaitingOnBibliography work runs once a bibliography has been parsed.
	WaitingOnBibliography
)

// String returns the kind's snake_case name.
func (k PendingKind) String() string {
	switch k {
	case WaitingOnOrder:
		return "waiting_on_order"
	case WaitingOnBibliography:
		return "waiting_on_bibliography"
	default:
		return "unknown"
	}
}

// PendingWork is deferred per-marker handling. Running it re-invokes the
// marker handling for Marker, which may defer again on the next dependency.
type PendingWork struct {
	Kind   PendingKind       `json:"kind"`
	Marker citation.MarkerID `json:"marker"`
}

// pendingQueue is a FIFO of deferred work for one dependency.
//
// Each marker is queued at most once per generation: re-deferring a marker
// that is already waiting is a no-op. Removed markers stay queued and are
// skipped when drained.
//
// Not thread-safe. The Resolver is single-threaded.
type pendingQueue struct {
	kind   PendingKind
	items  []PendingWork
	queued map[citation.MarkerID]bool
}

func newPendingQueue(kind PendingKind) *pendingQueue {
	return &pendingQueue{
		kind:   kind,
		items:  make([]PendingWork, 0, 16),
		queued: make(map[citation.MarkerID]bool),
	}
}

// Enqueue adds work for id to the back of the queue.
// Returns false if id is already waiting.
func (q *pendingQueue) Enqueue(id citation.MarkerID) bool {
	if q.queued[id] {
		return false
	}
	q.queued[id] = true
	q.items = append(q.items, PendingWork{Kind: q.kind, Marker: id})
	return true
}

// Drain snapshots the queue and clears it. Work enqueued while the caller
// runs the snapshot lands in the next generation.
func (q *pendingQueue) Drain() []PendingWork {
	snapshot := q.items
	q.items = make([]PendingWork, 0, cap(snapshot))
	clear(q.queued)
	return snapshot
}

// Items returns a copy of the queued work in FIFO order.
func (q *pendingQueue) Items() []PendingWork {
	out := make([]PendingWork, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the current queue length.
func (q *pendingQueue) Len() int {
	return len(q.items)
}
