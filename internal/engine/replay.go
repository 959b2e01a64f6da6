package engine

// # Replay and Idempotency
//
// Idempotency is STRUCTURAL, not a special replay mode. The same code path
// handles the first delivery of an event and any repeat.
//
// Three mechanisms make repeats harmless:
//
// 1. Full Rescan
//
// The citation order is recomputed from every live marker on each settle,
// never patched incrementally. Settling twice yields the same order.
//
// 2. Change Detection
//
// A marker is pushed only when its numbers or entries differ from the last
// resolution, compared by content (ir.EntriesEqual). The reference list
// likewise. Re-delivering a bibliography with identical content pushes
// nothing.
//
// 3. Queue Deduplication
//
// A marker waits in a queue at most once per generation, so redundant
// change notifications before a dependency is known do not multiply work.
//
// As a consequence any event log can be applied to a fresh Resolver to
// reproduce a Snapshot, and applying the tail of a log twice leaves the
// snapshot hash unchanged.

// Apply runs events in order through Recompute, stopping at the first
// malformed event. Returns the index of the failing event with its error,
// or -1 and nil.
func (r *Resolver) Apply(events ...Event) (int, error) {
	for i, ev := range events {
		if err := r.Recompute(ev); err != nil {
			return i, err
		}
	}
	return -1, nil
}
