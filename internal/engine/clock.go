package engine

import "sync/atomic"

// Sequencer hands out strictly increasing pass numbers.
// Implemented by Clock and testutil.DeterministicClock.
type Sequencer interface {
	Next() int64
	Current() int64
}

// Clock is a monotonic logical clock for stamping resolution passes.
//
// Every Recompute pass takes the next seq. Replaying the same events on a
// fresh clock produces the same seqs.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// though a Resolver only calls it from one goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used to continue numbering after snapshots already recorded in a store.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
