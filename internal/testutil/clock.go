// Package testutil provides deterministic stand-ins for tests and the
// scenario harness.
package testutil

import "sync"

// DeterministicClock is a resettable logical clock.
//
// It satisfies engine.Sequencer, so a scenario can be replayed on the same
// clock after Reset and produce the same seqs.
//
// Thread-safety: safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a clock whose first Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// NewDeterministicClockAt creates a clock whose first Next returns start+1.
func NewDeterministicClockAt(start int64) *DeterministicClock {
	return &DeterministicClock{seq: start}
}

// Next increments and returns the next sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock to 0.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
