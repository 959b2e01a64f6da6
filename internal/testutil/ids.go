package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator returns the same ID every time.
//
// Scenario runs pin the resolution context ID with it so golden traces are
// byte-identical across runs. An empty id becomes "test-context".
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator that always returns id.
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-context"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed ID. Implements engine.IDGenerator.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}

// SequentialIDGenerator returns prefix-1, prefix-2, ...
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDGenerator creates a generator numbering from 1.
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
