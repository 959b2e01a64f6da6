package engine

import (
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces resolution context IDs.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 context IDs.
//
// Snapshots of successive resolutions of the same document sort by
// creation time when keyed by these IDs.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails.
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined IDs in order.
//
//	gen := NewFixedGenerator("ctx-1", "ctx-2")
//	gen.Generate() // "ctx-1"
//	gen.Generate() // "ctx-2"
//	gen.Generate() // panic: all IDs exhausted
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined ID.
// Panics when exhausted, so a test creating more contexts than it
// planned for fails loudly.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all IDs exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
