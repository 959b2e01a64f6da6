package bibliography

import (
	"fmt"
	"slices"

	"github.com/roach88/bibcite/internal/bibtex"
	"github.com/roach88/bibcite/internal/ir"
)

// Store is an immutable index of normalized entries by citation key.
//
// A Store is never mutated after construction; a new bibliography means a
// new Store. Iteration helpers return keys in sorted order for diagnostics.
// Presentation order comes from the citation order, never from here.
type Store struct {
	entries map[string]*ir.Entry
	hash    string
}

// New normalizes raw entries and indexes them by key.
//
// Field names are lower-cased, every value goes through Normalize, and the
// entry type is copied into the "type" field. If a key repeats, the first
// entry wins.
func New(entries []ir.Entry) *Store {
	s := &Store{entries: make(map[string]*ir.Entry, len(entries))}
	for _, raw := range entries {
		if _, dup := s.entries[raw.Key]; dup {
			continue
		}
		s.entries[raw.Key] = normalizeEntry(raw)
	}
	s.hash = ir.MustEntriesHash(s.Entries())
	return s
}

// Empty returns a store with no entries.
func Empty() *Store {
	return New(nil)
}

// FromBibtex parses BibTeX text and builds a Store from it.
// Parse errors are returned unchanged; no partial store is built.
func FromBibtex(src string) (*Store, error) {
	entries, err := bibtex.ParseEntries(src)
	if err != nil {
		return nil, fmt.Errorf("parse bibliography: %w", err)
	}
	return New(entries), nil
}

func normalizeEntry(raw ir.Entry) *ir.Entry {
	e := &ir.Entry{Key: raw.Key, Type: raw.Type}
	raw.Fields.Each(func(name, value string) {
		e.Fields.Set(name, Normalize(value))
	})
	e.Fields.SetField(ir.FieldType, raw.Type)
	return e
}

// Lookup returns the entry for key. The returned entry must not be modified.
func (s *Store) Lookup(key string) (*ir.Entry, bool) {
	e, ok := s.entries[key]
	return e, ok
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Keys returns all citation keys, sorted.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Entries returns all entries in sorted key order.
// Field maps are shared with the store and must not be modified.
func (s *Store) Entries() []ir.Entry {
	keys := s.Keys()
	out := make([]ir.Entry, len(keys))
	for i, k := range keys {
		out[i] = *s.entries[k]
	}
	return out
}

// Hash identifies the store's normalized content.
// Two stores with the same entries hash identically regardless of load path.
func (s *Store) Hash() string {
	return s.hash
}
