package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/bibcite/internal/bibliography"
	"github.com/roach88/bibcite/internal/ir"
)

// BibliographyInfo describes one cached bibliography without its entries.
type BibliographyInfo struct {
	Hash        string `json:"hash"`
	EntriesHash string `json:"entries_hash"`
	Source      string `json:"source"`
	EntryCount  int    `json:"entry_count"`
	Seq         int64  `json:"seq"`
}

// SaveBibliography caches bib under sourceHash (ir.SourceHash of the raw
// text it was built from). Saving the same hash twice keeps the first row.
func (s *Store) SaveBibliography(ctx context.Context, sourceHash, source string, bib *bibliography.Store, seq int64) error {
	entriesJSON, err := marshalEntries(bib.Entries())
	if err != nil {
		return fmt.Errorf("save bibliography: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bibliographies (hash, entries_hash, source, entries, entry_count, seq)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, sourceHash, bib.Hash(), source, entriesJSON, bib.Len(), seq)
	if err != nil {
		return fmt.Errorf("save bibliography: %w", err)
	}
	return nil
}

// LoadBibliography returns the cached bibliography for sourceHash.
// Returns (nil, false, nil) on a cache miss.
func (s *Store) LoadBibliography(ctx context.Context, sourceHash string) (*bibliography.Store, bool, error) {
	var entriesJSON, entriesHash string
	err := s.db.QueryRowContext(ctx, `
		SELECT entries, entries_hash FROM bibliographies WHERE hash = ?
	`, sourceHash).Scan(&entriesJSON, &entriesHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load bibliography %s: %w", sourceHash, err)
	}

	entries, err := unmarshalEntries(entriesJSON)
	if err != nil {
		return nil, false, fmt.Errorf("load bibliography %s: %w", sourceHash, err)
	}
	bib := bibliography.New(entries)
	if bib.Hash() != entriesHash {
		return nil, false, fmt.Errorf("load bibliography %s: entries hash mismatch (stored %s, computed %s)",
			sourceHash, entriesHash, bib.Hash())
	}
	return bib, true, nil
}

// ListBibliographies returns every cached bibliography, oldest first.
func (s *Store) ListBibliographies(ctx context.Context) ([]BibliographyInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, entries_hash, source, entry_count, seq
		FROM bibliographies
		ORDER BY seq ASC, hash COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query bibliographies: %w", err)
	}
	defer rows.Close()

	infos := []BibliographyInfo{}
	for rows.Next() {
		var info BibliographyInfo
		if err := rows.Scan(&info.Hash, &info.EntriesHash, &info.Source, &info.EntryCount, &info.Seq); err != nil {
			return nil, fmt.Errorf("scan bibliography: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bibliographies: %w", err)
	}
	return infos, nil
}

func marshalEntries(entries []ir.Entry) (string, error) {
	list := make([]any, len(entries))
	for i, e := range entries {
		list[i] = e.CanonicalValue()
	}
	data, err := ir.MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("marshal entries: %w", err)
	}
	return string(data), nil
}

func unmarshalEntries(data string) ([]ir.Entry, error) {
	var entries []ir.Entry
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return nil, fmt.Errorf("unmarshal entries: %w", err)
	}
	return entries, nil
}
