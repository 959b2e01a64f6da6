package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/bibcite/internal/engine"
	"github.com/roach88/bibcite/internal/ir"
)

// MarkerRecord is the stored form of one marker: its keys, numbers, and
// the keys that resolved to no entry. Entries themselves live in the
// bibliographies table.
type MarkerRecord struct {
	ID       string   `json:"id"`
	Keys     []string `json:"keys"`
	Numbers  []int    `json:"numbers"`
	Missing  []string `json:"missing"`
	Resolved bool     `json:"resolved"`
}

// CanonicalValue returns the record for MarshalCanonical.
func (m MarkerRecord) CanonicalValue() any {
	missing := m.Missing
	if missing == nil {
		missing = []string{}
	}
	return map[string]any{
		"id":       m.ID,
		"keys":     m.Keys,
		"numbers":  m.Numbers,
		"missing":  missing,
		"resolved": m.Resolved,
	}
}

// Resolution is one row of the resolution log.
type Resolution struct {
	ID               string         `json:"id"`
	ContextID        string         `json:"context_id"`
	Seq              int64          `json:"seq"`
	BibliographyHash string         `json:"bibliography_hash"`
	Order            []string       `json:"order"`
	Markers          []MarkerRecord `json:"markers"`
	Pending          int            `json:"pending"`
	SnapshotHash     string         `json:"snapshot_hash"`
}

// ResolutionID is the row ID for a context at seq.
func ResolutionID(contextID string, seq int64) string {
	return fmt.Sprintf("%s/%d", contextID, seq)
}

// WriteResolution appends a snapshot to the log.
// Writing the same (context, seq) twice is a no-op.
func (s *Store) WriteResolution(ctx context.Context, snap engine.Snapshot) error {
	hash, err := snap.Hash()
	if err != nil {
		return fmt.Errorf("write resolution: %w", err)
	}

	orderJSON, err := ir.MarshalCanonical(snap.Order)
	if err != nil {
		return fmt.Errorf("write resolution: marshal order: %w", err)
	}

	records := make([]any, len(snap.Markers))
	for i, m := range snap.Markers {
		records[i] = MarkerRecord{
			ID:       string(m.ID),
			Keys:     m.Keys,
			Numbers:  m.Numbers,
			Missing:  m.Missing(),
			Resolved: m.Resolved(),
		}
	}
	markersJSON, err := ir.MarshalCanonical(records)
	if err != nil {
		return fmt.Errorf("write resolution: marshal markers: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO resolutions
		(id, context_id, seq, bib_hash, order_json, markers_json, pending, snapshot_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		ResolutionID(snap.ContextID, snap.Seq),
		snap.ContextID,
		snap.Seq,
		snap.BibliographyHash,
		string(orderJSON),
		string(markersJSON),
		len(snap.Pending),
		hash,
	)
	if err != nil {
		return fmt.Errorf("write resolution: %w", err)
	}
	return nil
}

// ReadResolutions returns the log for contextID ordered by seq, or the
// whole log when contextID is empty. Returns an empty slice, not nil,
// when nothing matches.
func (s *Store) ReadResolutions(ctx context.Context, contextID string) ([]Resolution, error) {
	query := `
		SELECT id, context_id, seq, bib_hash, order_json, markers_json, pending, snapshot_hash
		FROM resolutions
	`
	var args []any
	if contextID != "" {
		query += ` WHERE context_id = ?`
		args = append(args, contextID)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query resolutions: %w", err)
	}
	defer rows.Close()

	out := []Resolution{}
	for rows.Next() {
		r, err := scanResolution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolutions: %w", err)
	}
	return out, nil
}

// LatestResolution returns the highest-seq row for contextID.
func (s *Store) LatestResolution(ctx context.Context, contextID string) (Resolution, bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, context_id, seq, bib_hash, order_json, markers_json, pending, snapshot_hash
		FROM resolutions
		WHERE context_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, contextID)
	if err != nil {
		return Resolution{}, false, fmt.Errorf("query latest resolution: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Resolution{}, false, fmt.Errorf("query latest resolution: %w", err)
		}
		return Resolution{}, false, nil
	}
	r, err := scanResolution(rows)
	if err != nil {
		return Resolution{}, false, err
	}
	return r, true, nil
}

func scanResolution(rows *sql.Rows) (Resolution, error) {
	var (
		r                     Resolution
		orderJSON, markerJSON string
	)
	if err := rows.Scan(&r.ID, &r.ContextID, &r.Seq, &r.BibliographyHash,
		&orderJSON, &markerJSON, &r.Pending, &r.SnapshotHash); err != nil {
		return Resolution{}, fmt.Errorf("scan resolution: %w", err)
	}
	if err := json.Unmarshal([]byte(orderJSON), &r.Order); err != nil {
		return Resolution{}, fmt.Errorf("unmarshal order of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(markerJSON), &r.Markers); err != nil {
		return Resolution{}, fmt.Errorf("unmarshal markers of %s: %w", r.ID, err)
	}
	return r, nil
}
