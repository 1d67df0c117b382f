package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Snapshot holds the pre-mutation state of one product, captured
// before the first write of a run touches it.
type Snapshot struct {
	RunID     string
	ProductID int64
	Token     string
	Fields    map[string]any
	CreatedAt time.Time
}

// SaveSnapshot stores the fields a mutation is about to overwrite and
// returns the winning token. Snapshots are insert-only: the first
// write for a product in a run wins, and later calls get the existing
// token back with saved=false. Overwriting would capture
// already-mutated state and make rollback restore the wrong values.
func (db *DB) SaveSnapshot(runID string, productID int64, token string, fields map[string]any) (string, bool, error) {
	var existing string
	err := db.QueryRow("SELECT token FROM rollback_snapshots WHERE run_id = ? AND product_id = ?", runID, productID).Scan(&existing)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("failed to check existing snapshot: %w", err)
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return "", false, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = db.Exec(`
		INSERT INTO rollback_snapshots (run_id, product_id, token, fields_json)
		VALUES (?, ?, ?, ?)
	`, runID, productID, token, string(data))
	if err != nil {
		return "", false, fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return token, true, nil
}

// GetSnapshot loads one snapshot by its rollback token.
func (db *DB) GetSnapshot(token string) (*Snapshot, error) {
	row := db.QueryRow(`
		SELECT run_id, product_id, token, fields_json, created_at
		FROM rollback_snapshots WHERE token = ?
	`, token)
	s, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no snapshot for token %s", token)
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return s, nil
}

// SnapshotsForRun loads every snapshot a run captured, oldest first.
func (db *DB) SnapshotsForRun(runID string) ([]Snapshot, error) {
	rows, err := db.Query(`
		SELECT run_id, product_id, token, fields_json, created_at
		FROM rollback_snapshots WHERE run_id = ? ORDER BY snapshot_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, *s)
	}
	return snaps, rows.Err()
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var s Snapshot
	var fieldsJSON string
	if err := row.Scan(&s.RunID, &s.ProductID, &s.Token, &fieldsJSON, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &s.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot fields: %w", err)
	}
	return &s, nil
}
