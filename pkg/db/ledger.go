package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/oilslick/catops/pkg/costs"
)

// SaveLedger persists the per-backend spend of a run. Called at every
// checkpoint, so existing rows are updated in place with the latest
// running totals.
func (db *DB) SaveLedger(runID string, breakdown map[string]costs.BackendTotals) error {
	for backend, t := range breakdown {
		var entryID int64
		err := db.QueryRow("SELECT entry_id FROM ledger_entries WHERE run_id = ? AND backend = ?", runID, backend).Scan(&entryID)
		if err == nil {
			_, err = db.Exec(`
				UPDATE ledger_entries
				SET calls = ?, input_units = ?, output_units = ?, cost = ?, updated_at = CURRENT_TIMESTAMP
				WHERE entry_id = ?
			`, t.Calls, t.InputUnits, t.OutputUnits, t.Cost, entryID)
			if err != nil {
				return fmt.Errorf("failed to update ledger entry: %w", err)
			}
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check ledger entry: %w", err)
		}

		_, err = db.Exec(`
			INSERT INTO ledger_entries (run_id, backend, calls, input_units, output_units, cost)
			VALUES (?, ?, ?, ?, ?, ?)
		`, runID, backend, t.Calls, t.InputUnits, t.OutputUnits, t.Cost)
		if err != nil {
			return fmt.Errorf("failed to insert ledger entry: %w", err)
		}
	}
	return nil
}

// LedgerForRun loads the per-backend spend recorded for a run.
func (db *DB) LedgerForRun(runID string) (map[string]costs.BackendTotals, error) {
	rows, err := db.Query(`
		SELECT backend, calls, input_units, output_units, cost
		FROM ledger_entries WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	defer rows.Close()

	breakdown := make(map[string]costs.BackendTotals)
	for rows.Next() {
		var backend string
		var t costs.BackendTotals
		if err := rows.Scan(&backend, &t.Calls, &t.InputUnits, &t.OutputUnits, &t.Cost); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		breakdown[backend] = t
	}
	return breakdown, rows.Err()
}
