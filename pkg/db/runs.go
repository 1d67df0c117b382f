package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oilslick/catops/models"
)

// CreateRun records a new run before any batch work starts.
func (db *DB) CreateRun(s *models.RunSummary) error {
	_, err := db.Exec(`
		INSERT INTO runs (run_id, verb, policy, started_at)
		VALUES (?, ?, ?, ?)
	`, s.RunID, s.Verb, s.Policy, s.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun writes the final counts and timestamps for a run.
func (db *DB) FinishRun(s *models.RunSummary) error {
	_, err := db.Exec(`
		UPDATE runs
		SET finished_at = ?, processed = ?, applied = ?, flagged = ?,
		    skipped = ?, errored = ?, total_cost = ?, report_path = ?
		WHERE run_id = ?
	`, s.FinishedAt, s.Processed, s.Applied, s.Flagged, s.Skipped, s.Errored, s.TotalCost, s.ReportPath, s.RunID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// GetRun loads one run by id.
func (db *DB) GetRun(runID string) (*models.RunSummary, error) {
	row := db.QueryRow(`
		SELECT run_id, verb, policy, started_at, finished_at,
		       processed, applied, flagged, skipped, errored, total_cost, report_path
		FROM runs WHERE run_id = ?
	`, runID)
	s, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	return s, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]models.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT run_id, verb, policy, started_at, finished_at,
		       processed, applied, flagged, skipped, errored, total_cost, report_path
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.RunSummary
	for rows.Next() {
		s, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *s)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.RunSummary, error) {
	var s models.RunSummary
	var policy, reportPath sql.NullString
	var finished sql.NullTime
	err := row.Scan(&s.RunID, &s.Verb, &policy, &s.StartedAt, &finished,
		&s.Processed, &s.Applied, &s.Flagged, &s.Skipped, &s.Errored, &s.TotalCost, &reportPath)
	if err != nil {
		return nil, err
	}
	s.Policy = policy.String
	s.ReportPath = reportPath.String
	if finished.Valid {
		s.FinishedAt = finished.Time
	}
	return &s, nil
}

// UpsertItem records one item outcome, replacing any earlier row for
// the same product in the same run.
func (db *DB) UpsertItem(runID string, item *models.ItemResult) error {
	actionID, err := db.actionTypeID(itemAction(item))
	if err != nil {
		return err
	}

	var planJSON sql.NullString
	if item.Plan != nil {
		data, err := json.Marshal(item.Plan)
		if err != nil {
			return fmt.Errorf("failed to encode plan: %w", err)
		}
		planJSON = sql.NullString{String: string(data), Valid: true}
	}

	// Check if the item already exists for this run
	var existingID int64
	err = db.QueryRow("SELECT item_id FROM run_items WHERE run_id = ? AND product_id = ?", runID, item.ProductID).Scan(&existingID)
	if err == nil {
		_, err = db.Exec(`
			UPDATE run_items
			SET product_title = ?, outcome = ?, method = ?, score = ?, confidence = ?,
			    reason = ?, action_id = ?, plan_json = ?, applied = ?, rollback_token = ?,
			    cost = ?, error_type = ?, error_message = ?
			WHERE item_id = ?
		`, item.ProductTitle, string(item.Outcome), string(item.Method), item.Score, item.Confidence,
			item.Reason, actionID, planJSON, item.Applied, item.RollbackToken,
			item.Cost, item.ErrorType, item.ErrorMessage, existingID)
		if err != nil {
			return fmt.Errorf("failed to update run item: %w", err)
		}
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check existing run item: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO run_items (run_id, product_id, product_title, outcome, method, score,
		                       confidence, reason, action_id, plan_json, applied,
		                       rollback_token, cost, error_type, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, item.ProductID, item.ProductTitle, string(item.Outcome), string(item.Method), item.Score,
		item.Confidence, item.Reason, actionID, planJSON, item.Applied,
		item.RollbackToken, item.Cost, item.ErrorType, item.ErrorMessage)
	if err != nil {
		return fmt.Errorf("failed to insert run item: %w", err)
	}
	return nil
}

func itemAction(item *models.ItemResult) string {
	if item.Plan == nil {
		return string(models.ActionNone)
	}
	return string(item.Plan.Action)
}

// ItemsForRun loads all item outcomes of a run in insertion order.
func (db *DB) ItemsForRun(runID string) ([]models.ItemResult, error) {
	rows, err := db.Query(`
		SELECT product_id, product_title, outcome, method, score, confidence,
		       reason, plan_json, applied, rollback_token, cost, error_type, error_message
		FROM run_items WHERE run_id = ? ORDER BY item_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run items: %w", err)
	}
	defer rows.Close()

	var items []models.ItemResult
	for rows.Next() {
		var item models.ItemResult
		var method, reason, token, errType, errMsg, planJSON sql.NullString
		err := rows.Scan(&item.ProductID, &item.ProductTitle, &item.Outcome, &method,
			&item.Score, &item.Confidence, &reason, &planJSON, &item.Applied,
			&token, &item.Cost, &errType, &errMsg)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run item: %w", err)
		}
		item.Method = models.Method(method.String)
		item.Reason = reason.String
		item.RollbackToken = token.String
		item.ErrorType = errType.String
		item.ErrorMessage = errMsg.String
		if planJSON.Valid && planJSON.String != "" {
			var p models.Plan
			if err := json.Unmarshal([]byte(planJSON.String), &p); err != nil {
				return nil, fmt.Errorf("failed to decode plan for product %d: %w", item.ProductID, err)
			}
			item.Plan = &p
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ProcessedIDs returns the product ids a run has already recorded,
// for resume-mode skipping.
func (db *DB) ProcessedIDs(runID string) (map[int64]bool, error) {
	rows, err := db.Query("SELECT product_id FROM run_items WHERE run_id = ?", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load processed ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan product id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// actionTypeID resolves an action name to its lookup id, creating the
// row when a new action name appears.
func (db *DB) actionTypeID(name string) (int64, error) {
	var id int64
	err := db.QueryRow("SELECT type_id FROM action_types WHERE type_name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to check action type: %w", err)
	}

	result, err := db.Exec("INSERT INTO action_types (type_name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("failed to insert action type: %w", err)
	}
	id, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get action type id: %w", err)
	}
	return id, nil
}
