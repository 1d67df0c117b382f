// Package checkpoint persists run progress as a JSON report file. The
// same file serves three readers: batch checkpoints during a run,
// --resume skipping on restart, and apply-from-report replay.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oilslick/catops/models"
	"github.com/oilslick/catops/pkg/costs"
)

// Report is the on-disk checkpoint. Costs carries the per-backend
// breakdown; TotalCost duplicates the sum so spend is readable without
// walking the map.
type Report struct {
	Timestamp time.Time                      `json:"timestamp"`
	Summary   models.RunSummary              `json:"summary"`
	Items     []models.ItemResult            `json:"items"`
	Costs     map[string]costs.BackendTotals `json:"costs"`
	TotalCost float64                        `json:"totalCost"`
}

// Write saves the report, creating parent directories as needed. Each
// batch overwrites the previous checkpoint; the file always holds the
// full run so far, not a delta. The write goes to a temp file first and
// renames into place, so an interrupted run leaves the previous
// checkpoint intact instead of a truncated one.
func Write(path string, r *Report) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace report: %w", err)
	}
	return nil
}

// Load reads a report back.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", path, err)
	}
	return &r, nil
}

// ProcessedIDs returns every product id the report has settled,
// errored items included. Resume skips them all; rerunning without
// --resume is how errored items get retried.
func (r *Report) ProcessedIDs() map[int64]bool {
	ids := make(map[int64]bool, len(r.Items))
	for i := range r.Items {
		ids[r.Items[i].ProductID] = true
	}
	return ids
}
