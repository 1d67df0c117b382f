package models

import "time"

// Error classes recorded on failed items. Transient errors were
// retried before landing here; permanent errors describe bad input or
// rejected mutations; policy errors never occur (a policy violation is
// an Action none plan, not an error); config errors abort at startup
// and never reach an item.
const (
	ErrTransient = "transient"
	ErrPermanent = "permanent"
)

// ItemResult is the per-product outcome of a batch run. One is produced
// for every input item whether it succeeded, was skipped, or errored.
type ItemResult struct {
	ProductID     int64   `json:"product_id"`
	ProductTitle  string  `json:"product_title"`
	Outcome       Outcome `json:"outcome"`
	Method        Method  `json:"method,omitempty"`
	Score         float64 `json:"score"`
	Confidence    float64 `json:"confidence,omitempty"`
	Reason        string  `json:"reason,omitempty"`
	Plan          *Plan   `json:"plan,omitempty"` // carried so a saved report can be replayed
	Applied       bool    `json:"applied,omitempty"`
	RollbackToken string  `json:"rollback_token,omitempty"`
	Cost          float64 `json:"cost"`
	ErrorType     string  `json:"error_type,omitempty"`
	ErrorMessage  string  `json:"error_message,omitempty"`
}

// Errored reports whether the item failed rather than being decided.
func (r *ItemResult) Errored() bool {
	return r.ErrorType != ""
}

// RunSummary aggregates one batch run. Counts always add up to
// Processed; a run that hits errors still finishes and reports them.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Verb       string    `json:"verb"`
	Policy     string    `json:"policy"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Processed  int       `json:"processed"`
	Applied    int       `json:"applied"`
	Flagged    int       `json:"flagged"`
	Skipped    int       `json:"skipped"`
	Errored    int       `json:"errored"`
	TotalCost  float64   `json:"total_cost"`
	ReportPath string    `json:"report_path,omitempty"`
}

// Tally recomputes the outcome counts from a result set.
func (s *RunSummary) Tally(items []ItemResult) {
	s.Processed = len(items)
	s.Applied, s.Flagged, s.Skipped, s.Errored = 0, 0, 0, 0
	for i := range items {
		switch {
		case items[i].Errored():
			s.Errored++
		case items[i].Outcome == OutcomeAct:
			s.Applied++
		case items[i].Outcome == OutcomeFlag:
			s.Flagged++
		default:
			s.Skipped++
		}
	}
}
