// Package costs tracks spend across a run. The ledger is additive
// only: entries accumulate per backend and are never reset mid-run, so
// a checkpoint always carries the full spend so far.
package costs

import (
	"sync"

	"github.com/oilslick/catops/models"
)

// BackendTotals is the accumulated spend for one backend.
type BackendTotals struct {
	Calls       int64   `json:"calls"`
	InputUnits  int64   `json:"input_units"`
	OutputUnits int64   `json:"output_units"`
	Cost        float64 `json:"cost"`
}

// Ledger accumulates usage per backend. Safe for concurrent use by
// worker goroutines.
type Ledger struct {
	mu     sync.Mutex
	totals map[string]*BackendTotals
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{totals: make(map[string]*BackendTotals)}
}

// Record adds one call's usage. A nil usage is a no-op; failed calls
// that never reached the API cost nothing. Unknown backend names are
// accepted as-is: the ledger is a sink, not a validator.
func (l *Ledger) Record(backend string, usage *models.Usage) {
	if usage == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.totals[backend]
	if !ok {
		t = &BackendTotals{}
		l.totals[backend] = t
	}
	t.Calls++
	t.InputUnits += usage.InputUnits
	t.OutputUnits += usage.OutputUnits
	t.Cost += usage.Cost
}

// Total returns the summed cost across all backends.
func (l *Ledger) Total() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	var sum float64
	for _, t := range l.totals {
		sum += t.Cost
	}
	return sum
}

// Breakdown returns a copy of the per-backend totals, safe to hold
// while workers keep recording.
func (l *Ledger) Breakdown() map[string]BackendTotals {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]BackendTotals, len(l.totals))
	for name, t := range l.totals {
		out[name] = *t
	}
	return out
}

// Calls returns the number of recorded calls for one backend.
func (l *Ledger) Calls(backend string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if t, ok := l.totals[backend]; ok {
		return t.Calls
	}
	return 0
}
