// Package report shapes run results for terminal display and for the
// apply phase, which consumes the auto-apply and review queues.
package report

import (
	"strings"

	"github.com/oilslick/catops/models"
)

// Buckets partitions analyze results by disposition, input order
// preserved within each bucket.
type Buckets struct {
	AutoApply   []models.ItemResult
	NeedsReview []models.ItemResult
	NoChange    []models.ItemResult
	Errors      []models.ItemResult
}

// Bucket sorts items into apply queues. Errors win over outcome: an
// errored item is never applied no matter what outcome it carries.
func Bucket(items []models.ItemResult) Buckets {
	var b Buckets
	for _, item := range items {
		switch {
		case item.Errored():
			b.Errors = append(b.Errors, item)
		case item.Outcome == models.OutcomeAct:
			b.AutoApply = append(b.AutoApply, item)
		case item.Outcome == models.OutcomeFlag:
			b.NeedsReview = append(b.NeedsReview, item)
		default:
			b.NoChange = append(b.NoChange, item)
		}
	}
	return b
}

// Applicable returns the items apply should mutate: the auto-apply
// queue, plus the review queue when all is set.
func (b Buckets) Applicable(all bool) []models.ItemResult {
	if !all {
		return b.AutoApply
	}
	merged := make([]models.ItemResult, 0, len(b.AutoApply)+len(b.NeedsReview))
	merged = append(merged, b.AutoApply...)
	merged = append(merged, b.NeedsReview...)
	return merged
}

// Bar renders a count as a block bar, one block per perBlock items.
func Bar(count, perBlock int) string {
	if perBlock <= 0 {
		perBlock = 1
	}
	return strings.Repeat("█", count/perBlock)
}

// Truncate shortens a string for fixed-width columns without
// splitting a rune.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
