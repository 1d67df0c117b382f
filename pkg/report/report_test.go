package report

import (
	"testing"

	"github.com/oilslick/catops/models"
)

func TestBucket(t *testing.T) {
	items := []models.ItemResult{
		{ProductID: 1, Outcome: models.OutcomeAct},
		{ProductID: 2, Outcome: models.OutcomeFlag},
		{ProductID: 3, Outcome: models.OutcomeSkip},
		{ProductID: 4, Outcome: models.OutcomeAct, ErrorType: models.ErrTransient, ErrorMessage: "timed out"},
		{ProductID: 5, Outcome: models.OutcomeAct},
	}

	b := Bucket(items)
	if got := ids(b.AutoApply); !equalIDs(got, []int64{1, 5}) {
		t.Errorf("AutoApply = %v, want [1 5]", got)
	}
	if got := ids(b.NeedsReview); !equalIDs(got, []int64{2}) {
		t.Errorf("NeedsReview = %v, want [2]", got)
	}
	if got := ids(b.NoChange); !equalIDs(got, []int64{3}) {
		t.Errorf("NoChange = %v, want [3]", got)
	}
	// Item 4 errored; its act outcome must not make it applicable.
	if got := ids(b.Errors); !equalIDs(got, []int64{4}) {
		t.Errorf("Errors = %v, want [4]", got)
	}
}

func TestApplicable(t *testing.T) {
	b := Buckets{
		AutoApply:   []models.ItemResult{{ProductID: 1}, {ProductID: 2}},
		NeedsReview: []models.ItemResult{{ProductID: 3}},
	}

	if got := ids(b.Applicable(false)); !equalIDs(got, []int64{1, 2}) {
		t.Errorf("Applicable(false) = %v, want [1 2]", got)
	}
	if got := ids(b.Applicable(true)); !equalIDs(got, []int64{1, 2, 3}) {
		t.Errorf("Applicable(true) = %v, want [1 2 3]", got)
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		count    int
		perBlock int
		want     string
	}{
		{0, 5, ""},
		{4, 5, ""},
		{5, 5, "█"},
		{23, 5, "████"},
		{3, 0, "███"},
	}
	for _, tt := range tests {
		if got := Bar(tt.count, tt.perBlock); got != tt.want {
			t.Errorf("Bar(%d, %d) = %q, want %q", tt.count, tt.perBlock, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 45, "short"},
		{"exactly-five!", 13, "exactly-five!"},
		{"a longer product title than fits", 8, "a longer"},
		{"Café Crème Brûlée Set", 10, "Café Crème"},
		{"anything", 0, "anything"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func ids(items []models.ItemResult) []int64 {
	out := make([]int64, len(items))
	for i := range items {
		out[i] = items[i].ProductID
	}
	return out
}

func equalIDs(got, want []int64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
