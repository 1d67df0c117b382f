package plan

import (
	"strings"
	"testing"

	"github.com/oilslick/catops/models"
)

func TestBuildCuration_HidesAndCleans(t *testing.T) {
	p := models.Product{
		ID:     201,
		Title:  "Bulk Widgets $4.99 - Case of 24",
		Status: "active",
	}

	pl := BuildCuration(p, actDecision())

	if pl.Action != models.ActionCuration {
		t.Fatalf("action = %s, want %s (reason %q)", pl.Action, models.ActionCuration, pl.Reason)
	}
	if pl.Curation == nil {
		t.Fatal("curation payload is nil")
	}
	if pl.Curation.Status != "draft" {
		t.Errorf("status = %q, want draft", pl.Curation.Status)
	}
	if want := "Bulk Widgets - Case of 24"; pl.Curation.Title != want {
		t.Errorf("title = %q, want %q", pl.Curation.Title, want)
	}
	if len(pl.Changes) != 2 {
		t.Errorf("changes = %v, want status and title deltas", pl.Changes)
	}
}

func TestBuildCuration_AlreadyCurated(t *testing.T) {
	p := models.Product{ID: 202, Title: "Bulk Widgets", Status: "draft"}

	pl := BuildCuration(p, actDecision())

	if pl.Action != models.ActionNone {
		t.Fatalf("action = %s, want none", pl.Action)
	}
	if !strings.Contains(pl.Reason, "already") {
		t.Errorf("reason = %q, want already-curated", pl.Reason)
	}
}

func TestBuildCuration_AppliedPlanReachesSteadyState(t *testing.T) {
	p := models.Product{ID: 203, Title: "Wholesale Lot $12.00", Status: "active"}

	first := BuildCuration(p, actDecision())
	if first.Action != models.ActionCuration {
		t.Fatalf("first action = %s, want curation", first.Action)
	}

	p.Status = first.Curation.Status
	p.Title = first.Curation.Title
	second := BuildCuration(p, actDecision())

	if second.Action != models.ActionNone {
		t.Errorf("second action = %s, want none after applying the first plan", second.Action)
	}
}

func TestBuildCuration_AllDollarTitleKeepsOriginal(t *testing.T) {
	p := models.Product{ID: 204, Title: "$5.00", Status: "active"}

	pl := BuildCuration(p, actDecision())

	if pl.Action != models.ActionCuration {
		t.Fatalf("action = %s, want curation for the status change", pl.Action)
	}
	if pl.Curation.Title != "$5.00" {
		t.Errorf("title = %q, want the original title kept", pl.Curation.Title)
	}
	if len(pl.Changes) != 1 {
		t.Errorf("changes = %v, want only the status delta", pl.Changes)
	}
}

func TestBuildCuration_NonActDecision(t *testing.T) {
	p := models.Product{ID: 205, Title: "Bulk Widgets $4.99", Status: "active"}
	d := models.Decision{Outcome: models.OutcomeSkip}

	pl := BuildCuration(p, d)

	if pl.Action != models.ActionNone {
		t.Errorf("action = %s, want none for a skip decision", pl.Action)
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Bulk Widgets $4.99 - Case of 24", "Bulk Widgets - Case of 24"},
		{"Widgets $5.00 - - Blue", "Widgets - Blue"},
		{"Gadget $9.99", "Gadget"},
		{"$1,299.00 Deluxe Set", "Deluxe Set"},
		{"Clean Title", "Clean Title"},
		{"Spaced    out", "Spaced out"},
	}
	for _, tt := range tests {
		if got := CleanTitle(tt.in); got != tt.want {
			t.Errorf("CleanTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
