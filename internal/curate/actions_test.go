package curate

import (
	"context"
	"regexp"
	"testing"

	"github.com/oilslick/catops/models"
	"github.com/oilslick/catops/pkg/executor"
	"github.com/oilslick/catops/pkg/heuristics"
)

type countingClassifier struct {
	calls  int
	result *models.ModelResult
}

func (c *countingClassifier) Classify(context.Context, models.ClassifyRequest) *models.ModelResult {
	c.calls++
	return c.result
}

func testRules() heuristics.Ruleset {
	return heuristics.Ruleset{
		Name:      "band-fixture",
		Threshold: 0.5,
		Rules: []heuristics.Rule{
			{Name: "strong", Pattern: regexp.MustCompile(`wholesale`), TitleWeight: 0.95},
			{Name: "mild", Pattern: regexp.MustCompile(`pack`), TitleWeight: 0.50},
		},
	}
}

func TestCurateOne_ActBandSkipsRouter(t *testing.T) {
	fake := &countingClassifier{}
	p := models.Product{ID: 1, Title: "wholesale candle lot", Status: "active"}

	item := curateOne(context.Background(), p, models.DefaultConfig(), testRules(), fake, nil, executor.ModeDryRun, models.PolicyEscalate)

	if fake.calls != 0 {
		t.Errorf("router called %d times, want 0 above the act-now band", fake.calls)
	}
	if item.Outcome != models.OutcomeAct {
		t.Errorf("outcome = %s, want act", item.Outcome)
	}
	if item.Plan == nil || !item.Plan.Mutates() {
		t.Error("act outcome produced no mutating curation plan")
	}
}

func TestCurateOne_SkipBandSkipsRouter(t *testing.T) {
	fake := &countingClassifier{}
	p := models.Product{ID: 2, Title: "single candle", Status: "active"}

	item := curateOne(context.Background(), p, models.DefaultConfig(), testRules(), fake, nil, executor.ModeDryRun, models.PolicyEscalate)

	if fake.calls != 0 {
		t.Errorf("router called %d times, want 0 below the skip-now band", fake.calls)
	}
	if item.Outcome != models.OutcomeSkip {
		t.Errorf("outcome = %s, want skip", item.Outcome)
	}
}

func TestCurateOne_MidBandConsultsRouterOnce(t *testing.T) {
	fake := &countingClassifier{result: &models.ModelResult{
		Backend:    "gemini",
		Verdict:    true,
		Confidence: 0.95,
		Usage:      &models.Usage{Cost: 0.002},
	}}
	p := models.Product{ID: 3, Title: "candle 6 pack", Status: "active"}

	item := curateOne(context.Background(), p, models.DefaultConfig(), testRules(), fake, nil, executor.ModeDryRun, models.PolicyEscalate)

	if fake.calls != 1 {
		t.Fatalf("router called %d times, want 1 for a mid-band score", fake.calls)
	}
	if item.Outcome != models.OutcomeAct {
		t.Errorf("outcome = %s, want act on a confident positive", item.Outcome)
	}
	if item.Cost != 0.002 {
		t.Errorf("cost = %v, want the model call's 0.002", item.Cost)
	}
}
