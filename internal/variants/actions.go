// Package variants implements the variant-detection verb: find
// single-variant products whose copy or images suggest hidden
// variations, plan option matrices for them, and apply those plans
// immediately or replay them later from the saved report.
package variants

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/oilslick/catops/internal/common"
	"github.com/oilslick/catops/models"
	"github.com/oilslick/catops/pkg/ai"
	"github.com/oilslick/catops/pkg/checkpoint"
	"github.com/oilslick/catops/pkg/costs"
	"github.com/oilslick/catops/pkg/executor"
	"github.com/oilslick/catops/pkg/heuristics"
	"github.com/oilslick/catops/pkg/plan"
	"github.com/oilslick/catops/pkg/policy"
	"github.com/oilslick/catops/pkg/report"
	"github.com/oilslick/catops/pkg/runner"
	"github.com/oilslick/catops/pkg/shopify"
)

const defaultReportPath = "variant_report.json"

// AnalyzeAction scans the catalog for single-variant products that
// should carry options, classifies each through the heuristic scorer
// and the model router, and writes a replayable report. With --execute
// the auto-apply queue is mutated in the same run.
func AnalyzeAction(c *cli.Context) error {
	logger := common.Logger(c)
	ctx := c.Context

	cfg, err := common.LoadConfig(c)
	if err != nil {
		return err
	}
	catalog, err := common.Catalog(logger)
	if err != nil {
		return err
	}
	store, err := common.OpenStore(c)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer store.Close()

	reportPath := c.String("report")
	if reportPath == "" {
		reportPath = defaultReportPath
	}

	// Resume skips everything the previous report settled, errored
	// items included; rerun without --resume to retry errors.
	processed := map[int64]bool{}
	if c.Bool("resume") {
		prev, err := checkpoint.Load(reportPath)
		if err != nil {
			return fmt.Errorf("cannot resume from %s: %w", reportPath, err)
		}
		processed = prev.ProcessedIDs()
		logger.Info("resuming from previous report",
			"report", reportPath,
			"already_processed", len(processed))
	}

	products, err := fetchCandidates(ctx, catalog, c.String("vendor"), c.Int("limit"), processed)
	if err != nil {
		return fmt.Errorf("failed to fetch products: %w", err)
	}
	if len(products) == 0 {
		fmt.Println("No single-variant products to analyze")
		return nil
	}
	fmt.Printf("Analyzing %d single-variant products (policy: %s, mode: %s)\n",
		len(products), cfg.Router.Policy, common.Mode(c))

	rt := common.BuildRouter(cfg, logger)
	summary := models.RunSummary{
		RunID:      uuid.NewString(),
		Verb:       "variants-analyze",
		Policy:     cfg.Router.Policy,
		StartedAt:  time.Now().UTC(),
		ReportPath: reportPath,
	}
	if err := store.CreateRun(&summary); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	exec := executor.New(catalog, store, summary.RunID, logger)
	mode := common.Mode(c)

	routePolicy, _ := models.ParsePolicy(cfg.Router.Policy)
	rules := heuristics.VariantRules()

	process := func(ctx context.Context, p models.Product) models.ItemResult {
		return analyzeOne(ctx, p, analyzeDeps{
			cfg:    cfg,
			rules:  rules,
			router: rt,
			exec:   exec,
			mode:   mode,
			policy: routePolicy,
		})
	}

	pool := runner.New(runner.Config{
		Workers:     cfg.Workers,
		BatchSize:   cfg.BatchSize,
		ItemTimeout: 2 * cfg.RequestTimeout,
		Logger:      logger,
	})
	results := pool.Run(ctx, products, process, func(done []models.ItemResult) {
		common.SaveProgress(store, &summary, done, rt.Ledger(), reportPath, logger)
	})

	summary.FinishedAt = time.Now().UTC()
	common.SaveProgress(store, &summary, results, rt.Ledger(), reportPath, logger)
	if err := store.FinishRun(&summary); err != nil {
		logger.Error("failed to finalize run record", "error", err)
	}

	printAnalyzeSummary(&summary, results, rt.Ledger(), mode)
	return nil
}

// classifier is the router surface the per-item pipeline needs; the
// seam keeps the pipeline testable without live backends.
type classifier interface {
	Classify(ctx context.Context, req models.ClassifyRequest) *models.ModelResult
}

type analyzeDeps struct {
	cfg    *models.Config
	rules  heuristics.Ruleset
	router classifier
	exec   *executor.Executor
	mode   executor.Mode
	policy models.RoutePolicy
}

// analyzeOne runs the full per-item pipeline: eligibility, heuristics,
// model escalation, decision, plan, and (in execute mode) application.
func analyzeOne(ctx context.Context, p models.Product, deps analyzeDeps) models.ItemResult {
	item := models.ItemResult{ProductID: p.ID, ProductTitle: p.Title}

	excluded, why := policy.Exclusion(p, deps.cfg.Eligibility)
	h := heuristics.Score(p, deps.rules)
	item.Score = h.Score

	// The short-circuit bands skip the router entirely; everything in
	// between pays for a model opinion.
	var m *models.ModelResult
	th := deps.cfg.Thresholds
	if !excluded && h.Score < th.ActNow && h.Score > th.SkipNow {
		m = deps.router.Classify(ctx, models.ClassifyRequest{
			Product: p,
			Task:    models.TaskVariants,
			Policy:  deps.policy,
		})
		item.Cost = resultCost(m)
		if m != nil {
			item.Confidence = m.Confidence
		}
	}

	d := policy.Decide(policy.Input{
		Heuristic:        h,
		Model:            m,
		Ineligible:       excluded,
		IneligibleReason: why,
	}, th)
	item.Outcome = d.Outcome
	item.Method = d.Method
	item.Score = d.CombinedScore
	item.Reason = d.Reason

	if d.Outcome != models.OutcomeAct && d.Outcome != models.OutcomeFlag {
		return item
	}

	var opts []models.OptionSet
	if m.OK() {
		opts = ai.OptionSetsFromFields(m.Fields)
	}
	pl := plan.BuildVariants(p, d, opts, deps.cfg.Variants)
	item.Plan = &pl
	if !pl.Mutates() {
		item.Reason = pl.Reason
		return item
	}

	if deps.mode == executor.ModeExecute && d.Outcome == models.OutcomeAct {
		res := deps.exec.Apply(ctx, &pl, deps.mode)
		item.Applied = res.Success
		item.RollbackToken = res.RollbackToken
		if !res.Success {
			item.ErrorType = res.ErrorType
			item.ErrorMessage = res.Message
		}
	}
	return item
}

// resultCost sums the spend of a model result and every attempt it
// escalated from.
func resultCost(m *models.ModelResult) float64 {
	var total float64
	for ; m != nil; m = m.EscalatedFrom {
		if m.Usage != nil {
			total += m.Usage.Cost
		}
	}
	return total
}

// fetchCandidates pulls active products and keeps the single-variant
// ones the analyzer targets, minus anything already processed.
func fetchCandidates(ctx context.Context, catalog *shopify.Client, vendor string, limit int, skip map[int64]bool) ([]models.Product, error) {
	var out []models.Product
	err := catalog.EachPage(ctx, shopify.ListOptions{Vendor: vendor, Status: "active"}, func(page []models.Product) error {
		for _, p := range page {
			if skip[p.ID] {
				continue
			}
			if len(p.Variants) != 1 || !p.Variants[0].DefaultVariant() {
				continue
			}
			out = append(out, p)
			if limit > 0 && len(out) >= limit {
				return errEnough
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errEnough) {
		return nil, err
	}
	return out, nil
}

// errEnough stops pagination once the --limit is reached.
var errEnough = errors.New("candidate limit reached")

func printAnalyzeSummary(summary *models.RunSummary, results []models.ItemResult, ledger *costs.Ledger, mode executor.Mode) {
	b := report.Bucket(results)

	fmt.Printf("\nRun %s\n", summary.RunID)
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Processed:      %d\n", summary.Processed)
	fmt.Printf("Auto-apply:     %d\n", len(b.AutoApply))
	fmt.Printf("Needs review:   %d\n", len(b.NeedsReview))
	fmt.Printf("No change:      %d\n", len(b.NoChange))
	fmt.Printf("Errors:         %d\n", len(b.Errors))
	fmt.Printf("Total spend:    $%.4f\n", ledger.Total())

	if len(b.NeedsReview) > 0 {
		fmt.Printf("\nNeeds review (%d):\n", len(b.NeedsReview))
		fmt.Println(strings.Repeat("-", 70))
		for _, item := range b.NeedsReview {
			fmt.Printf("%-14d %-40s %.2f  %s\n",
				item.ProductID, report.Truncate(item.ProductTitle, 40), item.Score, item.Reason)
		}
	}

	if mode == executor.ModeExecute {
		fmt.Printf("\nApplied %d plans; report saved to %s\n", summary.Applied, summary.ReportPath)
	} else {
		fmt.Printf("\nDry run; no changes made. Report saved to %s\n", summary.ReportPath)
		fmt.Printf("Tip: Use 'catops variants apply --report %s --execute' to apply the auto-apply queue\n", summary.ReportPath)
	}
}

// ApplyAction replays a saved report's plans without re-invoking any
// model. Plans were persisted alongside each decision, so an analyze
// run's spend is never repeated.
func ApplyAction(c *cli.Context) error {
	logger := common.Logger(c)
	ctx := c.Context

	reportPath := c.String("report")
	if reportPath == "" {
		reportPath = defaultReportPath
	}
	saved, err := checkpoint.Load(reportPath)
	if err != nil {
		return err
	}

	catalog, err := common.Catalog(logger)
	if err != nil {
		return err
	}
	store, err := common.OpenStore(c)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer store.Close()

	queue := report.Bucket(saved.Items).Applicable(c.Bool("all"))
	var applicable []models.ItemResult
	for _, item := range queue {
		if item.Plan.Mutates() && !item.Applied {
			applicable = append(applicable, item)
		}
	}
	if len(applicable) == 0 {
		fmt.Println("Nothing to apply: no unapplied plans in the report")
		return nil
	}

	mode := common.Mode(c)
	summary := models.RunSummary{
		RunID:      uuid.NewString(),
		Verb:       "variants-apply",
		Policy:     saved.Summary.Policy,
		StartedAt:  time.Now().UTC(),
		ReportPath: reportPath,
	}
	if err := store.CreateRun(&summary); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	exec := executor.New(catalog, store, summary.RunID, logger)

	fmt.Printf("Applying %d plans from %s (mode: %s)\n", len(applicable), reportPath, mode)
	fmt.Println(strings.Repeat("-", 70))

	applied, failed := 0, 0
	for i := range applicable {
		item := &applicable[i]
		res := exec.Apply(ctx, item.Plan, mode)
		status := "ok"
		if res.Success {
			applied++
			item.Applied = mode == executor.ModeExecute
			item.RollbackToken = res.RollbackToken
		} else {
			failed++
			status = "FAILED"
			item.ErrorType = res.ErrorType
			item.ErrorMessage = res.Message
		}
		fmt.Printf("%-8s %-14d %s\n", status, item.ProductID, res.Message)

		if err := store.UpsertItem(summary.RunID, item); err != nil {
			logger.Error("failed to record item", "product_id", item.ProductID, "error", err)
		}
	}

	summary.FinishedAt = time.Now().UTC()
	summary.Tally(applicable)
	if err := store.FinishRun(&summary); err != nil {
		logger.Error("failed to finalize run record", "error", err)
	}

	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("Applied: %d, Failed: %d\n", applied, failed)
	if mode == executor.ModeDryRun {
		fmt.Println("Dry run; rerun with --execute to mutate the catalog")
	}
	return nil
}
