// Package curate implements the wholesale-curation verb: find bulk and
// wholesale listings sitting in the retail catalog, hide them behind
// draft status, and strip pricing noise from their titles.
package curate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/oilslick/catops/internal/common"
	"github.com/oilslick/catops/models"
	"github.com/oilslick/catops/pkg/checkpoint"
	"github.com/oilslick/catops/pkg/executor"
	"github.com/oilslick/catops/pkg/heuristics"
	"github.com/oilslick/catops/pkg/plan"
	"github.com/oilslick/catops/pkg/policy"
	"github.com/oilslick/catops/pkg/report"
	"github.com/oilslick/catops/pkg/runner"
	"github.com/oilslick/catops/pkg/shopify"
)

const defaultReportPath = "curation_report.json"

// CurateAction classifies active listings as wholesale or retail and
// plans a hide-and-clean for the wholesale ones. Text-only task: no
// images are sent, so the cheap tier resolves most items.
func CurateAction(c *cli.Context) error {
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

	products, err := catalog.FetchProducts(ctx, shopify.ListOptions{
		Vendor: c.String("vendor"),
		Status: "active",
	})
	if err != nil {
		return fmt.Errorf("failed to fetch products: %w", err)
	}
	candidates := make([]models.Product, 0, len(products))
	limit := c.Int("limit")
	for _, p := range products {
		if processed[p.ID] {
			continue
		}
		candidates = append(candidates, p)
		if limit > 0 && len(candidates) >= limit {
			break
		}
	}
	if len(candidates) == 0 {
		fmt.Println("No active listings to curate")
		return nil
	}
	fmt.Printf("Curating %d listings (policy: %s, mode: %s)\n",
		len(candidates), cfg.Router.Policy, common.Mode(c))

	rt := common.BuildRouter(cfg, logger)
	summary := models.RunSummary{
		RunID:      uuid.NewString(),
		Verb:       "curate",
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
	rules := heuristics.WholesaleRules()

	process := func(ctx context.Context, p models.Product) models.ItemResult {
		return curateOne(ctx, p, cfg, rules, rt, exec, mode, routePolicy)
	}

	pool := runner.New(runner.Config{
		Workers:     cfg.Workers,
		BatchSize:   cfg.BatchSize,
		ItemTimeout: 2 * cfg.RequestTimeout,
		Logger:      logger,
	})
	results := pool.Run(ctx, candidates, process, func(done []models.ItemResult) {
		common.SaveProgress(store, &summary, done, rt.Ledger(), reportPath, logger)
	})

	summary.FinishedAt = time.Now().UTC()
	common.SaveProgress(store, &summary, results, rt.Ledger(), reportPath, logger)
	if err := store.FinishRun(&summary); err != nil {
		logger.Error("failed to finalize run record", "error", err)
	}

	b := report.Bucket(results)
	fmt.Printf("\nRun %s\n", summary.RunID)
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Processed:      %d\n", summary.Processed)
	fmt.Printf("Hidden:         %d\n", len(b.AutoApply))
	fmt.Printf("Needs review:   %d\n", len(b.NeedsReview))
	fmt.Printf("Retail (kept):  %d\n", len(b.NoChange))
	fmt.Printf("Errors:         %d\n", len(b.Errors))
	fmt.Printf("Total spend:    $%.4f\n", rt.Ledger().Total())
	if mode == executor.ModeDryRun {
		fmt.Printf("\nDry run; no changes made. Report saved to %s\n", reportPath)
	} else {
		fmt.Printf("\nApplied %d plans; report saved to %s\n", summary.Applied, reportPath)
		fmt.Printf("Tip: Use 'catops rollback --run %s --execute' to undo\n", summary.RunID)
	}
	return nil
}

// classifier is the router surface the per-item pipeline needs.
type classifier interface {
	Classify(ctx context.Context, req models.ClassifyRequest) *models.ModelResult
}

func curateOne(ctx context.Context, p models.Product, cfg *models.Config, rules heuristics.Ruleset, rt classifier, exec *executor.Executor, mode executor.Mode, routePolicy models.RoutePolicy) models.ItemResult {
	item := models.ItemResult{ProductID: p.ID, ProductTitle: p.Title}

	excluded, why := policy.Exclusion(p, cfg.Eligibility)
	h := heuristics.Score(p, rules)
	item.Score = h.Score

	var m *models.ModelResult
	th := cfg.Thresholds
	if !excluded && h.Score < th.ActNow && h.Score > th.SkipNow {
		m = rt.Classify(ctx, models.ClassifyRequest{
			Product: p,
			Task:    models.TaskWholesale,
			Policy:  routePolicy,
		})
		if m != nil {
			item.Confidence = m.Confidence
			for r := m; r != nil; r = r.EscalatedFrom {
				if r.Usage != nil {
					item.Cost += r.Usage.Cost
				}
			}
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

	if d.Outcome != models.OutcomeAct {
		return item
	}

	pl := plan.BuildCuration(p, d)
	item.Plan = &pl
	if !pl.Mutates() {
		item.Reason = pl.Reason
		return item
	}

	if mode == executor.ModeExecute {
		res := exec.Apply(ctx, &pl, mode)
		item.Applied = res.Success
		item.RollbackToken = res.RollbackToken
		if !res.Success {
			item.ErrorType = res.ErrorType
			item.ErrorMessage = res.Message
		}
	}
	return item
}
