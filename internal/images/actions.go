// Package images implements the image-verification verb: send each
// listing's photos to a vision backend and flag products whose images
// do not depict what the copy sells. Detection only; fixing a flagged
// listing's images is a manual job.
package images

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
	"github.com/oilslick/catops/pkg/policy"
	"github.com/oilslick/catops/pkg/report"
	"github.com/oilslick/catops/pkg/runner"
	"github.com/oilslick/catops/pkg/shopify"
)

const defaultReportPath = "image_match_report.json"

// classifier is the router surface the per-item pipeline needs.
type classifier interface {
	Classify(ctx context.Context, req models.ClassifyRequest) *models.ModelResult
}

// VerifyAction checks every candidate listing's images against its
// copy. There is no heuristic pre-pass: the question is inherently
// visual, so every eligible item with images costs one model exchange.
func VerifyAction(c *cli.Context) error {
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
		fmt.Println("No active listings to verify")
		return nil
	}
	fmt.Printf("Verifying images on %d listings (policy: %s)\n",
		len(candidates), cfg.Router.Policy)

	rt := common.BuildRouter(cfg, logger)
	summary := models.RunSummary{
		RunID:      uuid.NewString(),
		Verb:       "images-verify",
		Policy:     cfg.Router.Policy,
		StartedAt:  time.Now().UTC(),
		ReportPath: reportPath,
	}
	if err := store.CreateRun(&summary); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	routePolicy, _ := models.ParsePolicy(cfg.Router.Policy)
	deps := verifyDeps{cfg: cfg, router: rt, policy: routePolicy}

	process := func(ctx context.Context, p models.Product) models.ItemResult {
		return verifyOne(ctx, p, deps)
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
	fmt.Printf("Mismatches:     %d\n", len(b.NeedsReview))
	fmt.Printf("Matched/skip:   %d\n", summary.Skipped)
	fmt.Printf("Errors:         %d\n", len(b.Errors))
	fmt.Printf("Total spend:    $%.4f\n", rt.Ledger().Total())

	if len(b.NeedsReview) > 0 {
		fmt.Printf("\nMismatched listings (%d):\n", len(b.NeedsReview))
		fmt.Println(strings.Repeat("-", 70))
		for _, item := range b.NeedsReview {
			fmt.Printf("%-14d %-40s %.2f  %s\n",
				item.ProductID, report.Truncate(item.ProductTitle, 40), item.Confidence, item.Reason)
		}
		fmt.Println("\nTip: Review each listing's media in the admin; this verb never mutates")
	}
	fmt.Printf("\nReport saved to %s\n", reportPath)
	return nil
}

type verifyDeps struct {
	cfg    *models.Config
	router classifier
	policy models.RoutePolicy
}

// verifyOne checks one listing. Products without images have nothing
// to verify and skip without spending; a mismatch verdict is a flag
// for human review, never a plan.
func verifyOne(ctx context.Context, p models.Product, deps verifyDeps) models.ItemResult {
	item := models.ItemResult{ProductID: p.ID, ProductTitle: p.Title}

	if excluded, why := policy.Exclusion(p, deps.cfg.Eligibility); excluded {
		item.Outcome = models.OutcomeSkip
		item.Method = models.MethodHeuristic
		item.Reason = why
		return item
	}
	if len(p.Images) == 0 {
		item.Outcome = models.OutcomeSkip
		item.Method = models.MethodHeuristic
		item.Reason = "no images to verify"
		return item
	}

	m := deps.router.Classify(ctx, models.ClassifyRequest{
		Product: p,
		Task:    models.TaskMatch,
		Policy:  deps.policy,
	})
	for r := m; r != nil; r = r.EscalatedFrom {
		if r.Usage != nil {
			item.Cost += r.Usage.Cost
		}
	}
	if !m.OK() {
		item.ErrorType = models.ErrTransient
		item.ErrorMessage = "model call produced no result"
		if m != nil {
			item.ErrorMessage = m.Err
		}
		return item
	}

	item.Confidence = m.Confidence
	item.Method = models.MethodModel
	if m.Verdict {
		item.Outcome = models.OutcomeSkip
		item.Reason = fmt.Sprintf("images match the listing (%s confidence %.2f)", m.Backend, m.Confidence)
		return item
	}
	item.Outcome = models.OutcomeFlag
	reason := m.Rationale
	if reason == "" {
		reason = fmt.Sprintf("%s confidence %.2f", m.Backend, m.Confidence)
	}
	item.Reason = fmt.Sprintf("images may not match the listing: %s", reason)
	return item
}
