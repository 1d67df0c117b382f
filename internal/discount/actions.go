// Package discount implements the batch repricing verb. No model calls
// are involved: the decision here is pure policy, a requested percent
// clamped to the value-weighted blend of per-category ceilings.
package discount

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/oilslick/catops/internal/common"
	"github.com/oilslick/catops/models"
	"github.com/oilslick/catops/pkg/executor"
	"github.com/oilslick/catops/pkg/plan"
	"github.com/oilslick/catops/pkg/shopify"
)

// DiscountAction prices a percentage discount across a product batch
// and applies it plan by plan. A failed item never stops the batch.
func DiscountAction(c *cli.Context) error {
	logger := common.Logger(c)
	ctx := c.Context

	requested := c.Int("percent")
	if requested <= 0 || requested > 100 {
		fmt.Fprintln(os.Stderr, "Error: --percent must be within 1-100")
		os.Exit(1)
	}

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

	products, err := catalog.FetchProducts(ctx, shopify.ListOptions{
		Vendor: c.String("vendor"),
		Status: "active",
	})
	if err != nil {
		return fmt.Errorf("failed to fetch products: %w", err)
	}
	if t := c.String("type"); t != "" {
		var filtered []models.Product
		for _, p := range products {
			if strings.EqualFold(p.ProductType, t) {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}
	if len(products) == 0 {
		fmt.Println("No products matched the discount filters")
		return nil
	}

	batch := plan.BuildDiscount(products, requested, cfg.Discount)
	fmt.Printf("Discount batch: %d products, requested %d%%, blended ceiling %d%%, effective %d%%\n",
		len(products), batch.Requested, batch.Ceiling, batch.Percent)
	if batch.Clamped {
		fmt.Printf("Requested %d%% exceeds the blended category ceiling; clamped to %d%%\n",
			batch.Requested, batch.Percent)
	}

	mode := common.Mode(c)
	summary := models.RunSummary{
		RunID:     uuid.NewString(),
		Verb:      "discount",
		Policy:    fmt.Sprintf("%d%%", batch.Percent),
		StartedAt: time.Now().UTC(),
	}
	if err := store.CreateRun(&summary); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	exec := executor.New(catalog, store, summary.RunID, logger)

	fmt.Println(strings.Repeat("-", 70))
	items := make([]models.ItemResult, 0, len(batch.Plans))
	for i := range batch.Plans {
		pl := &batch.Plans[i]
		item := models.ItemResult{
			ProductID:    pl.ProductID,
			ProductTitle: pl.ProductTitle,
			Plan:         pl,
			Reason:       pl.Reason,
		}

		if !pl.Mutates() {
			item.Outcome = models.OutcomeSkip
			fmt.Printf("%-8s %-14d %s\n", "skip", pl.ProductID, pl.Reason)
		} else {
			item.Outcome = models.OutcomeAct
			res := exec.Apply(ctx, pl, mode)
			item.Applied = res.Success && mode == executor.ModeExecute
			item.RollbackToken = res.RollbackToken
			status := "ok"
			if !res.Success {
				status = "FAILED"
				item.ErrorType = res.ErrorType
				item.ErrorMessage = res.Message
			}
			fmt.Printf("%-8s %-14d %s\n", status, pl.ProductID, res.Message)
		}

		items = append(items, item)
		if err := store.UpsertItem(summary.RunID, &items[len(items)-1]); err != nil {
			logger.Error("failed to record item", "product_id", pl.ProductID, "error", err)
		}
	}

	summary.FinishedAt = time.Now().UTC()
	summary.Tally(items)
	if err := store.FinishRun(&summary); err != nil {
		logger.Error("failed to finalize run record", "error", err)
	}

	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("Run %s: %d repriced, %d skipped, %d errored\n",
		summary.RunID, summary.Applied, summary.Skipped, summary.Errored)
	if mode == executor.ModeDryRun {
		fmt.Println("Dry run; rerun with --execute to reprice")
	} else {
		fmt.Printf("Tip: Use 'catops rollback --run %s --execute' to undo\n", summary.RunID)
	}
	return nil
}
