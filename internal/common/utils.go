// Package common holds the plumbing every CLI verb shares: logger and
// config setup, store access, and assembly of the classification
// pipeline from environment credentials.
package common

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/oilslick/catops/models"
	"github.com/oilslick/catops/pkg/ai"
	"github.com/oilslick/catops/pkg/caching"
	"github.com/oilslick/catops/pkg/checkpoint"
	"github.com/oilslick/catops/pkg/costs"
	"github.com/oilslick/catops/pkg/db"
	"github.com/oilslick/catops/pkg/executor"
	"github.com/oilslick/catops/pkg/router"
	"github.com/oilslick/catops/pkg/shopify"
)

const mediaCacheTTL = 24 * time.Hour

// Logger builds the structured logger for a verb. --quiet drops
// everything below errors so stdout report output stays readable when
// piped.
func Logger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// LoadConfig reads the --config file, or defaults when the flag is
// unset. An invalid configuration is fatal before any batch work.
func LoadConfig(c *cli.Context) (*models.Config, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("policy") {
		if _, ok := models.ParsePolicy(c.String("policy")); !ok {
			return nil, fmt.Errorf("configuration error: unknown policy %q", c.String("policy"))
		}
		cfg.Router.Policy = c.String("policy")
	}
	return cfg, nil
}

// OpenStore opens the run database, honoring a --db override.
func OpenStore(c *cli.Context) (*db.DB, error) {
	if c.IsSet("db") {
		return db.OpenAt(c.String("db"))
	}
	return db.Open()
}

// Mode maps the --execute flag to an executor mode. Dry-run is the
// default everywhere; mutation is always opt-in.
func Mode(c *cli.Context) executor.Mode {
	if c.Bool("execute") {
		return executor.ModeExecute
	}
	return executor.ModeDryRun
}

// Catalog builds the Shopify client from environment credentials.
// Missing credentials are a configuration error and abort the verb.
func Catalog(logger *slog.Logger) (*shopify.Client, error) {
	client, err := shopify.FromEnv(logger)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return client, nil
}

// BuildRouter assembles the model router: both backend clients with
// whatever credentials the environment offers, the image fetcher with
// its on-disk cache, and a fresh ledger. Backends without a credential
// stay registered; the router skips them at call time and falls
// through to the next tier, so one missing key degrades rather than
// aborts.
func BuildRouter(cfg *models.Config, logger *slog.Logger) *router.Router {
	backends := []ai.Backend{
		ai.NewGemini(ai.ClientConfig{
			APIKey:  os.Getenv("GOOGLE_API_KEY"),
			Timeout: cfg.RequestTimeout,
		}),
		ai.NewClaude(ai.ClientConfig{
			APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
			Timeout: cfg.RequestTimeout,
		}),
	}

	var media *ai.MediaFetcher
	cache, err := caching.NewCache(mediaCachePath(), mediaCacheTTL, 0)
	if err != nil {
		logger.Warn("image cache unavailable, downloads will not be reused", "error", err)
		media = ai.NewMediaFetcher(nil, cfg.Variants.MaxImages, logger)
	} else {
		media = ai.NewMediaFetcher(cache, cfg.Variants.MaxImages, logger)
	}

	return router.New(router.Config{
		Backends: backends,
		Router:   cfg.Router,
		Prices:   ai.TableFromConfig(cfg.Pricing),
		Ledger:   costs.NewLedger(),
		Media:    media,
		Logger:   logger,
	})
}

// SaveProgress persists one batch of a classification run: the JSON
// report for resume and replay, the sqlite items for the runs verb,
// and the spend ledger. Failures are logged, not fatal; the batch
// already ran and the next checkpoint will retry the write.
func SaveProgress(store *db.DB, summary *models.RunSummary, done []models.ItemResult, ledger *costs.Ledger, reportPath string, logger *slog.Logger) {
	summary.Tally(done)
	summary.TotalCost = ledger.Total()

	if err := checkpoint.Write(reportPath, &checkpoint.Report{
		Summary:   *summary,
		Items:     done,
		Costs:     ledger.Breakdown(),
		TotalCost: ledger.Total(),
	}); err != nil {
		logger.Error("failed to write checkpoint report", "path", reportPath, "error", err)
	}

	for i := range done {
		if err := store.UpsertItem(summary.RunID, &done[i]); err != nil {
			logger.Error("failed to record item", "product_id", done[i].ProductID, "error", err)
		}
	}
	if err := store.SaveLedger(summary.RunID, ledger.Breakdown()); err != nil {
		logger.Error("failed to record ledger", "error", err)
	}
}

func mediaCachePath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "catops", "media")
	}
	return filepath.Join(os.TempDir(), "catops-media")
}
