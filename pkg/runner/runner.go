// Package runner drives batched concurrent processing of catalog
// items. Jobs carry their input index and workers write into
// pre-allocated result slots, so output order always matches input
// order regardless of completion order.
package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oilslick/catops/models"
)

const (
	defaultWorkers   = 4
	defaultBatchSize = 50
)

// Job is one unit of work: a product and its slot in the result order.
type Job struct {
	Index   int
	Product models.Product
}

// ProcessFunc decides one product. Implementations must be safe for
// concurrent use; the runner calls it from every worker.
type ProcessFunc func(ctx context.Context, product models.Product) models.ItemResult

// CheckpointFunc is invoked after each batch settles, with every result
// completed so far in input order. Checkpoint work runs on the caller's
// goroutine between batches, never concurrently with workers.
type CheckpointFunc func(done []models.ItemResult)

// Config sizes the pool.
type Config struct {
	Workers     int
	BatchSize   int
	ItemTimeout time.Duration
	Logger      *slog.Logger
}

// Runner is a bounded worker pool with batch checkpointing.
type Runner struct {
	workers     int
	batchSize   int
	itemTimeout time.Duration
	log         *slog.Logger
}

// New returns a runner, filling in defaults for unset config fields.
func New(cfg Config) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{
		workers:     cfg.Workers,
		batchSize:   cfg.BatchSize,
		itemTimeout: cfg.ItemTimeout,
		log:         cfg.Logger,
	}
}

// Run processes every product and returns one result per input, in
// input order. A failed item never stops the batch; its result carries
// the error. Run returns only after all items have settled.
func (r *Runner) Run(ctx context.Context, products []models.Product, process ProcessFunc, checkpoint CheckpointFunc) []models.ItemResult {
	results := make([]models.ItemResult, len(products))
	if len(products) == 0 {
		return results
	}

	batches := 0
	for start := 0; start < len(products); start += r.batchSize {
		end := min(start+r.batchSize, len(products))
		batches++

		jobs := make(chan Job, end-start)
		var wg sync.WaitGroup
		for w := 1; w <= r.workers; w++ {
			wg.Add(1)
			go r.worker(ctx, w, &wg, jobs, results, process)
		}

		for i := start; i < end; i++ {
			jobs <- Job{Index: i, Product: products[i]}
		}
		close(jobs)
		wg.Wait()

		r.log.Info("batch settled",
			"batch", batches,
			"processed", end,
			"total", len(products))
		if checkpoint != nil {
			checkpoint(results[:end])
		}
	}
	return results
}

func (r *Runner) worker(ctx context.Context, id int, wg *sync.WaitGroup, jobs <-chan Job, results []models.ItemResult, process ProcessFunc) {
	defer wg.Done()
	for job := range jobs {
		itemCtx := ctx
		var cancel context.CancelFunc
		if r.itemTimeout > 0 {
			itemCtx, cancel = context.WithTimeout(ctx, r.itemTimeout)
		}

		res := process(itemCtx, job.Product)
		if cancel != nil {
			cancel()
		}
		if res.ProductID == 0 {
			res.ProductID = job.Product.ID
		}
		if res.ProductTitle == "" {
			res.ProductTitle = job.Product.Title
		}
		results[job.Index] = res

		if res.Errored() {
			r.log.Warn("item errored",
				"worker_id", id,
				"product_id", job.Product.ID,
				"error_type", res.ErrorType,
				"error", res.ErrorMessage)
		}
	}
}
