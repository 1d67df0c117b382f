package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oilslick/catops/models"
)

func testProducts(n int) []models.Product {
	products := make([]models.Product, n)
	for i := range products {
		products[i] = models.Product{
			ID:    int64(1000 + i),
			Title: fmt.Sprintf("Product %d", i),
		}
	}
	return products
}

func newTestRunner(workers, batchSize int, itemTimeout time.Duration) *Runner {
	return New(Config{
		Workers:     workers,
		BatchSize:   batchSize,
		ItemTimeout: itemTimeout,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestRun_PreservesInputOrder(t *testing.T) {
	products := testProducts(25)
	r := newTestRunner(8, 50, 0)

	// Uneven sleeps scramble completion order across workers.
	process := func(ctx context.Context, p models.Product) models.ItemResult {
		time.Sleep(time.Duration(p.ID%5) * time.Millisecond)
		return models.ItemResult{ProductID: p.ID, Outcome: models.OutcomeSkip}
	}

	results := r.Run(context.Background(), products, process, nil)
	if len(results) != len(products) {
		t.Fatalf("got %d results, want %d", len(results), len(products))
	}
	for i, res := range results {
		if res.ProductID != products[i].ID {
			t.Errorf("results[%d].ProductID = %d, want %d", i, res.ProductID, products[i].ID)
		}
	}
}

func TestRun_CheckpointAfterEachBatch(t *testing.T) {
	products := testProducts(10)
	r := newTestRunner(3, 4, 0)

	process := func(ctx context.Context, p models.Product) models.ItemResult {
		return models.ItemResult{ProductID: p.ID, Outcome: models.OutcomeSkip}
	}

	var sizes []int
	checkpoint := func(done []models.ItemResult) {
		for i, res := range done {
			if res.ProductID != products[i].ID {
				t.Errorf("checkpoint slot %d not settled: got product %d", i, res.ProductID)
			}
		}
		sizes = append(sizes, len(done))
	}

	r.Run(context.Background(), products, process, checkpoint)
	want := []int{4, 8, 10}
	if len(sizes) != len(want) {
		t.Fatalf("checkpoint called %d times, want %d", len(sizes), len(want))
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Errorf("checkpoint %d saw %d results, want %d", i, sizes[i], want[i])
		}
	}
}

func TestRun_ItemTimeoutOnlyFailsSlowItem(t *testing.T) {
	products := testProducts(5)
	r := newTestRunner(2, 50, 20*time.Millisecond)

	slowID := products[3].ID
	process := func(ctx context.Context, p models.Product) models.ItemResult {
		if p.ID == slowID {
			<-ctx.Done()
			return models.ItemResult{
				ProductID:    p.ID,
				ErrorType:    models.ErrTransient,
				ErrorMessage: "model call timed out",
			}
		}
		return models.ItemResult{ProductID: p.ID, Outcome: models.OutcomeSkip}
	}

	results := r.Run(context.Background(), products, process, nil)
	for i, res := range results {
		if res.ProductID == slowID {
			if !res.Errored() {
				t.Errorf("slow item did not error: %+v", res)
			}
			continue
		}
		if res.Errored() {
			t.Errorf("results[%d] errored: %s", i, res.ErrorMessage)
		}
	}
}

func TestRun_ConcurrencyStaysBounded(t *testing.T) {
	products := testProducts(20)
	workers := 3
	r := newTestRunner(workers, 50, 0)

	var current, peak int32
	process := func(ctx context.Context, p models.Product) models.ItemResult {
		c := atomic.AddInt32(&current, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if c <= old || atomic.CompareAndSwapInt32(&peak, old, c) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		return models.ItemResult{ProductID: p.ID, Outcome: models.OutcomeSkip}
	}

	r.Run(context.Background(), products, process, nil)
	if got := atomic.LoadInt32(&peak); got > int32(workers) {
		t.Errorf("peak concurrency = %d, want at most %d", got, workers)
	}
}

func TestRun_FillsMissingIdentity(t *testing.T) {
	products := testProducts(2)
	r := newTestRunner(1, 50, 0)

	process := func(ctx context.Context, p models.Product) models.ItemResult {
		return models.ItemResult{Outcome: models.OutcomeSkip}
	}

	results := r.Run(context.Background(), products, process, nil)
	for i, res := range results {
		if res.ProductID != products[i].ID {
			t.Errorf("results[%d].ProductID = %d, want %d", i, res.ProductID, products[i].ID)
		}
		if res.ProductTitle != products[i].Title {
			t.Errorf("results[%d].ProductTitle = %q, want %q", i, res.ProductTitle, products[i].Title)
		}
	}
}

func TestRun_EmptyInput(t *testing.T) {
	r := newTestRunner(4, 50, 0)
	called := false
	results := r.Run(context.Background(), nil,
		func(ctx context.Context, p models.Product) models.ItemResult {
			return models.ItemResult{}
		},
		func(done []models.ItemResult) { called = true })
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
	if called {
		t.Error("checkpoint called for empty input")
	}
}
