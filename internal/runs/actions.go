// Package runs implements the inspection verbs over the run store:
// listing past runs, showing one run's items, and breaking down model
// spend per backend.
package runs

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/oilslick/catops/internal/common"
	"github.com/oilslick/catops/models"
)

// ListAction prints recent runs, newest first.
func ListAction(c *cli.Context) error {
	store, err := common.OpenStore(c)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer store.Close()

	limit := c.Int("limit")
	if limit <= 0 {
		limit = 20
	}
	runs, err := store.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	fmt.Printf("%-36s %-18s %-16s %-20s %-6s %-6s %-6s %-6s %-6s %-10s\n",
		"Run ID", "Verb", "Policy", "Started", "Proc", "Appl", "Flag", "Skip", "Err", "Spend")
	fmt.Println(strings.Repeat("-", 140))
	for _, r := range runs {
		fmt.Printf("%-36s %-18s %-16s %-20s %-6d %-6d %-6d %-6d %-6d $%-9.4f\n",
			r.RunID, r.Verb, r.Policy,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Processed, r.Applied, r.Flagged, r.Skipped, r.Errored, r.TotalCost)
	}
	fmt.Printf("\nTotal: %d runs\n", len(runs))
	fmt.Println("\nTip: Use 'catops runs show <run-id>' to see per-item outcomes")
	return nil
}

// ShowAction prints one run with its per-item outcomes and snapshots.
func ShowAction(c *cli.Context) error {
	store, err := common.OpenStore(c)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer store.Close()

	runID, err := resolveRunID(c, store)
	if err != nil {
		return err
	}

	run, err := store.GetRun(runID)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}
	items, err := store.ItemsForRun(runID)
	if err != nil {
		return fmt.Errorf("failed to get run items: %w", err)
	}
	snaps, err := store.SnapshotsForRun(runID)
	if err != nil {
		return fmt.Errorf("failed to get run snapshots: %w", err)
	}

	fmt.Printf("Run %s\n", run.RunID)
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Verb:        %s\n", run.Verb)
	fmt.Printf("Policy:      %s\n", run.Policy)
	fmt.Printf("Started:     %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	if !run.FinishedAt.IsZero() {
		fmt.Printf("Finished:    %s\n", run.FinishedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("Items:       %d processed (%d applied, %d flagged, %d skipped, %d errored)\n",
		run.Processed, run.Applied, run.Flagged, run.Skipped, run.Errored)
	fmt.Printf("Spend:       $%.4f\n", run.TotalCost)
	if run.ReportPath != "" {
		fmt.Printf("Report:      %s\n", run.ReportPath)
	}

	if len(items) > 0 {
		fmt.Printf("\nItems (%d):\n", len(items))
		fmt.Println(strings.Repeat("-", 70))
		for i, item := range items {
			marker := string(item.Outcome)
			if item.Errored() {
				marker = "error"
			}
			fmt.Printf("%3d. [%-5s] %-14d %s\n", i+1, marker, item.ProductID, item.ProductTitle)
			if item.Errored() {
				fmt.Printf("     Error: [%s] %s\n", item.ErrorType, item.ErrorMessage)
			} else if item.Reason != "" {
				fmt.Printf("     %s (score %.2f, %s)\n", item.Reason, item.Score, item.Method)
			}
		}
	}

	if len(snaps) > 0 {
		fmt.Printf("\nRollback snapshots (%d):\n", len(snaps))
		fmt.Println(strings.Repeat("-", 70))
		for _, s := range snaps {
			fmt.Printf("%-14d %s\n", s.ProductID, s.Token)
		}
		fmt.Printf("\nTip: Use 'catops rollback --run %s --execute' to restore them\n", runID)
	}
	return nil
}

// CostsAction breaks down model spend per backend for one run.
func CostsAction(c *cli.Context) error {
	store, err := common.OpenStore(c)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer store.Close()

	runID, err := resolveRunID(c, store)
	if err != nil {
		return err
	}
	breakdown, err := store.LedgerForRun(runID)
	if err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}
	if len(breakdown) == 0 {
		fmt.Printf("No model spend recorded for run %s\n", runID)
		return nil
	}

	fmt.Printf("Spend for run %s\n", runID)
	fmt.Printf("%-12s %-8s %-14s %-14s %-10s\n",
		"Backend", "Calls", "Input units", "Output units", "Cost")
	fmt.Println(strings.Repeat("-", 62))
	backends := make([]string, 0, len(breakdown))
	for backend := range breakdown {
		backends = append(backends, backend)
	}
	sort.Strings(backends)
	var total float64
	for _, backend := range backends {
		t := breakdown[backend]
		fmt.Printf("%-12s %-8d %-14d %-14d $%-9.4f\n",
			backend, t.Calls, t.InputUnits, t.OutputUnits, t.Cost)
		total += t.Cost
	}
	fmt.Println(strings.Repeat("-", 62))
	fmt.Printf("%-50s $%-9.4f\n", "Total", total)
	return nil
}

// resolveRunID takes the run id from the first positional argument,
// falling back to the most recent run.
func resolveRunID(c *cli.Context, store runStore) (string, error) {
	if c.Args().Len() > 0 {
		return c.Args().First(), nil
	}
	runs, err := store.ListRuns(1)
	if err != nil {
		return "", fmt.Errorf("failed to find latest run: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no runs recorded yet")
		os.Exit(1)
	}
	return runs[0].RunID, nil
}

type runStore interface {
	ListRuns(limit int) ([]models.RunSummary, error)
}
