// Package rollback implements the restore verb: re-apply the
// pre-mutation snapshots a previous run captured, undoing its changes.
package rollback

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/oilslick/catops/internal/common"
	"github.com/oilslick/catops/pkg/db"
	"github.com/oilslick/catops/pkg/executor"
)

// RollbackAction restores the pre-mutation snapshots of a run, either
// all of them or a single --token. Restores flow through the same
// apply path as any other plan.
func RollbackAction(c *cli.Context) error {
	logger := common.Logger(c)
	ctx := c.Context

	catalog, err := common.Catalog(logger)
	if err != nil {
		return err
	}
	store, err := common.OpenStore(c)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer store.Close()

	var snaps []db.Snapshot
	switch {
	case c.IsSet("token"):
		snap, err := store.GetSnapshot(c.String("token"))
		if err != nil {
			return err
		}
		snaps = []db.Snapshot{*snap}
	case c.IsSet("run"):
		snaps, err = store.SnapshotsForRun(c.String("run"))
		if err != nil {
			return err
		}
	default:
		fmt.Fprintln(os.Stderr, "Error: rollback needs --run or --token")
		os.Exit(1)
	}
	if len(snaps) == 0 {
		fmt.Println("No rollback snapshots found")
		return nil
	}

	mode := executor.ModeDryRun
	if c.Bool("execute") {
		mode = executor.ModeRollback
	}
	exec := executor.New(catalog, store, uuid.NewString(), logger)

	fmt.Printf("Restoring %d snapshots (mode: %s)\n", len(snaps), mode)
	fmt.Println(strings.Repeat("-", 70))

	restored, failed := 0, 0
	for i := range snaps {
		res := exec.Apply(ctx, executor.RestorePlan(&snaps[i]), mode)
		status := "ok"
		if res.Success {
			restored++
		} else {
			failed++
			status = "FAILED"
		}
		fmt.Printf("%-8s %-14d %s\n", status, snaps[i].ProductID, res.Message)
	}

	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("Restored: %d, Failed: %d\n", restored, failed)
	if mode == executor.ModeDryRun {
		fmt.Println("Dry run; rerun with --execute to restore")
	}
	return nil
}
