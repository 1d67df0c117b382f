// catops is an e-commerce operations toolkit: CLI verbs that combine
// cheap heuristics with tiered AI classification to audit and mutate
// product catalog data, with dry-run planning, cost tracking, and
// rollback on every mutating path.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	auditverb "github.com/oilslick/catops/internal/audit"
	"github.com/oilslick/catops/internal/curate"
	"github.com/oilslick/catops/internal/discount"
	"github.com/oilslick/catops/internal/images"
	"github.com/oilslick/catops/internal/rollback"
	"github.com/oilslick/catops/internal/runs"
	"github.com/oilslick/catops/internal/variants"
	"github.com/oilslick/catops/pkg/help"
)

func main() {
	app := &cli.App{
		Name:  "catops",
		Usage: "AI-assisted catalog operations for Shopify stores",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors"},
			&cli.StringFlag{Name: "config", Usage: "YAML config file with thresholds, pricing, and limits"},
			&cli.StringFlag{Name: "db", Usage: "path to the run database (default: next to the binary)"},
		},
		Commands: []*cli.Command{
			{
				Name:  "variants",
				Usage: "Detect and create hidden product variants",
				Subcommands: []*cli.Command{
					{
						Name:   "analyze",
						Usage:  "Classify single-variant products and plan option matrices",
						Action: variants.AnalyzeAction,
						Flags: append(classifyFlags(),
							&cli.StringFlag{Name: "report", Usage: "report file path (default: variant_report.json)"},
							&cli.BoolFlag{Name: "resume", Usage: "skip products already settled in the report"},
						),
					},
					{
						Name:   "apply",
						Usage:  "Replay a saved report's plans without new model calls",
						Action: variants.ApplyAction,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "report", Usage: "report file to replay (default: variant_report.json)"},
							&cli.BoolFlag{Name: "all", Usage: "include the needs-review queue, not just auto-apply"},
							&cli.BoolFlag{Name: "execute", Usage: "mutate the catalog (default: dry-run)"},
						},
					},
				},
			},
			{
				Name:   "curate",
				Usage:  "Hide wholesale listings and clean their titles",
				Action: curate.CurateAction,
				Flags: append(classifyFlags(),
					&cli.StringFlag{Name: "report", Usage: "report file path (default: curation_report.json)"},
					&cli.BoolFlag{Name: "resume", Usage: "skip products already settled in the report"},
				),
			},
			{
				Name:   "audit",
				Usage:  "Score listing quality 0-100 across the catalog (no model calls)",
				Action: auditverb.AuditAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "vendor", Usage: "only audit this vendor"},
					&cli.StringFlag{Name: "status", Usage: "only audit this status (active, draft, archived)"},
					&cli.IntFlag{Name: "bottom", Value: 20, Usage: "how many worst listings to print"},
					&cli.StringFlag{Name: "out", Usage: "write the full audit to this JSON file"},
				},
			},
			{
				Name:  "images",
				Usage: "Verify listing images against product copy",
				Subcommands: []*cli.Command{
					{
						Name:   "verify",
						Usage:  "Flag listings whose images do not depict what the copy sells",
						Action: images.VerifyAction,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "vendor", Usage: "only verify this vendor"},
							&cli.IntFlag{Name: "limit", Usage: "stop after this many candidates"},
							&cli.StringFlag{Name: "policy", Usage: "model routing policy: escalate, cheapest-first, accurate"},
							&cli.IntFlag{Name: "workers", Usage: "concurrent workers (default from config)"},
							&cli.StringFlag{Name: "report", Usage: "report file path (default: image_match_report.json)"},
							&cli.BoolFlag{Name: "resume", Usage: "skip products already settled in the report"},
						},
					},
				},
			},
			{
				Name:   "discount",
				Usage:  "Reprice a product batch, clamped to per-category ceilings",
				Action: discount.DiscountAction,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "percent", Required: true, Usage: "requested discount percent (1-100)"},
					&cli.StringFlag{Name: "vendor", Usage: "only discount this vendor"},
					&cli.StringFlag{Name: "type", Usage: "only discount this product type"},
					&cli.BoolFlag{Name: "execute", Usage: "mutate the catalog (default: dry-run)"},
				},
			},
			{
				Name:   "rollback",
				Usage:  "Restore pre-mutation snapshots captured by a previous run",
				Action: rollback.RollbackAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "run", Usage: "restore every snapshot of this run"},
					&cli.StringFlag{Name: "token", Usage: "restore a single snapshot by token"},
					&cli.BoolFlag{Name: "execute", Usage: "mutate the catalog (default: dry-run)"},
				},
			},
			{
				Name:  "runs",
				Usage: "Inspect recorded runs",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List recent runs, newest first",
						Action: runs.ListAction,
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Value: 20, Usage: "how many runs to list"},
						},
					},
					{
						Name:      "show",
						Usage:     "Show one run's items and snapshots",
						ArgsUsage: "[run-id]",
						Action:    runs.ShowAction,
					},
				},
			},
			{
				Name:      "costs",
				Usage:     "Break down model spend per backend for a run",
				ArgsUsage: "[run-id]",
				Action:    runs.CostsAction,
			},
			{
				Name:  "quickstart",
				Usage: "Print a YAML quickstart reference",
				Action: func(c *cli.Context) error {
					fmt.Print(help.ColdstartYAML)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// classifyFlags are shared by the verbs that run the classification
// pipeline.
func classifyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "vendor", Usage: "only consider this vendor"},
		&cli.IntFlag{Name: "limit", Usage: "stop after this many candidates"},
		&cli.StringFlag{Name: "policy", Usage: "model routing policy: escalate, cheapest-first, accurate"},
		&cli.IntFlag{Name: "workers", Usage: "concurrent workers (default from config)"},
		&cli.BoolFlag{Name: "execute", Usage: "mutate the catalog (default: dry-run)"},
	}
}
