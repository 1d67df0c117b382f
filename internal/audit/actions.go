// Package audit implements the listing-quality verb: score every
// listing 0-100 from catalog data alone and report the distribution,
// the worst offenders, and the vocabulary weak listings share.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/oilslick/catops/internal/common"
	"github.com/oilslick/catops/models"
	"github.com/oilslick/catops/pkg/analytics"
	"github.com/oilslick/catops/pkg/audit"
	"github.com/oilslick/catops/pkg/mapreduce"
	"github.com/oilslick/catops/pkg/report"
	"github.com/oilslick/catops/pkg/shopify"
)

// Listings scoring at or below this are "weak" for keyword analysis.
const weakScoreCutoff = 60

// auditFile is the JSON artifact an audit run writes.
type auditFile struct {
	Timestamp time.Time      `json:"timestamp"`
	Total     int            `json:"total"`
	Average   float64        `json:"average"`
	Brackets  map[string]int `json:"brackets"`
	Entries   []audit.Entry  `json:"entries"`
}

// AuditAction scans the catalog and scores listing quality. No model
// calls happen here; an audit run is free.
func AuditAction(c *cli.Context) error {
	logger := common.Logger(c)
	ctx := c.Context

	catalog, err := common.Catalog(logger)
	if err != nil {
		return err
	}

	scorer := audit.NewScorer()
	wordAnalytics := &analytics.Analytics{}

	var entries []audit.Entry
	var weakWordMaps []map[string]int
	opts := shopify.ListOptions{
		Vendor: c.String("vendor"),
		Status: c.String("status"),
	}
	err = catalog.EachPage(ctx, opts, func(page []models.Product) error {
		for i := range page {
			entry := scorer.Score(&page[i])
			entries = append(entries, entry)
			if entry.Score <= weakScoreCutoff {
				text := page[i].Title + " " + audit.ExtractText(page[i].BodyHTML).Plain
				weakWordMaps = append(weakWordMaps, mapreduce.Map(text, wordAnalytics))
			}
		}
		logger.Info("scored page", "total_scored", len(entries))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan catalog: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No products matched the audit filters")
		return nil
	}

	audit.SortByScore(entries)
	dist := audit.Distribution(entries)

	fmt.Printf("Listing quality audit: %d products, average score %.1f\n",
		len(entries), audit.Average(entries))
	fmt.Println(strings.Repeat("=", 70))
	perBlock := len(entries)/50 + 1
	for i, label := range audit.BracketLabels {
		fmt.Printf("%-8s %5d  %s\n", label, dist[i], report.Bar(dist[i], perBlock))
	}

	bottom := c.Int("bottom")
	if bottom <= 0 {
		bottom = 20
	}
	worst := audit.Bottom(entries, bottom, c.String("status"))
	fmt.Printf("\nBottom %d listings:\n", len(worst))
	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("%-6s %-14s %-40s %s\n", "Score", "ID", "Title", "Words")
	for _, e := range worst {
		fmt.Printf("%-6d %-14d %-40s %d\n",
			e.Score, e.ProductID, report.Truncate(e.Title, 40), e.WordCount)
	}

	if len(weakWordMaps) > 0 {
		fmt.Printf("\nCommon keywords across %d weak listings (tag candidates):\n", len(weakWordMaps))
		fmt.Println(strings.Repeat("-", 70))
		mapreduce.PrintTopKeywords(mapreduce.Reduce(weakWordMaps), 15)
	}

	if out := c.String("out"); out != "" {
		if err := writeAuditFile(out, entries, dist); err != nil {
			return err
		}
		fmt.Printf("\nAudit saved to %s\n", out)
	}
	return nil
}

func writeAuditFile(path string, entries []audit.Entry, dist [5]int) error {
	brackets := make(map[string]int, len(audit.BracketLabels))
	for i, label := range audit.BracketLabels {
		brackets[label] = dist[i]
	}
	data, err := json.MarshalIndent(auditFile{
		Timestamp: time.Now().UTC(),
		Total:     len(entries),
		Average:   audit.Average(entries),
		Brackets:  brackets,
		Entries:   entries,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode audit file: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write audit file: %w", err)
	}
	return nil
}
