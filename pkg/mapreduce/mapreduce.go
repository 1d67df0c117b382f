// Package mapreduce aggregates per-product keyword frequencies into
// catalog-wide counts. Map runs inside the audit scan per product;
// Reduce folds the intermediate maps after the scan settles.
package mapreduce

import "github.com/oilslick/catops/pkg/analytics"

// Map generates a keyword frequency map for one product's copy.
func Map(content string, a *analytics.Analytics) map[string]int {
	return a.WordFrequency(content)
}

// Reduce aggregates a slice of keyword frequency maps into one map.
func Reduce(intermediate []map[string]int) map[string]int {
	final := make(map[string]int)
	for _, counts := range intermediate {
		for word, count := range counts {
			final[word] += count
		}
	}
	return final
}
