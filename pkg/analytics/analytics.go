// Package analytics computes word frequencies over product copy. The
// audit verb aggregates these across the catalog to surface the
// vocabulary low-scoring listings lean on, which is where tag and
// collection candidates come from.
package analytics

import (
	"regexp"
	"sort"
	"strings"
)

type Analytics struct{}

// stopwords are English function words plus the commerce boilerplate
// that dominates product descriptions without describing the product.
var stopwords = map[string]struct{}{
	"a": {}, "about": {}, "after": {}, "all": {}, "also": {}, "an": {},
	"and": {}, "any": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"been": {}, "before": {}, "best": {}, "both": {}, "but": {}, "buy": {},
	"by": {}, "can": {}, "com": {}, "comes": {}, "day": {}, "days": {},
	"design": {}, "designed": {}, "do": {}, "does": {}, "each": {},
	"easy": {}, "for": {}, "free": {}, "from": {}, "get": {}, "great": {},
	"has": {}, "have": {}, "high": {}, "how": {}, "ideal": {}, "if": {},
	"in": {}, "includes": {}, "including": {}, "into": {}, "is": {},
	"it": {}, "its": {}, "just": {}, "made": {}, "make": {}, "makes": {},
	"more": {}, "most": {}, "new": {}, "no": {}, "not": {}, "of": {},
	"off": {}, "on": {}, "one": {}, "only": {}, "or": {}, "order": {},
	"our": {}, "out": {}, "over": {}, "per": {}, "perfect": {},
	"please": {}, "premium": {}, "product": {}, "products": {},
	"quality": {}, "sale": {}, "shipping": {}, "so": {}, "some": {},
	"such": {}, "than": {}, "that": {}, "the": {}, "their": {},
	"them": {}, "these": {}, "they": {}, "this": {}, "to": {}, "up": {},
	"use": {}, "used": {}, "very": {}, "was": {}, "we": {}, "well": {},
	"when": {}, "which": {}, "will": {}, "with": {}, "you": {},
	"your": {},
}

var tokenPattern = regexp.MustCompile(`[a-z][a-z'-]*`)

// WordFrequency counts meaningful words in one product's copy.
// Tokens are lowercased; stopwords, very short tokens, and anything
// with digits (quantities, SKUs, dimensions) never count.
func (a *Analytics) WordFrequency(content string) map[string]int {
	counts := make(map[string]int)
	for _, word := range tokenPattern.FindAllString(strings.ToLower(content), -1) {
		word = strings.Trim(word, "'-")
		if len(word) < 3 {
			continue
		}
		if _, skip := stopwords[word]; skip {
			continue
		}
		counts[word]++
	}
	return counts
}

type wordCount struct {
	Word  string
	Count int
}

// TopNWords returns the n most frequent meaningful words of one text,
// most frequent first.
func (a *Analytics) TopNWords(text string, n int) []string {
	frequencies := a.WordFrequency(text)

	counts := make([]wordCount, 0, len(frequencies))
	for k, v := range frequencies {
		counts = append(counts, wordCount{k, v})
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Word < counts[j].Word
	})

	if n > len(counts) {
		n = len(counts)
	}
	topN := make([]string, n)
	for i := 0; i < n; i++ {
		topN[i] = counts[i].Word
	}
	return topN
}
