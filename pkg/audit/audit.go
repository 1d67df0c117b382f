// Package audit scores listing quality 0-100 from catalog data alone:
// description depth and structure, SEO signals, media, variant
// completeness, and categorization. No model calls; an audit run
// costs nothing.
package audit

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pemistahl/lingua-go"

	"github.com/oilslick/catops/models"
)

const languageSampleWords = 80

var (
	wordPattern  = regexp.MustCompile(`\w+`)
	specsPattern = regexp.MustCompile(`(?i)(spec|dimension|material|size|feature|include)`)
)

// Breakdown itemizes one product's score by component.
type Breakdown struct {
	Content   int `json:"content"`
	Structure int `json:"structure"`
	SEO       int `json:"seo"`
	Media     int `json:"media"`
	Variants  int `json:"variants"`
	TypeTags  int `json:"type_tags"`
	Language  int `json:"language"`
	Total     int `json:"total"`
}

// Entry is one scored product, as written to the audit file.
type Entry struct {
	ProductID    int64     `json:"product_id"`
	Title        string    `json:"title"`
	Handle       string    `json:"handle"`
	Status       string    `json:"status"`
	ProductType  string    `json:"product_type"`
	Score        int       `json:"score"`
	WordCount    int       `json:"word_count"`
	ImageCount   int       `json:"image_count"`
	VariantCount int       `json:"variant_count"`
	Breakdown    Breakdown `json:"breakdown"`
}

// Scorer scores products. Build one per run; the language detector is
// expensive to construct.
type Scorer struct {
	detector lingua.LanguageDetector
}

// NewScorer builds a scorer with a detector over the languages a
// mixed-vendor catalog plausibly contains.
func NewScorer() *Scorer {
	languages := []lingua.Language{
		lingua.English,
		lingua.Spanish,
		lingua.French,
		lingua.German,
		lingua.Italian,
		lingua.Portuguese,
	}
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(languages...).
		Build()
	return &Scorer{detector: detector}
}

// Score rates one product 0-100.
func (s *Scorer) Score(p *models.Product) Entry {
	text := ExtractText(p.BodyHTML)

	b := Breakdown{
		Content:   contentScore(text.WordCount),
		Structure: structureScore(text),
		SEO:       seoScore(p, text),
		Media:     mediaScore(len(p.Images)),
		Variants:  variantScore(p.Variants),
		TypeTags:  typeTagScore(p),
		Language:  s.languagePenalty(text),
	}
	total := b.Content + b.Structure + b.SEO + b.Media + b.Variants + b.TypeTags + b.Language
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}
	b.Total = total

	return Entry{
		ProductID:    p.ID,
		Title:        p.Title,
		Handle:       p.Handle,
		Status:       p.Status,
		ProductType:  p.ProductType,
		Score:        total,
		WordCount:    text.WordCount,
		ImageCount:   len(p.Images),
		VariantCount: len(p.Variants),
		Breakdown:    b,
	}
}

// contentScore rewards description depth, up to 30.
func contentScore(wordCount int) int {
	switch {
	case wordCount >= 150:
		return 30
	case wordCount >= 80:
		return 20
	case wordCount >= 40:
		return 10
	case wordCount >= 15:
		return 5
	}
	return 0
}

// structureScore rewards headings, lists, and multi-paragraph copy, up
// to 20.
func structureScore(text PageText) int {
	score := 0
	if text.Headings > 0 {
		score += 8
	}
	if text.Lists > 0 {
		score += 7
	}
	if text.Paragraphs >= 2 {
		score += 5
	}
	return score
}

// seoScore rewards search-friendly titles and copy, up to 15. Dollar
// amounts in titles and spec tables masquerading as descriptions cost
// points.
func seoScore(p *models.Product, text PageText) int {
	score := 0
	if strings.HasPrefix(p.Title, "$") {
		score -= 5
	}
	if n := len(p.Title); n >= 20 && n <= 70 {
		score += 5
	}

	bodyLower := strings.ToLower(text.Plain)
	hits := 0
	for _, w := range titleWords(p.Title) {
		if strings.Contains(bodyLower, w) {
			hits++
		}
	}
	switch {
	case hits >= 3:
		score += 5
	case hits >= 1:
		score += 3
	}

	if text.TableCells > 10 && text.WordCount < 50 {
		score -= 5
	}
	if specsPattern.MatchString(text.Plain) {
		score += 5
	}
	return score
}

// titleWords returns the distinct lowercased title words long enough
// to be meaningful search keywords.
func titleWords(title string) []string {
	seen := make(map[string]bool)
	var words []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(title), -1) {
		if len(w) > 3 && !seen[w] {
			seen[w] = true
			words = append(words, w)
		}
	}
	return words
}

// mediaScore rewards image coverage, up to 15.
func mediaScore(imageCount int) int {
	switch {
	case imageCount >= 3:
		return 15
	case imageCount >= 2:
		return 10
	case imageCount >= 1:
		return 5
	}
	return 0
}

// variantScore rewards named variants with complete prices, up to 10.
func variantScore(variants []models.Variant) int {
	if len(variants) == 0 {
		return 0
	}
	score := 0
	for i := range variants {
		if !variants[i].DefaultVariant() {
			score += 5
			break
		}
	}
	priced := true
	for i := range variants {
		if variants[i].Price == "" {
			priced = false
			break
		}
	}
	if priced {
		score += 5
	}
	return score
}

// typeTagScore rewards categorization, up to 10.
func typeTagScore(p *models.Product) int {
	score := 0
	if p.ProductType != "" {
		score += 5
	}
	switch tags := len(p.TagList()); {
	case tags >= 3:
		score += 5
	case tags >= 1:
		score += 3
	}
	return score
}

// languagePenalty costs 5 points when the description reads as a
// non-English language. Short texts carry too little signal to judge.
func (s *Scorer) languagePenalty(text PageText) int {
	words := strings.Fields(text.Plain)
	if len(words) < 10 {
		return 0
	}
	if len(words) > languageSampleWords {
		words = words[:languageSampleWords]
	}
	lang, ok := s.detector.DetectLanguageOf(strings.Join(words, " "))
	if ok && lang != lingua.English {
		return -5
	}
	return 0
}

// Bracket labels, worst to best.
var BracketLabels = []string{"0-20", "21-40", "41-60", "61-80", "81-100"}

// BracketIndex maps a score to its distribution bracket.
func BracketIndex(score int) int {
	switch {
	case score <= 20:
		return 0
	case score <= 40:
		return 1
	case score <= 60:
		return 2
	case score <= 80:
		return 3
	}
	return 4
}

// Distribution counts entries per bracket.
func Distribution(entries []Entry) [5]int {
	var counts [5]int
	for i := range entries {
		counts[BracketIndex(entries[i].Score)]++
	}
	return counts
}

// SortByScore orders entries worst first, title as tiebreak so output
// is stable run to run.
func SortByScore(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score < entries[j].Score
		}
		return entries[i].Title < entries[j].Title
	})
}

// Bottom returns the n worst entries with the given status, assuming
// entries are already sorted worst first. Empty status matches all.
func Bottom(entries []Entry, n int, status string) []Entry {
	var out []Entry
	for i := range entries {
		if status != "" && entries[i].Status != status {
			continue
		}
		out = append(out, entries[i])
		if len(out) == n {
			break
		}
	}
	return out
}

// Average is the mean score across entries.
func Average(entries []Entry) float64 {
	if len(entries) == 0 {
		return 0
	}
	sum := 0
	for i := range entries {
		sum += entries[i].Score
	}
	return float64(sum) / float64(len(entries))
}
