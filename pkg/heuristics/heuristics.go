// Package heuristics scores products with cheap local rules before any
// model call. Rules are additive and ordered; a score is always clamped
// to [0, 1] so adding a matching keyword can only raise it.
package heuristics

import (
	"regexp"
	"strings"

	"github.com/oilslick/catops/models"
)

// Rule matches one signal against product fields. Field weights are
// additive; anti-signals carry negative weights. A field contributes
// once per rule no matter how often the pattern repeats, unless
// MinMatches requires more than one occurrence to count at all.
type Rule struct {
	Name       string
	Pattern    *regexp.Regexp
	MinMatches int // occurrences needed for the rule to fire; 0 means 1

	TitleWeight float64
	BodyWeight  float64
	TagWeight   float64
}

// Ruleset is an ordered rule list with its local verdict threshold.
type Ruleset struct {
	Name      string
	Rules     []Rule
	Threshold float64
}

var tagStripper = regexp.MustCompile(`<[^>]*>`)

// Score runs the ruleset over a product. Missing fields degrade to
// empty strings rather than failing.
func Score(p models.Product, rs Ruleset) models.HeuristicResult {
	title := strings.ToLower(p.Title)
	body := strings.ToLower(tagStripper.ReplaceAllString(p.BodyHTML, " "))
	tags := strings.ToLower(p.Tags)

	var score float64
	var signals []string

	for _, rule := range rs.Rules {
		need := rule.MinMatches
		if need < 1 {
			need = 1
		}
		for _, f := range []struct {
			name   string
			text   string
			weight float64
		}{
			{"title", title, rule.TitleWeight},
			{"body", body, rule.BodyWeight},
			{"tags", tags, rule.TagWeight},
		} {
			if f.weight == 0 || f.text == "" {
				continue
			}
			if len(rule.Pattern.FindAllStringIndex(f.text, need)) >= need {
				score += f.weight
				signals = append(signals, rule.Name+":"+f.name)
			}
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	return models.HeuristicResult{
		Score:   score,
		Signals: signals,
		Verdict: score >= rs.Threshold,
	}
}

// WholesaleRules flags bulk and wholesale listings that should not sit
// in the retail catalog. Title matches outweigh description matches.
func WholesaleRules() Ruleset {
	return Ruleset{
		Name:      "wholesale",
		Threshold: 0.5,
		Rules: []Rule{
			{
				Name:        "wholesale-term",
				Pattern:     regexp.MustCompile(`\b(?:wholesale|bulk)\b`),
				TitleWeight: 0.40, BodyWeight: 0.20, TagWeight: 0.25,
			},
			{
				Name:        "pack-term",
				Pattern:     regexp.MustCompile(`\bpacks?\b`),
				TitleWeight: 0.25, BodyWeight: 0.10,
			},
			{
				Name:        "numbered-pack",
				Pattern:     regexp.MustCompile(`\b\d+\s*-\s*pack\b`),
				TitleWeight: 0.35, BodyWeight: 0.15,
			},
			{
				Name:        "container-of",
				Pattern:     regexp.MustCompile(`\b(?:case|box|lot)\s+of\s+\d+\b`),
				TitleWeight: 0.35, BodyWeight: 0.15,
			},
			{
				Name:        "piece-count",
				Pattern:     regexp.MustCompile(`\b\d+\s*(?:pcs?|pieces?|ct|count)\b`),
				TitleWeight: 0.30, BodyWeight: 0.10,
			},
			{
				Name:        "dollar-title",
				Pattern:     regexp.MustCompile(`\$\d[\d.,]*`),
				TitleWeight: 0.15,
			},
			{
				Name:        "single-item",
				Pattern:     regexp.MustCompile(`\b(?:single|each)\b`),
				TitleWeight: -0.15, BodyWeight: -0.05,
			},
			{
				Name:        "sample-item",
				Pattern:     regexp.MustCompile(`\bsample\b`),
				TitleWeight: -0.20,
			},
		},
	}
}

// VariantRules flags products whose copy suggests variations the
// catalog record does not carry.
func VariantRules() Ruleset {
	return Ruleset{
		Name:      "variant-hints",
		Threshold: 0.5,
		Rules: []Rule{
			{
				Name:        "availability-phrase",
				Pattern:     regexp.MustCompile(`\b(?:available in|comes in|choose from|select (?:a |your )?(?:color|size|style))\b`),
				TitleWeight: 0.35, BodyWeight: 0.30,
			},
			{
				Name:       "color-list",
				Pattern:    regexp.MustCompile(`\b(?:red|blue|green|black|white|pink|purple|yellow|orange|gray|grey|silver|gold|brown|beige|navy|teal)\b`),
				MinMatches: 2,
				TitleWeight: 0.25, BodyWeight: 0.20,
			},
			{
				Name:       "size-run",
				Pattern:    regexp.MustCompile(`\b(?:xs|s|m|l|xl|xxl|xxxl|2xl|3xl)\b`),
				MinMatches: 2,
				TitleWeight: 0.25, BodyWeight: 0.20,
			},
			{
				Name:        "option-word",
				Pattern:     regexp.MustCompile(`\b(?:colors?|sizes?|styles?|variants?|options?)\b`),
				TitleWeight: 0.15, BodyWeight: 0.10, TagWeight: 0.10,
			},
			{
				Name:        "one-size",
				Pattern:     regexp.MustCompile(`\b(?:one size|one-size|single (?:color|size|style))\b`),
				TitleWeight: -0.25, BodyWeight: -0.15,
			},
		},
	}
}
