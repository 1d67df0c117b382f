// Package plan converts accepted decisions and fresh catalog state into
// auditable mutation plans. Builders are pure functions: identical
// inputs yield structurally identical plans, a current state already at
// the desired end-state yields Action none, and a breached limit
// degrades the plan to Action none with the computed and allowed values
// in the reason, never a silent truncation.
package plan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oilslick/catops/models"
)

const skuSuffixMax = 10

var skuSeparators = regexp.MustCompile(`[^A-Z0-9]+`)

// BuildVariants turns a positive variant decision into a variant-set
// plan: one option matrix plus the full combination list, with price,
// tax, shipping, and weight inherited from the product's existing
// variant.
func BuildVariants(p models.Product, d models.Decision, opts []models.OptionSet, limits models.VariantLimits) models.Plan {
	pl := models.Plan{
		ProductID:    p.ID,
		ProductTitle: p.Title,
		Action:       models.ActionNone,
	}

	if d.Outcome != models.OutcomeAct {
		pl.Reason = fmt.Sprintf("decision outcome is %s, not act", d.Outcome)
		return pl
	}

	opts = usableOptions(opts)
	if len(opts) == 0 {
		pl.Reason = "model proposed no usable option sets"
		return pl
	}

	pl.LimitsChecked = true
	if len(opts) > limits.MaxOptions {
		pl.Reason = fmt.Sprintf("%d option axes exceed the cap of %d", len(opts), limits.MaxOptions)
		return pl
	}
	combos := 1
	for _, o := range opts {
		combos *= len(o.Values)
	}
	if combos > limits.MaxVariants {
		pl.Reason = fmt.Sprintf("variant matrix of %d exceeds the cap of %d", combos, limits.MaxVariants)
		return pl
	}

	if len(p.Variants) > 1 {
		pl.Reason = fmt.Sprintf("product already has %d variants", len(p.Variants))
		return pl
	}
	if optionsConfigured(p, opts) {
		pl.Reason = "options already configured"
		return pl
	}

	var source models.Variant
	if len(p.Variants) > 0 {
		source = p.Variants[0]
	}
	if source.Price == "" {
		source.Price = "0.00"
	}

	pl.Action = models.ActionVariantSet
	pl.Variant = &models.VariantPayload{
		Options:  opts,
		Variants: expandMatrix(opts, source),
	}
	for _, o := range opts {
		pl.Changes = append(pl.Changes, fmt.Sprintf("add option %q: %s", o.Name, strings.Join(o.Values, ", ")))
	}
	pl.Changes = append(pl.Changes, fmt.Sprintf("replace single variant with %d combinations", combos))
	return pl
}

// usableOptions drops axes without a name or values. Single-value axes
// are kept: they carry no choice on their own but still label every
// combination.
func usableOptions(opts []models.OptionSet) []models.OptionSet {
	var out []models.OptionSet
	for _, o := range opts {
		if strings.TrimSpace(o.Name) == "" || len(o.Values) == 0 {
			continue
		}
		out = append(out, o)
	}
	return out
}

// optionsConfigured reports whether the product's live options already
// express every proposed axis, name and values compared
// case-insensitively.
func optionsConfigured(p models.Product, opts []models.OptionSet) bool {
	for _, want := range opts {
		found := false
		for _, have := range p.Options {
			if strings.EqualFold(have.Name, want.Name) && sameValues(have.Values, want.Values) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sameValues(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, v := range a {
		seen[strings.ToLower(strings.TrimSpace(v))]++
	}
	for _, v := range b {
		key := strings.ToLower(strings.TrimSpace(v))
		if seen[key] == 0 {
			return false
		}
		seen[key]--
	}
	return true
}

// expandMatrix produces the full combination list in Shopify order:
// the first axis varies slowest.
func expandMatrix(opts []models.OptionSet, source models.Variant) []models.PlannedVariant {
	combos := cartesian(opts)
	out := make([]models.PlannedVariant, 0, len(combos))
	for _, values := range combos {
		v := models.PlannedVariant{
			Title:            strings.Join(values, " / "),
			SKU:              VariantSKU(source.SKU, values),
			Price:            source.Price,
			Taxable:          source.Taxable,
			RequiresShipping: source.RequiresShipping,
			Grams:            source.Grams,
			InheritedFrom:    source.ID,
		}
		if len(values) > 0 {
			v.Option1 = values[0]
		}
		if len(values) > 1 {
			v.Option2 = values[1]
		}
		if len(values) > 2 {
			v.Option3 = values[2]
		}
		out = append(out, v)
	}
	return out
}

func cartesian(opts []models.OptionSet) [][]string {
	combos := [][]string{{}}
	for _, o := range opts {
		next := make([][]string, 0, len(combos)*len(o.Values))
		for _, c := range combos {
			for _, v := range o.Values {
				row := make([]string, len(c), len(c)+1)
				copy(row, c)
				next = append(next, append(row, v))
			}
		}
		combos = next
	}
	return combos
}

// VariantSKU joins the base SKU with one sanitized suffix per option
// value. An empty base yields the suffixes alone.
func VariantSKU(base string, values []string) string {
	parts := make([]string, 0, len(values)+1)
	if base != "" {
		parts = append(parts, base)
	}
	for _, v := range values {
		if s := SKUSuffix(v); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "-")
}

// SKUSuffix derives a SKU fragment from an option value: uppercased,
// runs of non-alphanumerics collapsed to single dashes, trimmed, and
// capped at 10 characters.
func SKUSuffix(value string) string {
	s := strings.ToUpper(strings.TrimSpace(value))
	s = skuSeparators.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > skuSuffixMax {
		s = strings.Trim(s[:skuSuffixMax], "-")
	}
	return s
}
