package policy

import (
	"fmt"
	"strings"

	"github.com/oilslick/catops/models"
)

// Exclusion checks a product against the configured eligibility rules.
// It runs before any scoring: an excluded product skips without a
// heuristic pass or model call. The reason names the matching rule so
// reports can distinguish exclusions from low-score skips.
func Exclusion(p models.Product, e models.Eligibility) (bool, string) {
	for _, vendor := range e.ExcludedVendors {
		if strings.EqualFold(strings.TrimSpace(vendor), strings.TrimSpace(p.Vendor)) {
			return true, fmt.Sprintf("vendor excluded: %s", p.Vendor)
		}
	}
	for _, tag := range e.ExcludedTags {
		if p.HasTag(tag) {
			return true, fmt.Sprintf("tag excluded: %s", tag)
		}
	}
	return false, ""
}
