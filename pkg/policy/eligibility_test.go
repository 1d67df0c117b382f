package policy

import (
	"testing"

	"github.com/oilslick/catops/models"
)

func TestExclusion(t *testing.T) {
	rules := models.Eligibility{
		ExcludedVendors: []string{"Dropship Direct", " Acme "},
		ExcludedTags:    []string{"final-sale", "consignment"},
	}

	tests := []struct {
		name        string
		product     models.Product
		wantExclude bool
		wantReason  string
	}{
		{
			name:        "vendor match",
			product:     models.Product{Vendor: "Dropship Direct"},
			wantExclude: true,
			wantReason:  "vendor excluded: Dropship Direct",
		},
		{
			name:        "vendor match is case-insensitive",
			product:     models.Product{Vendor: "dropship direct"},
			wantExclude: true,
			wantReason:  "vendor excluded: dropship direct",
		},
		{
			name:        "vendor rule whitespace is ignored",
			product:     models.Product{Vendor: "Acme"},
			wantExclude: true,
			wantReason:  "vendor excluded: Acme",
		},
		{
			name:        "tag match",
			product:     models.Product{Vendor: "Other", Tags: "new, Final-Sale, mug"},
			wantExclude: true,
			wantReason:  "tag excluded: final-sale",
		},
		{
			name:        "substring tag does not match",
			product:     models.Product{Vendor: "Other", Tags: "final-sale-soon"},
			wantExclude: false,
		},
		{
			name:        "clean product passes",
			product:     models.Product{Vendor: "Other", Tags: "mug, ceramic"},
			wantExclude: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			excluded, reason := Exclusion(tt.product, rules)
			if excluded != tt.wantExclude {
				t.Errorf("Exclusion excluded = %v, want %v", excluded, tt.wantExclude)
			}
			if tt.wantReason != "" && reason != tt.wantReason {
				t.Errorf("Exclusion reason = %q, want %q", reason, tt.wantReason)
			}
			if !tt.wantExclude && reason != "" {
				t.Errorf("Exclusion reason = %q, want empty for eligible product", reason)
			}
		})
	}
}

func TestExclusion_NoRules(t *testing.T) {
	excluded, reason := Exclusion(models.Product{Vendor: "Anyone"}, models.Eligibility{})
	if excluded || reason != "" {
		t.Errorf("Exclusion with no rules = (%v, %q), want (false, \"\")", excluded, reason)
	}
}
