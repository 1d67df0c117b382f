package plan

import (
	"reflect"
	"strings"
	"testing"

	"github.com/oilslick/catops/models"
)

func actDecision() models.Decision {
	return models.Decision{Outcome: models.OutcomeAct, Method: models.MethodHybrid}
}

func defaultLimits() models.VariantLimits {
	return models.DefaultConfig().Variants
}

func singleVariantProduct() models.Product {
	return models.Product{
		ID:    101,
		Title: "Ceramic Mug",
		Variants: []models.Variant{{
			ID:               9001,
			Title:            "Default Title",
			Price:            "12.50",
			SKU:              "MUG",
			Taxable:          true,
			RequiresShipping: true,
			Grams:            300,
		}},
	}
}

func TestBuildVariants_MatrixFromOptions(t *testing.T) {
	opts := []models.OptionSet{
		{Name: "Color", Values: []string{"Red", "Blue"}},
		{Name: "Size", Values: []string{"S", "M"}},
	}

	pl := BuildVariants(singleVariantProduct(), actDecision(), opts, defaultLimits())

	if pl.Action != models.ActionVariantSet {
		t.Fatalf("action = %s, want %s (reason %q)", pl.Action, models.ActionVariantSet, pl.Reason)
	}
	if !pl.LimitsChecked {
		t.Error("LimitsChecked = false, want true")
	}
	if pl.Variant == nil {
		t.Fatal("variant payload is nil")
	}
	if got := len(pl.Variant.Variants); got != 4 {
		t.Fatalf("len(variants) = %d, want 4", got)
	}

	// First axis varies slowest.
	wantTitles := []string{"Red / S", "Red / M", "Blue / S", "Blue / M"}
	for i, want := range wantTitles {
		if pl.Variant.Variants[i].Title != want {
			t.Errorf("variants[%d].Title = %q, want %q", i, pl.Variant.Variants[i].Title, want)
		}
	}

	first := pl.Variant.Variants[0]
	if first.SKU != "MUG-RED-S" {
		t.Errorf("SKU = %q, want MUG-RED-S", first.SKU)
	}
	if first.Price != "12.50" || !first.Taxable || !first.RequiresShipping || first.Grams != 300 {
		t.Errorf("inherited fields = %+v, want price/tax/shipping/weight from the source variant", first)
	}
	if first.InheritedFrom != 9001 {
		t.Errorf("InheritedFrom = %d, want 9001", first.InheritedFrom)
	}
	if first.Option1 != "Red" || first.Option2 != "S" {
		t.Errorf("options = %q/%q, want Red/S", first.Option1, first.Option2)
	}
}

func TestBuildVariants_Idempotent(t *testing.T) {
	opts := []models.OptionSet{{Name: "Size", Values: []string{"S", "M", "L"}}}

	a := BuildVariants(singleVariantProduct(), actDecision(), opts, defaultLimits())
	b := BuildVariants(singleVariantProduct(), actDecision(), opts, defaultLimits())

	if !reflect.DeepEqual(a, b) {
		t.Errorf("plans differ across identical calls:\n%+v\n%+v", a, b)
	}
}

func TestBuildVariants_AlreadyConfigured(t *testing.T) {
	p := singleVariantProduct()
	p.Options = []models.Option{{Name: "color", Values: []string{"blue", "red"}}}
	opts := []models.OptionSet{{Name: "Color", Values: []string{"Red", "Blue"}}}

	pl := BuildVariants(p, actDecision(), opts, defaultLimits())

	if pl.Action != models.ActionNone {
		t.Fatalf("action = %s, want none", pl.Action)
	}
	if !strings.Contains(pl.Reason, "already configured") {
		t.Errorf("reason = %q, want already-configured", pl.Reason)
	}
}

func TestBuildVariants_OptionAxisCap(t *testing.T) {
	opts := []models.OptionSet{
		{Name: "Color", Values: []string{"Red"}},
		{Name: "Size", Values: []string{"S"}},
		{Name: "Material", Values: []string{"Oak"}},
		{Name: "Finish", Values: []string{"Matte"}},
	}

	pl := BuildVariants(singleVariantProduct(), actDecision(), opts, defaultLimits())

	if pl.Action != models.ActionNone {
		t.Fatalf("action = %s, want none", pl.Action)
	}
	for _, want := range []string{"4", "cap of 3"} {
		if !strings.Contains(pl.Reason, want) {
			t.Errorf("reason = %q, want it to contain %q", pl.Reason, want)
		}
	}
}

func TestBuildVariants_MatrixCap(t *testing.T) {
	five := []string{"A", "B", "C", "D", "E"}
	opts := []models.OptionSet{
		{Name: "Color", Values: five},
		{Name: "Size", Values: five},
		{Name: "Material", Values: five},
	}

	pl := BuildVariants(singleVariantProduct(), actDecision(), opts, defaultLimits())

	if pl.Action != models.ActionNone {
		t.Fatalf("action = %s, want none", pl.Action)
	}
	for _, want := range []string{"125", "cap of 100"} {
		if !strings.Contains(pl.Reason, want) {
			t.Errorf("reason = %q, want it to contain %q", pl.Reason, want)
		}
	}
}

func TestBuildVariants_NonActDecision(t *testing.T) {
	opts := []models.OptionSet{{Name: "Size", Values: []string{"S", "M"}}}
	d := models.Decision{Outcome: models.OutcomeFlag}

	pl := BuildVariants(singleVariantProduct(), d, opts, defaultLimits())

	if pl.Action != models.ActionNone {
		t.Errorf("action = %s, want none for a flag decision", pl.Action)
	}
}

func TestBuildVariants_ExistingMultiVariantProduct(t *testing.T) {
	p := singleVariantProduct()
	p.Variants = append(p.Variants, models.Variant{ID: 9002, Title: "Large", Price: "14.00"})
	opts := []models.OptionSet{{Name: "Size", Values: []string{"S", "M"}}}

	pl := BuildVariants(p, actDecision(), opts, defaultLimits())

	if pl.Action != models.ActionNone {
		t.Fatalf("action = %s, want none", pl.Action)
	}
	if !strings.Contains(pl.Reason, "2 variants") {
		t.Errorf("reason = %q, want variant count", pl.Reason)
	}
}

func TestSKUSuffix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Small / Blue", "SMALL-BLUE"},
		{"12 oz", "12-OZ"},
		{" Blue ", "BLUE"},
		{"Extra Large Wide", "EXTRA-LARG"},
		{"Café Noir", "CAF-NOIR"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := SKUSuffix(tt.in); got != tt.want {
			t.Errorf("SKUSuffix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVariantSKU(t *testing.T) {
	if got := VariantSKU("MUG", []string{"Red", "Small"}); got != "MUG-RED-SMALL" {
		t.Errorf("VariantSKU = %q, want MUG-RED-SMALL", got)
	}
	if got := VariantSKU("", []string{"Red"}); got != "RED" {
		t.Errorf("VariantSKU with empty base = %q, want RED", got)
	}
}
