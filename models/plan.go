package models

// Action is the kind of mutation a plan describes.
type Action string

const (
	ActionNone       Action = "none"
	ActionVariantSet Action = "variant-set"
	ActionCuration   Action = "curation"
	ActionDiscount   Action = "discount"
	ActionRestore    Action = "restore"
)

// OptionSet is a proposed option axis with its values, in order.
type OptionSet struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// PlannedVariant is one variant row to be created. Price, tax,
// shipping, and weight are inherited from the variant it derives from.
type PlannedVariant struct {
	Title            string `json:"title"`
	SKU              string `json:"sku"`
	Price            string `json:"price"`
	Option1          string `json:"option1,omitempty"`
	Option2          string `json:"option2,omitempty"`
	Option3          string `json:"option3,omitempty"`
	Taxable          bool   `json:"taxable"`
	RequiresShipping bool   `json:"requires_shipping"`
	Grams            int    `json:"grams"`
	InheritedFrom    int64  `json:"inherited_from,omitempty"` // source variant id
}

// VariantPayload is the typed body of a variant-set plan.
type VariantPayload struct {
	Options  []OptionSet      `json:"options"`
	Variants []PlannedVariant `json:"variants"`
}

// CurationPayload is the typed body of a curation plan: target status
// and cleaned title.
type CurationPayload struct {
	Status string `json:"status"`
	Title  string `json:"title"`
}

// PlannedPrice is one variant reprice within a discount plan.
type PlannedPrice struct {
	VariantID int64  `json:"variant_id"`
	Old       string `json:"old"`
	New       string `json:"new"`
}

// DiscountPayload is the typed body of a discount plan. Percent is the
// effective (possibly clamped) whole-percent discount as a decimal string.
type DiscountPayload struct {
	Requested string         `json:"requested"`
	Percent   string         `json:"percent"`
	Prices    []PlannedPrice `json:"prices"`
}

// RestorePayload is the typed body of a rollback plan: the exact field
// map captured in a snapshot before the mutation being undone.
type RestorePayload struct {
	Token  string         `json:"token"`
	Fields map[string]any `json:"fields"`
}

// Plan is an auditable description of intended changes for one product.
// Exactly one payload matches Action; Action none carries only a Reason.
// A limit breach never truncates: the plan degrades to Action none and
// Reason names the limit with computed and allowed values.
type Plan struct {
	ProductID     int64            `json:"product_id"`
	ProductTitle  string           `json:"product_title"`
	Action        Action           `json:"action"`
	Changes       []string         `json:"changes,omitempty"` // human-readable deltas, ordered
	Variant       *VariantPayload  `json:"variant,omitempty"`
	Curation      *CurationPayload `json:"curation,omitempty"`
	Discount      *DiscountPayload `json:"discount,omitempty"`
	Restore       *RestorePayload  `json:"restore,omitempty"`
	LimitsChecked bool             `json:"limits_checked"`
	Reason        string           `json:"reason,omitempty"`
}

// Mutates reports whether applying the plan would change the catalog.
func (p *Plan) Mutates() bool {
	return p != nil && p.Action != ActionNone
}

// ExecutionResult is the outcome of applying one plan.
type ExecutionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`

	// ErrorType classifies a failure as transient or permanent.
	// Empty on success.
	ErrorType string `json:"error_type,omitempty"`

	// RollbackToken identifies the pre-mutation snapshot. Empty when
	// nothing was persisted (dry-run, no-op, or snapshot failure).
	RollbackToken string `json:"rollback_token,omitempty"`
}
