// Package models defines data structures shared across catalog operations.
package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Product is a catalog item as returned by the Shopify Admin REST API.
// Fields mirror the wire format; tags arrive as a comma-separated string.
// A Product is never mutated after fetch; planned changes are expressed
// as a Plan against it.
type Product struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	BodyHTML    string    `json:"body_html"`
	Vendor      string    `json:"vendor"`
	ProductType string    `json:"product_type"`
	Handle      string    `json:"handle"`
	Status      string    `json:"status"` // active, draft, archived
	Tags        string    `json:"tags"`
	Variants    []Variant `json:"variants"`
	Options     []Option  `json:"options"`
	Images      []Image   `json:"images"`
	UpdatedAt   string    `json:"updated_at"`
}

// Variant is a purchasable variation of a product.
type Variant struct {
	ID                int64  `json:"id"`
	ProductID         int64  `json:"product_id"`
	Title             string `json:"title"`
	Price             string `json:"price"`
	CompareAtPrice    string `json:"compare_at_price,omitempty"`
	SKU               string `json:"sku"`
	Position          int    `json:"position"`
	InventoryItemID   int64  `json:"inventory_item_id"`
	InventoryQuantity int    `json:"inventory_quantity"`
	Option1           string `json:"option1,omitempty"`
	Option2           string `json:"option2,omitempty"`
	Option3           string `json:"option3,omitempty"`
	Taxable           bool   `json:"taxable"`
	RequiresShipping  bool   `json:"requires_shipping"`
	Grams             int    `json:"grams"`
}

// Option is a named axis of variation (Color, Size) with its known values.
type Option struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Image is a product image reference.
type Image struct {
	ID       int64  `json:"id"`
	Src      string `json:"src"`
	Position int    `json:"position"`
}

// TagList splits the comma-separated tag string into trimmed tags.
func (p *Product) TagList() []string {
	if strings.TrimSpace(p.Tags) == "" {
		return nil
	}
	parts := strings.Split(p.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, t := range parts {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// HasTag reports whether the product carries the tag, case-insensitively.
func (p *Product) HasTag(tag string) bool {
	for _, t := range p.TagList() {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// PriceDecimal parses a variant price. Empty or malformed prices
// come back as zero with ok=false.
func (v *Variant) PriceDecimal() (decimal.Decimal, bool) {
	if strings.TrimSpace(v.Price) == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(v.Price)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// OptionValues returns the variant's option values in position order,
// skipping empty slots.
func (v *Variant) OptionValues() []string {
	var vals []string
	for _, s := range []string{v.Option1, v.Option2, v.Option3} {
		if s != "" {
			vals = append(vals, s)
		}
	}
	return vals
}

// DefaultVariant reports whether the variant is Shopify's placeholder
// single variant ("Default Title").
func (v *Variant) DefaultVariant() bool {
	return v.Title == "Default Title" || v.Option1 == "Default Title"
}

// ToSearchText concatenates the fields heuristic rules scan: title,
// tags, product type, and the raw description. Missing fields degrade
// to empty strings.
func (p *Product) ToSearchText() string {
	var sb strings.Builder
	sb.WriteString(p.Title)
	sb.WriteString("\n")
	sb.WriteString(p.Tags)
	sb.WriteString("\n")
	sb.WriteString(p.ProductType)
	sb.WriteString("\n")
	sb.WriteString(p.BodyHTML)
	return sb.String()
}
