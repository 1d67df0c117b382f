package router

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oilslick/catops/models"
)

// Descriptions can run to tens of KB of markup; the models only need
// enough text to judge the listing.
const promptBodyLimit = 2000

const variantsSystem = `You are a product catalog analyst for an e-commerce store.
Given one product listing, decide whether its title, description, or images
describe multiple purchasable variants (sizes, colors, materials, pack counts)
that the listing does not expose as selectable options.

Respond with a single JSON object and nothing else:
{"has_variants": true or false, "confidence": 0-100, "rationale": "one sentence",
 "options": [{"name": "Color", "values": ["Red", "Blue"]}]}

Only include options you are confident a buyer must choose between. Use an empty
"options" list when has_variants is false.`

const wholesaleSystem = `You are a product catalog analyst for an e-commerce store.
Given one product listing, decide whether it is a wholesale, bulk, or multi-pack
offer rather than a single retail unit.

Respond with a single JSON object and nothing else:
{"match": true or false, "confidence": 0-100, "rationale": "one sentence"}`

const matchSystem = `You are a product catalog analyst for an e-commerce store.
Given one product listing and its attached images, decide whether the images
depict the product the title and description sell. A wrong-item upload, a
placeholder graphic, or a clearly different product is a mismatch; differences
of angle, lighting, background, or packaging are not.

Respond with a single JSON object and nothing else:
{"match": true or false, "confidence": 0-100, "rationale": "one sentence"}`

var markupTags = regexp.MustCompile(`<[^>]*>`)

// classifyPrompt renders the parts of a product a model needs to see.
func classifyPrompt(p models.Product) string {
	var b strings.Builder
	b.WriteString("Classify the following product listing.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", p.Title)
	if p.Vendor != "" {
		fmt.Fprintf(&b, "Vendor: %s\n", p.Vendor)
	}
	if p.ProductType != "" {
		fmt.Fprintf(&b, "Type: %s\n", p.ProductType)
	}
	if p.Tags != "" {
		fmt.Fprintf(&b, "Tags: %s\n", p.Tags)
	}

	if opts := existingOptions(p); opts != "" {
		fmt.Fprintf(&b, "Existing options: %s\n", opts)
	}
	fmt.Fprintf(&b, "Existing variants: %d\n", len(p.Variants))

	if body := plainBody(p.BodyHTML); body != "" {
		fmt.Fprintf(&b, "\nDescription:\n%s\n", body)
	}
	return b.String()
}

// existingOptions summarizes already-configured options, skipping the
// placeholder Title option Shopify adds to single-variant products.
func existingOptions(p models.Product) string {
	var parts []string
	for _, opt := range p.Options {
		if strings.EqualFold(opt.Name, "Title") {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", opt.Name, strings.Join(opt.Values, ", ")))
	}
	return strings.Join(parts, "; ")
}

func plainBody(html string) string {
	text := markupTags.ReplaceAllString(html, " ")
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > promptBodyLimit {
		text = text[:promptBodyLimit]
	}
	return text
}
