package plan

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/oilslick/catops/models"
)

var oneHundred = decimal.NewFromInt(100)

// DiscountBatch is the plan set for one discount run. The ceiling is
// blended across the batch: each category contributes its configured
// ceiling weighted by that category's share of total catalog value,
// rounded half-up to a whole percent before the requested value is
// compared against it.
type DiscountBatch struct {
	Requested int
	Ceiling   int
	Percent   int
	Clamped   bool
	Plans     []models.Plan
}

// BuildDiscount prices a percentage discount across a product batch.
// The requested percent is clamped to the blended category ceiling; a
// batch larger than the configured item cap degrades every plan to
// Action none naming the cap.
func BuildDiscount(products []models.Product, requested int, cfg models.DiscountConfig) DiscountBatch {
	batch := DiscountBatch{Requested: requested}
	if len(products) == 0 {
		return batch
	}

	if len(products) > cfg.MaxItems {
		reason := fmt.Sprintf("discount batch of %d items exceeds the cap of %d", len(products), cfg.MaxItems)
		for _, p := range products {
			batch.Plans = append(batch.Plans, models.Plan{
				ProductID:     p.ID,
				ProductTitle:  p.Title,
				Action:        models.ActionNone,
				LimitsChecked: true,
				Reason:        reason,
			})
		}
		return batch
	}

	batch.Ceiling = blendedCeiling(products, cfg)
	batch.Percent = requested
	if requested > batch.Ceiling {
		batch.Percent = batch.Ceiling
		batch.Clamped = true
	}
	if batch.Percent < 0 {
		batch.Percent = 0
	}

	for _, p := range products {
		batch.Plans = append(batch.Plans, discountPlan(p, batch))
	}
	return batch
}

// blendedCeiling computes the value-weighted average of the per-category
// ceilings over the batch. A batch with no parseable prices falls back
// to the strictest ceiling among its categories.
func blendedCeiling(products []models.Product, cfg models.DiscountConfig) int {
	valueByCategory := make(map[string]decimal.Decimal)
	total := decimal.Zero
	for _, p := range products {
		v := productValue(p)
		valueByCategory[p.ProductType] = valueByCategory[p.ProductType].Add(v)
		total = total.Add(v)
	}

	if total.IsZero() {
		strictest := 0
		for category := range valueByCategory {
			c := cfg.CeilingFor(category)
			if strictest == 0 || c < strictest {
				strictest = c
			}
		}
		return strictest
	}

	blended := decimal.Zero
	for category, value := range valueByCategory {
		ceiling := decimal.NewFromInt(int64(cfg.CeilingFor(category)))
		blended = blended.Add(value.Div(total).Mul(ceiling))
	}
	return int(blended.Round(0).IntPart())
}

// productValue sums the parseable variant prices of one product.
func productValue(p models.Product) decimal.Decimal {
	v := decimal.Zero
	for i := range p.Variants {
		if d, ok := p.Variants[i].PriceDecimal(); ok {
			v = v.Add(d)
		}
	}
	return v
}

func discountPlan(p models.Product, batch DiscountBatch) models.Plan {
	pl := models.Plan{
		ProductID:     p.ID,
		ProductTitle:  p.Title,
		Action:        models.ActionNone,
		LimitsChecked: true,
	}
	if batch.Percent <= 0 {
		pl.Reason = fmt.Sprintf("effective discount is 0%% (requested %d%%, ceiling %d%%)", batch.Requested, batch.Ceiling)
		return pl
	}

	factor := oneHundred.Sub(decimal.NewFromInt(int64(batch.Percent))).Div(oneHundred)

	var prices []models.PlannedPrice
	alreadyDiscounted := 0
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.CompareAtPrice != "" {
			alreadyDiscounted++
			continue
		}
		old, ok := v.PriceDecimal()
		if !ok {
			continue
		}
		prices = append(prices, models.PlannedPrice{
			VariantID: v.ID,
			Old:       old.StringFixed(2),
			New:       old.Mul(factor).Round(2).StringFixed(2),
		})
	}

	if len(prices) == 0 {
		if alreadyDiscounted > 0 {
			pl.Reason = fmt.Sprintf("all %d variants already carry a compare-at price", alreadyDiscounted)
		} else {
			pl.Reason = "no variants with a parseable price"
		}
		return pl
	}

	pl.Action = models.ActionDiscount
	pl.Discount = &models.DiscountPayload{
		Requested: strconv.Itoa(batch.Requested),
		Percent:   strconv.Itoa(batch.Percent),
		Prices:    prices,
	}
	pl.Changes = append(pl.Changes, fmt.Sprintf("discount %d variants by %d%%", len(prices), batch.Percent))
	if batch.Clamped {
		pl.Changes = append(pl.Changes, fmt.Sprintf("requested %d%% clamped to blended ceiling %d%%", batch.Requested, batch.Ceiling))
	}
	return pl
}
