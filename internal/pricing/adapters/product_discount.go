package adapters

import (
	"context"
	"math"

	"github.com/cartforgelabs/cartforge/internal/pricing"
	"gorm.io/datatypes"
)

// ProductDiscount applies item-scoped discounts to one position. It asks
// every active discount for configuration addressed at it; a matching
// discount reduces the taxable item total by its rate, and the emitted row
// carries the discount id so savings stay attributable.
type ProductDiscount struct{}

func NewProductDiscount() *ProductDiscount { return &ProductDiscount{} }

func (a *ProductDiscount) Key() string     { return "product-discount" }
func (a *ProductDiscount) OrderIndex() int { return 10 }

func (a *ProductDiscount) IsActivatedFor(pctx *pricing.Context) bool {
	return pctx.Product != nil && len(pctx.Discounts) > 0
}

func (a *ProductDiscount) Calculate(ctx context.Context, pctx *pricing.Context) ([]pricing.Row, error) {
	sheet := pricing.NewSheet(pctx.Currency, pctx.Quantity)
	for _, d := range pctx.Discounts {
		cfg, ok := d.Configuration(a.Key())
		if !ok {
			continue
		}
		if !a.productEligible(pctx, cfg) {
			continue
		}
		rate, ok := floatValue(cfg["rate"])
		if !ok || rate <= 0 || rate > 1 {
			return nil, pricing.ErrIncompleteConfiguration
		}

		// Base is what the position is worth so far, later discounts
		// stacking on earlier ones.
		base := pctx.CurrentSheet().Sum(pricing.RowFilter{Category: pricing.CategoryItem}) +
			sheet.Sum(pricing.RowFilter{Category: pricing.CategoryDiscount})
		if base <= 0 {
			continue
		}
		if err := sheet.AddDiscount(pricing.DiscountParams{
			Amount:     -int64(math.Round(float64(base) * rate)),
			DiscountID: d.DiscountID,
			IsTaxable:  true,
			Rate:       pricing.FloatPtr(rate),
			Meta:       datatypes.JSONMap{"discount_key": d.Key},
		}); err != nil {
			return nil, err
		}
	}
	return sheet.Rows, nil
}

func (a *ProductDiscount) productEligible(pctx *pricing.Context, cfg map[string]any) bool {
	tags, ok := stringSlice(cfg["tags"])
	if !ok || len(tags) == 0 {
		return true
	}
	for _, tag := range tags {
		for _, ptag := range pctx.Product.Tags {
			if tag == ptag {
				return true
			}
		}
	}
	return false
}

func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func stringSlice(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return s, true
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	default:
		return nil, false
	}
}
