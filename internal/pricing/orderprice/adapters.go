// Package orderprice holds the order-level pricing adapters. They fold the
// position, delivery and payment sheets into the order sheet, apply
// order-global discounts and mirror the folded taxes, in that fixed order.
package orderprice

import (
	"context"
	"math"

	"github.com/cartforgelabs/cartforge/internal/pricing"
	"gorm.io/datatypes"
)

// Items folds the position sheets into one ITEMS row carrying the gross
// items total.
type Items struct{}

func NewItems() *Items { return &Items{} }

func (a *Items) Key() string     { return "order-items" }
func (a *Items) OrderIndex() int { return 0 }

func (a *Items) IsActivatedFor(pctx *pricing.Context) bool {
	return len(pctx.ItemSheets) > 0
}

func (a *Items) Calculate(ctx context.Context, pctx *pricing.Context) ([]pricing.Row, error) {
	var total int64
	for _, sheet := range pctx.ItemSheets {
		total += sheet.Gross()
	}
	out := pricing.NewSheet(pctx.Currency, pctx.Quantity)
	out.AddItems(pricing.ItemParams{
		Amount: total,
		Meta:   datatypes.JSONMap{"positions": len(pctx.ItemSheets)},
	})
	return out.Rows, nil
}

// Delivery folds the delivery sheet.
type Delivery struct{}

func NewDelivery() *Delivery { return &Delivery{} }

func (a *Delivery) Key() string     { return "order-delivery" }
func (a *Delivery) OrderIndex() int { return 10 }

func (a *Delivery) IsActivatedFor(pctx *pricing.Context) bool {
	return pctx.DeliverySheet != nil
}

func (a *Delivery) Calculate(ctx context.Context, pctx *pricing.Context) ([]pricing.Row, error) {
	out := pricing.NewSheet(pctx.Currency, pctx.Quantity)
	out.AddDelivery(pricing.ItemParams{Amount: pctx.DeliverySheet.Gross()})
	return out.Rows, nil
}

// Payment folds the payment sheet.
type Payment struct{}

func NewPayment() *Payment { return &Payment{} }

func (a *Payment) Key() string     { return "order-payment" }
func (a *Payment) OrderIndex() int { return 20 }

func (a *Payment) IsActivatedFor(pctx *pricing.Context) bool {
	return pctx.PaymentSheet != nil
}

func (a *Payment) Calculate(ctx context.Context, pctx *pricing.Context) ([]pricing.Row, error) {
	out := pricing.NewSheet(pctx.Currency, pctx.Quantity)
	out.AddPayment(pricing.ItemParams{Amount: pctx.PaymentSheet.Gross()})
	return out.Rows, nil
}

// Discount applies order-global discounts. Fixed amounts are capped at the
// remaining order total so a coupon can never push an order negative; rate
// discounts apply to the folded items total. Order-level discount rows are
// not taxable: the folded sub-sheets already carry their taxes.
type Discount struct{}

func NewDiscount() *Discount { return &Discount{} }

func (a *Discount) Key() string     { return "order-discount" }
func (a *Discount) OrderIndex() int { return 30 }

func (a *Discount) IsActivatedFor(pctx *pricing.Context) bool {
	return len(pctx.Discounts) > 0
}

func (a *Discount) Calculate(ctx context.Context, pctx *pricing.Context) ([]pricing.Row, error) {
	sheet := pctx.CurrentSheet()
	itemsTotal := sheet.Sum(pricing.RowFilter{Category: pricing.CategoryItems})
	remaining := sheet.Gross()

	out := pricing.NewSheet(pctx.Currency, pctx.Quantity)
	for _, d := range pctx.Discounts {
		cfg, ok := d.Configuration(a.Key())
		if !ok {
			continue
		}

		var amount int64
		if fixed, ok := intValue(cfg["fixed_amount"]); ok {
			amount = fixed
		} else if rate, ok := floatValue(cfg["rate"]); ok {
			amount = int64(math.Round(rate * float64(itemsTotal)))
		} else {
			return nil, pricing.ErrIncompleteConfiguration
		}
		if amount > remaining {
			amount = remaining
		}
		if amount <= 0 {
			continue
		}
		remaining -= amount
		if err := out.AddDiscounts(pricing.DiscountParams{
			Amount:     -amount,
			DiscountID: d.DiscountID,
			Meta:       datatypes.JSONMap{"discount_key": d.Key},
		}); err != nil {
			return nil, err
		}
	}
	return out.Rows, nil
}

// Tax mirrors the taxes already contained in the folded sheets onto the
// order sheet: one TAXES row per sub-sheet tax row, balanced by an
// adjustment on the folded category so the order gross stays unchanged.
type Tax struct{}

func NewTax() *Tax { return &Tax{} }

func (a *Tax) Key() string     { return "order-tax" }
func (a *Tax) OrderIndex() int { return 40 }

func (a *Tax) IsActivatedFor(pctx *pricing.Context) bool {
	return len(pctx.ItemSheets) > 0 || pctx.DeliverySheet != nil || pctx.PaymentSheet != nil
}

func (a *Tax) Calculate(ctx context.Context, pctx *pricing.Context) ([]pricing.Row, error) {
	out := pricing.NewSheet(pctx.Currency, pctx.Quantity)

	mirror := func(sheet *pricing.Sheet, category pricing.RowCategory) error {
		if sheet == nil {
			return nil
		}
		var taxTotal int64
		for _, row := range sheet.FilterBy(pricing.RowFilter{Category: pricing.CategoryTax}) {
			taxTotal += row.Amount
			var rate float64
			if row.Rate != nil {
				rate = *row.Rate
			}
			if err := out.AddTaxes(pricing.TaxParams{
				Amount: row.Amount,
				Rate:   rate,
				Meta:   datatypes.JSONMap{"source_category": string(category)},
			}); err != nil {
				return err
			}
		}
		if taxTotal != 0 {
			return out.AddTaxAdjustment(pricing.TaxAdjustmentParams{
				Category: category,
				Amount:   -taxTotal,
				Meta:     datatypes.JSONMap{"adjustment": "tax_included"},
			})
		}
		return nil
	}

	for _, sheet := range pctx.ItemSheets {
		if err := mirror(sheet, pricing.CategoryItems); err != nil {
			return nil, err
		}
	}
	if err := mirror(pctx.DeliverySheet, pricing.CategoryDelivery); err != nil {
		return nil, err
	}
	if err := mirror(pctx.PaymentSheet, pricing.CategoryPayment); err != nil {
		return nil, err
	}
	return out.Rows, nil
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

func intValue(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
