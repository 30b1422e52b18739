// Package adapters hosts the built-in pricing adapters shared by the
// product, delivery and payment pricing domains.
package adapters

import (
	"context"

	"github.com/cartforgelabs/cartforge/internal/pricing"
	taxdomain "github.com/cartforgelabs/cartforge/internal/tax/domain"
	"gorm.io/datatypes"
)

// VAT taxes the taxable rows emitted by earlier adapters. It runs after
// the discount adapters, so tax is always computed on the discounted
// amount. Net-price rows get tax added on top; gross rows get the tax
// share extracted via a balancing adjustment row, keeping gross stable.
type VAT struct {
	key      string
	index    int
	resolver taxdomain.Resolver
}

func NewVAT(key string, index int, resolver taxdomain.Resolver) *VAT {
	return &VAT{key: key, index: index, resolver: resolver}
}

func (a *VAT) Key() string     { return a.key }
func (a *VAT) OrderIndex() int { return a.index }

func (a *VAT) IsActivatedFor(pctx *pricing.Context) bool {
	return pctx.CountryCode != ""
}

func (a *VAT) Calculate(ctx context.Context, pctx *pricing.Context) ([]pricing.Row, error) {
	category := ""
	if pctx.Product != nil {
		category = pctx.Product.TaxCategory
	}
	rate, err := a.resolver.RateFor(ctx, pctx.CountryCode, category)
	if err != nil {
		return nil, err
	}
	if rate <= 0 {
		return nil, nil
	}

	// Tax shares are rounded per source row, then summed into a single
	// TAX row. Discount rows contribute negatively, so the tax base is
	// the discounted amount; a negative tax total is rejected as an
	// inconsistent calculation.
	sheet := pricing.NewSheet(pctx.Currency, pctx.Quantity)
	var taxTotal int64
	var baseTotal int64
	for _, row := range pctx.Calculation {
		if !row.IsTaxable {
			continue
		}
		baseTotal += row.Amount
		if a.isNetPrice(row, pctx) {
			taxTotal += pricing.TaxOnNet(row.Amount, rate)
			continue
		}
		tax := pricing.TaxInGross(row.Amount, rate)
		taxTotal += tax
		if err := sheet.AddTaxAdjustment(pricing.TaxAdjustmentParams{
			Category:   row.Category,
			Amount:     -tax,
			DiscountID: row.DiscountID,
			Meta:       datatypes.JSONMap{"adjustment": "tax_included"},
		}); err != nil {
			return nil, err
		}
	}
	if baseTotal == 0 && taxTotal == 0 {
		return nil, nil
	}
	if err := sheet.AddTax(pricing.TaxParams{
		Amount: taxTotal,
		Rate:   rate,
		Meta:   datatypes.JSONMap{"base_amount": baseTotal},
	}); err != nil {
		return nil, err
	}
	return sheet.Rows, nil
}

// isNetPrice resolves the effective net/gross treatment of a row. A
// discount may address this tax adapter with an is_net_price override for
// the rows it emitted; that is the hook keeping discount and tax adapters
// decoupled yet consistent.
func (a *VAT) isNetPrice(row pricing.Row, pctx *pricing.Context) bool {
	if row.DiscountID != "" {
		for _, d := range pctx.Discounts {
			if d.DiscountID != row.DiscountID {
				continue
			}
			if cfg, ok := d.Configuration(a.key); ok {
				if v, ok := cfg["is_net_price"].(bool); ok {
					return v
				}
			}
		}
	}
	return row.IsNetPrice
}
