package adapters

import (
	"context"
	"testing"

	"github.com/cartforgelabs/cartforge/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver struct {
	rate float64
	err  error
}

func (r staticResolver) RateFor(context.Context, string, string) (float64, error) {
	return r.rate, r.err
}

func TestVATExtractsTaxFromGrossRows(t *testing.T) {
	vat := NewVAT("product-tax", 20, staticResolver{rate: 0.077})

	pctx := &pricing.Context{
		Currency:    "CHF",
		CountryCode: "CH",
		Quantity:    3,
		Calculation: pricing.RowList{
			{Category: pricing.CategoryItem, Amount: 30000, IsTaxable: true},
		},
	}

	rows, err := vat.Calculate(context.Background(), pctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	adjustment := rows[0]
	assert.Equal(t, pricing.CategoryItem, adjustment.Category)
	assert.Equal(t, int64(-2145), adjustment.Amount)

	tax := rows[1]
	assert.Equal(t, pricing.CategoryTax, tax.Category)
	assert.Equal(t, int64(2145), tax.Amount)
	require.NotNil(t, tax.Rate)
	assert.Equal(t, 0.077, *tax.Rate)

	// The balancing adjustment keeps the gross total stable.
	sheet := pricing.SheetFromRows("CHF", 3, append(pctx.Calculation, rows...))
	assert.Equal(t, int64(30000), sheet.Gross())
	assert.Equal(t, int64(27855), sheet.Net())
}

func TestVATAddsTaxOnNetRows(t *testing.T) {
	vat := NewVAT("delivery-tax", 20, staticResolver{rate: 0.077})

	pctx := &pricing.Context{
		Currency:    "CHF",
		CountryCode: "CH",
		Calculation: pricing.RowList{
			{Category: pricing.CategoryDelivery, Amount: 1500, IsTaxable: true, IsNetPrice: true},
		},
	}

	rows, err := vat.Calculate(context.Background(), pctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, pricing.CategoryTax, rows[0].Category)
	assert.Equal(t, int64(116), rows[0].Amount)

	sheet := pricing.SheetFromRows("CHF", 1, append(pctx.Calculation, rows...))
	assert.Equal(t, int64(1616), sheet.Gross())
	assert.Equal(t, int64(1500), sheet.Net())
}

func TestVATTaxesDiscountedBase(t *testing.T) {
	vat := NewVAT("product-tax", 20, staticResolver{rate: 0.077})

	pctx := &pricing.Context{
		Currency:    "CHF",
		CountryCode: "CH",
		Calculation: pricing.RowList{
			{Category: pricing.CategoryItem, Amount: 30000, IsTaxable: true},
			{Category: pricing.CategoryDiscount, Amount: -15000, IsTaxable: true, DiscountID: "d1"},
		},
	}

	rows, err := vat.Calculate(context.Background(), pctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// The balancing row for the discount keeps the coupon's attribution.
	discountAdj := rows[1]
	assert.Equal(t, pricing.CategoryDiscount, discountAdj.Category)
	assert.Equal(t, int64(1072), discountAdj.Amount)
	assert.Equal(t, "d1", discountAdj.DiscountID)
	assert.True(t, discountAdj.TaxAdjustment)

	tax := rows[2]
	assert.Equal(t, pricing.CategoryTax, tax.Category)
	// 2145 from the item minus 1072 for the discount share.
	assert.Equal(t, int64(1073), tax.Amount)

	sheet := pricing.SheetFromRows("CHF", 3, append(pctx.Calculation, rows...))
	assert.Equal(t, int64(15000), sheet.Gross())
	assert.Equal(t, sheet.Gross(), sheet.Net()+sheet.TaxSum())
	// The saving reported for the coupon stays at its gross figure.
	assert.Equal(t, int64(-15000), sheet.DiscountSum("d1"))
}

func TestVATHonorsDiscountNetPriceOverride(t *testing.T) {
	vat := NewVAT("product-tax", 20, staticResolver{rate: 0.10})

	pctx := &pricing.Context{
		Currency:    "CHF",
		CountryCode: "CH",
		Discounts: []pricing.AppliedDiscount{{
			DiscountID: "d1",
			Key:        "discount-test",
			ConfigurationFor: func(key string) (map[string]any, bool) {
				if key == "product-tax" {
					return map[string]any{"is_net_price": true}, true
				}
				return nil, false
			},
		}},
		Calculation: pricing.RowList{
			{Category: pricing.CategoryItem, Amount: 2000, IsTaxable: true, IsNetPrice: true},
			{Category: pricing.CategoryDiscount, Amount: -1000, IsTaxable: true, DiscountID: "d1"},
		},
	}

	rows, err := vat.Calculate(context.Background(), pctx)
	require.NoError(t, err)
	// Net treatment on both rows: tax is added on top, no balancing rows.
	// A gross-treated discount would yield -91 instead of -100 here.
	require.Len(t, rows, 1)
	assert.Equal(t, pricing.CategoryTax, rows[0].Category)
	assert.Equal(t, int64(100), rows[0].Amount)
}

func TestVATInactiveWithoutCountry(t *testing.T) {
	vat := NewVAT("product-tax", 20, staticResolver{rate: 0.077})
	assert.False(t, vat.IsActivatedFor(&pricing.Context{Currency: "CHF"}))
	assert.True(t, vat.IsActivatedFor(&pricing.Context{Currency: "CHF", CountryCode: "CH"}))
}

func TestVATZeroRateEmitsNothing(t *testing.T) {
	vat := NewVAT("product-tax", 20, staticResolver{rate: 0})

	pctx := &pricing.Context{
		Currency:    "CHF",
		CountryCode: "US",
		Calculation: pricing.RowList{
			{Category: pricing.CategoryItem, Amount: 30000, IsTaxable: true},
		},
	}

	rows, err := vat.Calculate(context.Background(), pctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
