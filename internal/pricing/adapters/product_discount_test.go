package adapters

import (
	"context"
	"testing"

	"github.com/cartforgelabs/cartforge/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discountWithConfig(id string, cfg map[string]any) pricing.AppliedDiscount {
	return pricing.AppliedDiscount{
		DiscountID: id,
		Key:        "discount-" + id,
		ConfigurationFor: func(key string) (map[string]any, bool) {
			if key == "product-discount" {
				return cfg, true
			}
			return nil, false
		},
	}
}

func TestProductDiscountHalvesItemTotal(t *testing.T) {
	adapter := NewProductDiscount()

	pctx := &pricing.Context{
		Currency: "CHF",
		Quantity: 3,
		Product:  &pricing.ProductSnapshot{ID: "1", SKU: "CF-HOODIE", Tags: []string{"sale"}},
		Discounts: []pricing.AppliedDiscount{
			discountWithConfig("d1", map[string]any{"rate": 0.5, "tags": []string{"sale"}}),
		},
		Calculation: pricing.RowList{
			{Category: pricing.CategoryItem, Amount: 30000, IsTaxable: true},
		},
	}

	rows, err := adapter.Calculate(context.Background(), pctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, pricing.CategoryDiscount, rows[0].Category)
	assert.Equal(t, int64(-15000), rows[0].Amount)
	assert.Equal(t, "d1", rows[0].DiscountID)
	assert.True(t, rows[0].IsTaxable)
}

func TestProductDiscountSkipsIneligibleTags(t *testing.T) {
	adapter := NewProductDiscount()

	pctx := &pricing.Context{
		Currency: "CHF",
		Quantity: 1,
		Product:  &pricing.ProductSnapshot{ID: "1", SKU: "CF-TSHIRT"},
		Discounts: []pricing.AppliedDiscount{
			discountWithConfig("d1", map[string]any{"rate": 0.5, "tags": []string{"sale"}}),
		},
		Calculation: pricing.RowList{
			{Category: pricing.CategoryItem, Amount: 2500, IsTaxable: true},
		},
	}

	rows, err := adapter.Calculate(context.Background(), pctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestProductDiscountsCompound(t *testing.T) {
	adapter := NewProductDiscount()

	pctx := &pricing.Context{
		Currency: "CHF",
		Quantity: 1,
		Product:  &pricing.ProductSnapshot{ID: "1", SKU: "CF-TSHIRT"},
		Discounts: []pricing.AppliedDiscount{
			discountWithConfig("d1", map[string]any{"rate": 0.5}),
			discountWithConfig("d2", map[string]any{"rate": 0.1}),
		},
		Calculation: pricing.RowList{
			{Category: pricing.CategoryItem, Amount: 10000, IsTaxable: true},
		},
	}

	rows, err := adapter.Calculate(context.Background(), pctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(-5000), rows[0].Amount)
	// The second discount applies to the already discounted base.
	assert.Equal(t, int64(-500), rows[1].Amount)
}

func TestProductDiscountRejectsMissingRate(t *testing.T) {
	adapter := NewProductDiscount()

	pctx := &pricing.Context{
		Currency: "CHF",
		Quantity: 1,
		Product:  &pricing.ProductSnapshot{ID: "1", SKU: "CF-TSHIRT"},
		Discounts: []pricing.AppliedDiscount{
			discountWithConfig("d1", map[string]any{}),
		},
		Calculation: pricing.RowList{
			{Category: pricing.CategoryItem, Amount: 10000, IsTaxable: true},
		},
	}

	_, err := adapter.Calculate(context.Background(), pctx)
	assert.ErrorIs(t, err, pricing.ErrIncompleteConfiguration)
}
