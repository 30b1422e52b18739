package adapters

import (
	"context"
	"fmt"

	"github.com/cartforgelabs/cartforge/internal/pricing"
	"gorm.io/datatypes"
)

// ItemPrice emits the base catalog price of one order position: unit
// amount times quantity. It runs first so discounts have a base to apply
// against.
type ItemPrice struct{}

func NewItemPrice() *ItemPrice { return &ItemPrice{} }

func (a *ItemPrice) Key() string     { return "product-price" }
func (a *ItemPrice) OrderIndex() int { return 0 }

func (a *ItemPrice) IsActivatedFor(pctx *pricing.Context) bool {
	return pctx.Product != nil && pctx.Quantity > 0
}

func (a *ItemPrice) Calculate(ctx context.Context, pctx *pricing.Context) ([]pricing.Row, error) {
	product := pctx.Product
	if product.Currency != pctx.Currency {
		return nil, fmt.Errorf("product %s priced in %s, sheet currency %s: %w",
			product.SKU, product.Currency, pctx.Currency, pricing.ErrCalculationInconsistency)
	}
	sheet := pricing.NewSheet(pctx.Currency, pctx.Quantity)
	sheet.AddItem(pricing.ItemParams{
		Amount:    product.UnitAmount * int64(pctx.Quantity),
		IsTaxable: true,
		Meta: datatypes.JSONMap{
			"product_id":  product.ID,
			"sku":         product.SKU,
			"unit_amount": product.UnitAmount,
			"quantity":    pctx.Quantity,
		},
	})
	return sheet.Rows, nil
}
