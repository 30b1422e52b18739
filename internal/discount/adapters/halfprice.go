package adapters

import (
	"context"

	"github.com/cartforgelabs/cartforge/internal/discount/domain"
	"github.com/cartforgelabs/cartforge/internal/discount/reservation"
)

const HalfPriceCode = "HALFPRICE"

// HalfPrice is an item-scoped 50% discount on products tagged "sale". It
// addresses the product-discount pricing adapter, so the saving lands on
// the individual order position and tax is computed on the reduced amount.
type HalfPrice struct {
	store   *reservation.Store
	maxUses int64
}

func NewHalfPrice(store *reservation.Store) *HalfPrice {
	return &HalfPrice{store: store, maxUses: 0}
}

func (a *HalfPrice) Key() string     { return "discount-halfprice" }
func (a *HalfPrice) OrderIndex() int { return 10 }

func (a *HalfPrice) IsValidForCodeTriggering(ctx context.Context, code string) bool {
	return code == HalfPriceCode
}

func (a *HalfPrice) IsValidForSystemTriggering(ctx context.Context, octx domain.OrderContext) bool {
	return false
}

func (a *HalfPrice) IsManualAdditionAllowed(code string) bool { return code == HalfPriceCode }
func (a *HalfPrice) IsManualRemovalAllowed() bool             { return true }

func (a *HalfPrice) Reserve(ctx context.Context, code string) (string, error) {
	return a.store.Reserve(ctx, code, a.maxUses)
}

func (a *HalfPrice) Release(ctx context.Context, reservationID string) error {
	return a.store.Release(ctx, reservationID)
}

func (a *HalfPrice) ConfigurationForPricingAdapter(pricingAdapterKey string) (map[string]any, bool) {
	if pricingAdapterKey != "product-discount" {
		return nil, false
	}
	return map[string]any{
		"rate": 0.5,
		"tags": []string{"sale"},
	}, true
}
