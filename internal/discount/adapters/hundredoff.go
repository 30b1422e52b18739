package adapters

import (
	"context"

	"github.com/cartforgelabs/cartforge/internal/discount/domain"
	"github.com/cartforgelabs/cartforge/internal/discount/reservation"
)

const HundredOffCode = "100off"

// HundredOff is an order-global fixed discount of 100 minor units,
// capped by the order-discount pricing adapter at the remaining total.
type HundredOff struct {
	store   *reservation.Store
	maxUses int64
}

func NewHundredOff(store *reservation.Store) *HundredOff {
	return &HundredOff{store: store, maxUses: 10000}
}

func (a *HundredOff) Key() string     { return "discount-100-off" }
func (a *HundredOff) OrderIndex() int { return 20 }

func (a *HundredOff) IsValidForCodeTriggering(ctx context.Context, code string) bool {
	return code == HundredOffCode
}

func (a *HundredOff) IsValidForSystemTriggering(ctx context.Context, octx domain.OrderContext) bool {
	return false
}

func (a *HundredOff) IsManualAdditionAllowed(code string) bool { return code == HundredOffCode }
func (a *HundredOff) IsManualRemovalAllowed() bool             { return true }

func (a *HundredOff) Reserve(ctx context.Context, code string) (string, error) {
	return a.store.Reserve(ctx, code, a.maxUses)
}

func (a *HundredOff) Release(ctx context.Context, reservationID string) error {
	return a.store.Release(ctx, reservationID)
}

func (a *HundredOff) ConfigurationForPricingAdapter(pricingAdapterKey string) (map[string]any, bool) {
	if pricingAdapterKey != "order-discount" {
		return nil, false
	}
	return map[string]any{
		"fixed_amount": int64(100),
	}, true
}
