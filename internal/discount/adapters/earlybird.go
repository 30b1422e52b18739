package adapters

import (
	"context"

	"github.com/cartforgelabs/cartforge/internal/discount/domain"
)

// EarlyBird is a system-triggered 5% order discount granted automatically
// once the items total crosses a threshold. It takes no reservation: there
// is no code budget to protect.
type EarlyBird struct {
	threshold int64
}

func NewEarlyBird() *EarlyBird {
	return &EarlyBird{threshold: 50000}
}

func (a *EarlyBird) Key() string     { return "discount-early-bird" }
func (a *EarlyBird) OrderIndex() int { return 30 }

func (a *EarlyBird) IsValidForCodeTriggering(ctx context.Context, code string) bool {
	return false
}

func (a *EarlyBird) IsValidForSystemTriggering(ctx context.Context, octx domain.OrderContext) bool {
	return octx.ItemsTotal >= a.threshold
}

func (a *EarlyBird) IsManualAdditionAllowed(code string) bool { return false }
func (a *EarlyBird) IsManualRemovalAllowed() bool             { return false }

func (a *EarlyBird) Reserve(ctx context.Context, code string) (string, error) {
	return "", nil
}

func (a *EarlyBird) Release(ctx context.Context, reservationID string) error {
	return nil
}

func (a *EarlyBird) ConfigurationForPricingAdapter(pricingAdapterKey string) (map[string]any, bool) {
	if pricingAdapterKey != "order-discount" {
		return nil, false
	}
	return map[string]any{
		"rate": 0.05,
	}, true
}
