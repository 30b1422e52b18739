package adapters

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/cartforgelabs/cartforge/internal/pricing"
	providerdomain "github.com/cartforgelabs/cartforge/internal/providers/domain"
	"gorm.io/datatypes"
)

// ProviderFee prices a delivery or payment provider from its configured
// key/value pairs: a flat fee_amount, an optional fee_rate applied to the
// order's items total, and an is_net_price flag. A provider configured
// with neither amount nor rate is an incomplete configuration.
type ProviderFee struct {
	key      string
	category pricing.RowCategory
}

func NewDeliveryFee() *ProviderFee {
	return &ProviderFee{key: "delivery-fee", category: pricing.CategoryDelivery}
}

func NewPaymentFee() *ProviderFee {
	return &ProviderFee{key: "payment-fee", category: pricing.CategoryPayment}
}

func (a *ProviderFee) Key() string     { return a.key }
func (a *ProviderFee) OrderIndex() int { return 0 }

func (a *ProviderFee) IsActivatedFor(pctx *pricing.Context) bool {
	return pctx.Provider != nil
}

func (a *ProviderFee) Calculate(ctx context.Context, pctx *pricing.Context) ([]pricing.Row, error) {
	cfg := pctx.Provider.Configuration

	amountRaw, hasAmount := cfg[providerdomain.ConfigFeeAmount]
	rateRaw, hasRate := cfg[providerdomain.ConfigFeeRate]
	if !hasAmount && !hasRate {
		return nil, fmt.Errorf("provider %s has neither %s nor %s: %w",
			pctx.Provider.ID, providerdomain.ConfigFeeAmount, providerdomain.ConfigFeeRate,
			pricing.ErrIncompleteConfiguration)
	}

	var amount int64
	if hasAmount {
		flat, err := strconv.ParseInt(amountRaw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("provider %s %s=%q: %w",
				pctx.Provider.ID, providerdomain.ConfigFeeAmount, amountRaw, pricing.ErrIncompleteConfiguration)
		}
		amount += flat
	}
	if hasRate {
		feeRate, err := strconv.ParseFloat(rateRaw, 64)
		if err != nil || feeRate < 0 {
			return nil, fmt.Errorf("provider %s %s=%q: %w",
				pctx.Provider.ID, providerdomain.ConfigFeeRate, rateRaw, pricing.ErrIncompleteConfiguration)
		}
		amount += int64(math.Round(feeRate * float64(pctx.ItemsTotal)))
	}

	isNet := cfg[providerdomain.ConfigIsNetPrice] == "true"
	sheet := pricing.NewSheet(pctx.Currency, pctx.Quantity)
	sheet.AddFee(a.category, pricing.ItemParams{
		Amount:     amount,
		IsTaxable:  true,
		IsNetPrice: isNet,
		Meta:       datatypes.JSONMap{"provider_id": pctx.Provider.ID, "adapter": pctx.Provider.Type},
	})
	return sheet.Rows, nil
}
