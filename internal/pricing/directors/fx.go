// Package directors assembles the four pricing domains. The registries are
// explicit instances built once here at process start and handed to their
// directors by injection; nothing reaches them through ambient state.
package directors

import (
	"github.com/cartforgelabs/cartforge/internal/pricing"
	"github.com/cartforgelabs/cartforge/internal/pricing/adapters"
	"github.com/cartforgelabs/cartforge/internal/pricing/orderprice"
	taxdomain "github.com/cartforgelabs/cartforge/internal/tax/domain"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Set bundles one director per pricing domain.
type Set struct {
	Product  *pricing.Director
	Delivery *pricing.Director
	Payment  *pricing.Director
	Order    *pricing.Director
}

type Param struct {
	fx.In

	Log         *zap.Logger
	TaxResolver taxdomain.Resolver
	Registerer  prometheus.Registerer `optional:"true"`
}

// New builds the registries with the built-in adapters and wraps them into
// directors sharing one metrics instance.
func New(p Param) *Set {
	var metrics *pricing.Metrics
	if p.Registerer != nil {
		metrics = pricing.NewMetrics(p.Registerer)
	}

	productRegistry := pricing.NewRegistry("product",
		adapters.NewItemPrice(),
		adapters.NewProductDiscount(),
		adapters.NewVAT("product-tax", 20, p.TaxResolver),
	)
	deliveryRegistry := pricing.NewRegistry("delivery",
		adapters.NewDeliveryFee(),
		adapters.NewVAT("delivery-tax", 20, p.TaxResolver),
	)
	paymentRegistry := pricing.NewRegistry("payment",
		adapters.NewPaymentFee(),
		adapters.NewVAT("payment-tax", 20, p.TaxResolver),
	)
	orderRegistry := pricing.NewRegistry("order",
		orderprice.NewItems(),
		orderprice.NewDelivery(),
		orderprice.NewPayment(),
		orderprice.NewDiscount(),
		orderprice.NewTax(),
	)

	return &Set{
		Product:  pricing.NewDirector(productRegistry, p.Log, metrics),
		Delivery: pricing.NewDirector(deliveryRegistry, p.Log, metrics),
		Payment:  pricing.NewDirector(paymentRegistry, p.Log, metrics),
		Order:    pricing.NewDirector(orderRegistry, p.Log, metrics),
	}
}

var Module = fx.Module("pricing.directors",
	fx.Provide(New),
)
