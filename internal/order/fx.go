package order

import (
	"github.com/cartforgelabs/cartforge/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(service.NewService),
)
