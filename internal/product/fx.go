package product

import (
	"github.com/cartforgelabs/cartforge/internal/product/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("product",
	fx.Provide(repository.NewRepository),
)
