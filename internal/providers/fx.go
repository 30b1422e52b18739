package providers

import (
	"github.com/cartforgelabs/cartforge/internal/providers/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	fx.Provide(repository.NewRepository),
)
