package discount

import (
	"github.com/cartforgelabs/cartforge/internal/discount/adapters"
	"github.com/cartforgelabs/cartforge/internal/discount/reservation"
	"github.com/cartforgelabs/cartforge/internal/discount/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires the reservation store, the process-wide discount adapter
// registry and the resolver.

var Module = fx.Module("discount.service",
	fx.Provide(func(rdb *redis.Client, log *zap.Logger) *reservation.Store {
		return reservation.NewStore(rdb, log)
	}),
	fx.Provide(func(store *reservation.Store) *adapters.Registry {
		return adapters.NewRegistry(
			adapters.NewHalfPrice(store),
			adapters.NewHundredOff(store),
			adapters.NewEarlyBird(),
		)
	}),
	fx.Provide(service.NewResolver),
)
