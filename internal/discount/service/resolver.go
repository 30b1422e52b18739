package service

import (
	"context"
	"fmt"

	"github.com/cartforgelabs/cartforge/internal/discount/adapters"
	"github.com/cartforgelabs/cartforge/internal/discount/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Resolver struct {
	log      *zap.Logger
	registry *adapters.Registry
}

type ResolverParam struct {
	fx.In

	Log      *zap.Logger
	Registry *adapters.Registry
}

func NewResolver(p ResolverParam) domain.Resolver {
	return &Resolver{
		log:      p.Log.Named("discount.resolver"),
		registry: p.Registry,
	}
}

// ResolveDiscountKeyFromStaticCode maps a user-supplied code to the first
// adapter accepting it. Matching is case-sensitive and exact.
func (r *Resolver) ResolveDiscountKeyFromStaticCode(ctx context.Context, code string) (string, error) {
	for _, adapter := range r.registry.Sorted() {
		if adapter.IsValidForCodeTriggering(ctx, code) {
			return adapter.Key(), nil
		}
	}
	return "", fmt.Errorf("code %q: %w", code, domain.ErrDiscountInvalid)
}

// FindSystemDiscounts returns the keys of every adapter whose system
// trigger fires for the order, independent of any code.
func (r *Resolver) FindSystemDiscounts(ctx context.Context, octx domain.OrderContext) []string {
	var keys []string
	for _, adapter := range r.registry.Sorted() {
		if adapter.IsValidForSystemTriggering(ctx, octx) {
			keys = append(keys, adapter.Key())
		}
	}
	return keys
}
