package service

import (
	"context"
	"fmt"

	"github.com/cartforgelabs/cartforge/internal/tax/domain"
	"github.com/cartforgelabs/cartforge/internal/tax/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Static fallbacks so a fresh install prices correctly before any tax rows
// are configured.
var defaultRates = map[string]float64{
	"CH": 0.077,
	"LI": 0.077,
	"DE": 0.19,
	"AT": 0.20,
	"FR": 0.20,
}

type Resolver struct {
	log  *zap.Logger
	repo domain.Repository
}

type ResolverParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

func NewResolver(p ResolverParam) domain.Resolver {
	return &Resolver{
		log:  p.Log.Named("tax.resolver"),
		repo: repository.NewRepository(p.DB),
	}
}

// RateFor resolves the VAT rate for a country and tax category. Configured
// rows win over the static table; a category-specific row wins over the
// country default.
func (r *Resolver) RateFor(ctx context.Context, countryCode, category string) (float64, error) {
	if category != "" {
		rate, err := r.repo.FindRate(ctx, countryCode, category)
		if err != nil {
			return 0, err
		}
		if rate != nil {
			return rate.Rate, nil
		}
	}

	rate, err := r.repo.FindRate(ctx, countryCode, "")
	if err != nil {
		return 0, err
	}
	if rate != nil {
		return rate.Rate, nil
	}

	if fallback, ok := defaultRates[countryCode]; ok {
		return fallback, nil
	}
	return 0, fmt.Errorf("country %q: %w", countryCode, domain.ErrUnknownTaxRegion)
}
