// Package domain defines tax rate records and the resolver contract.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var ErrUnknownTaxRegion = errors.New("unknown_tax_region")

// TaxRate maps a country (and optional category) to a VAT rate.
type TaxRate struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	CountryCode string       `gorm:"type:text;not null;index:idx_tax_region"`
	Category    string       `gorm:"type:text;not null;default:'';index:idx_tax_region"`
	Rate        float64      `gorm:"not null"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (TaxRate) TableName() string { return "tax_rates" }

// Resolver answers "which VAT rate applies here". Lookups may hit the
// database, so the pricing tax adapters treat this as their one I/O edge.
type Resolver interface {
	RateFor(ctx context.Context, countryCode, category string) (float64, error)
}

type Repository interface {
	FindRate(ctx context.Context, countryCode, category string) (*TaxRate, error)
}
