// Package domain holds the minimal catalog consumed by the product
// base-price adapter.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var ErrProductNotFound = errors.New("product_not_found")

type Product struct {
	ID          snowflake.ID                `gorm:"primaryKey"`
	SKU         string                      `gorm:"type:text;not null;uniqueIndex"`
	Slug        string                      `gorm:"type:text;not null;uniqueIndex"`
	Title       string                      `gorm:"type:text;not null"`
	UnitAmount  int64                       `gorm:"not null"`
	Currency    string                      `gorm:"type:text;not null"`
	TaxCategory string                      `gorm:"type:text;not null;default:''"`
	Tags        datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	CreatedAt   time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Product) TableName() string { return "products" }

// HasTag reports whether the product carries the tag.
func (p *Product) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

type Repository interface {
	Get(ctx context.Context, id snowflake.ID) (*Product, error)
	GetBySKU(ctx context.Context, sku string) (*Product, error)
	Create(ctx context.Context, product *Product) error
	List(ctx context.Context) ([]Product, error)
}
