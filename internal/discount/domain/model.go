// Package domain defines the discount aggregate pieces: the persisted
// discount, the adapter contract and the resolver that maps codes and
// system triggers to adapters.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var (
	ErrDiscountInvalid   = errors.New("discount_invalid")
	ErrDiscountExhausted = errors.New("discount_exhausted")
)

// Trigger distinguishes user-redeemed codes from system-granted discounts.
type Trigger string

const (
	TriggerUser   Trigger = "USER"
	TriggerSystem Trigger = "SYSTEM"
)

// Discount is one active discount on an order. Whether it ends up
// order-global or item-scoped is decided by its adapter: item-scoped
// adapters mark position sheet rows with the discount id, order-global
// ones emit rows on the order sheet.
type Discount struct {
	ID            snowflake.ID      `gorm:"primaryKey"`
	OrderID       snowflake.ID      `gorm:"not null;index"`
	DiscountKey   string            `gorm:"type:text;not null"`
	Code          string            `gorm:"type:text"`
	Trigger       Trigger           `gorm:"type:text;not null"`
	Configuration datatypes.JSONMap `gorm:"type:jsonb"`
	ReservationID string            `gorm:"type:text"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Discount) TableName() string { return "order_discounts" }

// OrderContext carries the order facts discount adapters judge eligibility
// against. It is a snapshot, not the aggregate itself.
type OrderContext struct {
	OrderID       string
	Currency      string
	CountryCode   string
	PositionCount int
	ItemsTotal    int64
}

// Adapter is one discount concern. Reserve/Release must be symmetric and
// idempotent: releasing a never-taken or already-released reservation is a
// no-op, so compensating rollback paths stay safe.
type Adapter interface {
	Key() string
	OrderIndex() int

	IsValidForCodeTriggering(ctx context.Context, code string) bool
	IsValidForSystemTriggering(ctx context.Context, octx OrderContext) bool
	IsManualAdditionAllowed(code string) bool
	IsManualRemovalAllowed() bool

	Reserve(ctx context.Context, code string) (string, error)
	Release(ctx context.Context, reservationID string) error

	// ConfigurationForPricingAdapter lets a pricing adapter ask whether
	// this discount carries configuration addressed at it. This is how
	// discount and tax adapters stay decoupled yet consistent.
	ConfigurationForPricingAdapter(pricingAdapterKey string) (map[string]any, bool)
}

// Resolver maps user codes and system triggers to discount adapter keys.
type Resolver interface {
	ResolveDiscountKeyFromStaticCode(ctx context.Context, code string) (string, error)
	FindSystemDiscounts(ctx context.Context, octx OrderContext) []string
}
