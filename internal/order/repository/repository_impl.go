package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	discountdomain "github.com/cartforgelabs/cartforge/internal/discount/domain"
	"github.com/cartforgelabs/cartforge/internal/order/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to a database handle; inside a
// transaction it is re-instantiated on the tx handle.
func NewRepository(db *gorm.DB) domain.Repository {
	return &Repository{db: db}
}

func (r *Repository) Get(ctx context.Context, orderID snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).
		Preload("Positions", func(db *gorm.DB) *gorm.DB { return db.Order("order_positions.id") }).
		Preload("Delivery").
		Preload("Payment").
		Preload("Discounts", func(db *gorm.DB) *gorm.DB { return db.Order("order_discounts.id") }).
		First(&order, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrOrderNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) Create(ctx context.Context, order *domain.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// Save persists the order row itself without touching associations.
func (r *Repository) Save(ctx context.Context, order *domain.Order) error {
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(order).Error
}

// SaveAggregate persists the order and every loaded sub-entity, including
// their recomputed calculation fields. Entity IDs are assigned up front,
// so writes go through upserts rather than gorm's create-or-update guess.
func (r *Repository) SaveAggregate(ctx context.Context, order *domain.Order) error {
	tx := r.db.WithContext(ctx)
	upsert := func(value any) error {
		return tx.Omit(clause.Associations).Clauses(clause.OnConflict{UpdateAll: true}).Create(value).Error
	}

	if err := upsert(order); err != nil {
		return err
	}
	for i := range order.Positions {
		if err := upsert(&order.Positions[i]); err != nil {
			return err
		}
	}
	if order.Delivery != nil {
		if err := upsert(order.Delivery); err != nil {
			return err
		}
	}
	if order.Payment != nil {
		if err := upsert(order.Payment); err != nil {
			return err
		}
	}
	for i := range order.Discounts {
		if err := upsert(&order.Discounts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) DeletePosition(ctx context.Context, positionID snowflake.ID) error {
	return r.db.WithContext(ctx).Delete(&domain.OrderPosition{}, "id = ?", positionID).Error
}

func (r *Repository) DeleteDiscount(ctx context.Context, discountID snowflake.ID) error {
	return r.db.WithContext(ctx).Delete(&discountdomain.Discount{}, "id = ?", discountID).Error
}
