package repository

import (
	"context"
	"errors"

	"github.com/cartforgelabs/cartforge/internal/tax/domain"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &Repository{db: db}
}

func (r *Repository) FindRate(ctx context.Context, countryCode, category string) (*domain.TaxRate, error) {
	var rate domain.TaxRate
	err := r.db.WithContext(ctx).
		Where("country_code = ? AND category = ?", countryCode, category).
		First(&rate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}
