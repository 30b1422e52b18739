package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/cartforgelabs/cartforge/internal/providers/domain"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &Repository{db: db}
}

func (r *Repository) Get(ctx context.Context, id snowflake.ID) (*domain.Provider, error) {
	var provider domain.Provider
	err := r.db.WithContext(ctx).First(&provider, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("provider %s: %w", id, domain.ErrProviderNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &provider, nil
}

func (r *Repository) Create(ctx context.Context, provider *domain.Provider) error {
	return r.db.WithContext(ctx).Create(provider).Error
}

func (r *Repository) ListByType(ctx context.Context, t domain.ProviderType) ([]domain.Provider, error) {
	var providers []domain.Provider
	if err := r.db.WithContext(ctx).Where("type = ?", t).Order("id").Find(&providers).Error; err != nil {
		return nil, err
	}
	return providers, nil
}
