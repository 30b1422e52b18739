package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	productdomain "github.com/cartforgelabs/cartforge/internal/product/domain"
	providersdomain "github.com/cartforgelabs/cartforge/internal/providers/domain"
	taxdomain "github.com/cartforgelabs/cartforge/internal/tax/domain"
	"github.com/gosimple/slug"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EnsureDemoCatalog seeds a small catalog of products, providers and tax
// rates for development setups. Existing rows are left untouched.
func EnsureDemoCatalog(db *gorm.DB, node *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id node is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureProducts(ctx, tx, node); err != nil {
			return err
		}
		if err := ensureProviders(ctx, tx, node); err != nil {
			return err
		}
		return ensureTaxRates(ctx, tx, node)
	})
}

func ensureProducts(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	products := []productdomain.Product{
		{
			SKU:        "CF-TSHIRT",
			Title:      "Forge T-Shirt",
			UnitAmount: 2500,
			Currency:   "CHF",
		},
		{
			SKU:        "CF-HOODIE",
			Title:      "Forge Hoodie",
			UnitAmount: 7900,
			Currency:   "CHF",
			Tags:       datatypes.NewJSONSlice([]string{"sale"}),
		},
		{
			SKU:         "CF-COFFEE",
			Title:       "Forge Coffee Beans 1kg",
			UnitAmount:  1800,
			Currency:    "CHF",
			TaxCategory: "reduced",
		},
	}

	now := time.Now().UTC()
	for _, p := range products {
		var existing productdomain.Product
		err := tx.WithContext(ctx).Where("sku = ?", p.SKU).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		p.ID = node.Generate()
		p.Slug = slug.Make(p.Title)
		p.CreatedAt = now
		p.UpdatedAt = now
		if err := tx.WithContext(ctx).Create(&p).Error; err != nil {
			return err
		}
	}
	return nil
}

func ensureProviders(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	providers := []providersdomain.Provider{
		{
			Type:    providersdomain.TypeDelivery,
			Adapter: "standard-shipping",
			Configuration: datatypes.NewJSONSlice([]providersdomain.ConfigurationEntry{
				{Key: providersdomain.ConfigFeeAmount, Value: "700"},
			}),
		},
		{
			Type:    providersdomain.TypeDelivery,
			Adapter: "express-shipping",
			Configuration: datatypes.NewJSONSlice([]providersdomain.ConfigurationEntry{
				{Key: providersdomain.ConfigFeeAmount, Value: "1500"},
				{Key: providersdomain.ConfigIsNetPrice, Value: "true"},
			}),
		},
		{
			Type:    providersdomain.TypePayment,
			Adapter: "card",
			Configuration: datatypes.NewJSONSlice([]providersdomain.ConfigurationEntry{
				{Key: providersdomain.ConfigFeeRate, Value: "0.029"},
			}),
		},
		{
			Type:    providersdomain.TypePayment,
			Adapter: "invoice",
			Configuration: datatypes.NewJSONSlice([]providersdomain.ConfigurationEntry{
				{Key: providersdomain.ConfigFeeAmount, Value: "0"},
			}),
		},
	}

	now := time.Now().UTC()
	for _, p := range providers {
		var existing providersdomain.Provider
		err := tx.WithContext(ctx).
			Where("type = ? AND adapter = ?", p.Type, p.Adapter).
			First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		p.ID = node.Generate()
		p.CreatedAt = now
		if err := tx.WithContext(ctx).Create(&p).Error; err != nil {
			return err
		}
	}
	return nil
}

func ensureTaxRates(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	rates := []taxdomain.TaxRate{
		{CountryCode: "CH", Category: "", Rate: 0.081},
		{CountryCode: "CH", Category: "reduced", Rate: 0.026},
		{CountryCode: "DE", Category: "", Rate: 0.19},
		{CountryCode: "DE", Category: "reduced", Rate: 0.07},
		{CountryCode: "AT", Category: "", Rate: 0.20},
	}

	now := time.Now().UTC()
	for _, r := range rates {
		var existing taxdomain.TaxRate
		err := tx.WithContext(ctx).
			Where("country_code = ? AND category = ?", r.CountryCode, r.Category).
			First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		r.ID = node.Generate()
		r.CreatedAt = now
		if err := tx.WithContext(ctx).Create(&r).Error; err != nil {
			return err
		}
	}
	return nil
}
