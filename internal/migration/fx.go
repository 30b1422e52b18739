package migration

import (
	"github.com/cartforgelabs/cartforge/internal/config"
	discountdomain "github.com/cartforgelabs/cartforge/internal/discount/domain"
	orderdomain "github.com/cartforgelabs/cartforge/internal/order/domain"
	productdomain "github.com/cartforgelabs/cartforge/internal/product/domain"
	providersdomain "github.com/cartforgelabs/cartforge/internal/providers/domain"
	taxdomain "github.com/cartforgelabs/cartforge/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if cfg.Database.Driver == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB, log)
		}
		// sqlite has no advisory locks or migrate driver here, so the
		// development setup relies on gorm schema sync instead.
		return AutoMigrate(conn)
	}),
)

// AutoMigrate syncs the schema directly from the gorm models. Used for
// sqlite development and test databases.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&productdomain.Product{},
		&providersdomain.Provider{},
		&taxdomain.TaxRate{},
		&orderdomain.Order{},
		&orderdomain.OrderPosition{},
		&orderdomain.OrderDelivery{},
		&orderdomain.OrderPayment{},
		&discountdomain.Discount{},
	)
}
