package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cartforgelabs/cartforge/internal/clock"
	"github.com/cartforgelabs/cartforge/internal/config"
	"github.com/cartforgelabs/cartforge/internal/discount"
	"github.com/cartforgelabs/cartforge/internal/events"
	"github.com/cartforgelabs/cartforge/internal/migration"
	"github.com/cartforgelabs/cartforge/internal/observability"
	"github.com/cartforgelabs/cartforge/internal/order"
	"github.com/cartforgelabs/cartforge/internal/pricing/directors"
	"github.com/cartforgelabs/cartforge/internal/product"
	"github.com/cartforgelabs/cartforge/internal/providers"
	"github.com/cartforgelabs/cartforge/internal/redis"
	"github.com/cartforgelabs/cartforge/internal/seed"
	"github.com/cartforgelabs/cartforge/internal/server"
	"github.com/cartforgelabs/cartforge/internal/tax"
	"github.com/cartforgelabs/cartforge/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "cartforge",
		Short:   "Cartforge pricing and order engine",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newServeCmd(), newAllCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and activate schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the commerce API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			runServe()
			return nil
		},
	}
}

func runMigrate() error {
	app := fx.New(
		observability.Module,
		config.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runServe() {
	app := fx.New(
		observability.Module,
		config.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
		events.Module,
		tax.Module,
		product.Module,
		providers.Module,
		discount.Module,
		directors.Module,
		order.Module,
		server.Module,
		fx.Invoke(seedDemoCatalog),
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func seedDemoCatalog(cfg config.Config, conn *gorm.DB, node *snowflake.Node) error {
	if !cfg.Seed.Enabled {
		return nil
	}
	return seed.EnsureDemoCatalog(conn, node)
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
