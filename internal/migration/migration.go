package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// RunMigrations applies all embedded migrations under the schema advisory
// lock and activates the resulting schema state.
func RunMigrations(db *sql.DB, log *zap.Logger) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("migration")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	return withSchemaLock(ctx, db, func(msg string) { log.Warn(msg) }, func(ctx context.Context) error {
		latest, checksum, err := migrationManifest()
		if err != nil {
			return err
		}

		migrator, err := newMigrator(db)
		if err != nil {
			return err
		}

		if _, err := cleanVersion(migrator); err != nil {
			return err
		}

		if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("apply migrations: %w", err)
		}

		current, err := cleanVersion(migrator)
		if err != nil {
			return err
		}
		if current != latest {
			return fmt.Errorf("schema version mismatch after migrate: got %d want %d", current, latest)
		}

		log.Info("schema is current", zap.Uint("version", current))
		return activateSchemaState(ctx, db, strconv.FormatUint(uint64(latest), 10), checksum)
	})
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", source, "postgres", driver)
}

// cleanVersion reads the schema version and refuses a dirty state. A fresh
// database reports version zero.
func cleanVersion(migrator *migrate.Migrate) (uint, error) {
	version, dirty, err := migrator.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, nil
		}
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("schema is dirty at version %d, refusing to migrate", version)
	}
	return version, nil
}
