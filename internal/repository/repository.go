// Package repository opens the reminder store selected by configuration.
package repository

import (
	"context"
	"fmt"

	"github.com/X1ag/ReminderBot/internal/config"
	"github.com/X1ag/ReminderBot/internal/domain"
	"github.com/X1ag/ReminderBot/internal/repository/memory"
	"github.com/X1ag/ReminderBot/internal/repository/postgres"
	"github.com/X1ag/ReminderBot/internal/repository/sqlite"
)

// Open returns a connected store. The connection is established first, so a
// database that is still starting gets the backend's connect retry, and only
// then are migrations applied when cfg.Migrate is set.
func Open(ctx context.Context, cfg config.DatabaseConfig) (domain.Store, error) {
	store, err := open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Migrate {
		if err := Migrate(cfg); err != nil {
			store.Close()
			return nil, err
		}
	}
	return store, nil
}

func open(ctx context.Context, cfg config.DatabaseConfig) (domain.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.DSN)
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.DSN)
	case config.DriverMemory:
		return memory.NewReminderRepository(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// Migrate applies the schema for the configured driver.
func Migrate(cfg config.DatabaseConfig) error {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.RunMigrations(cfg.DSN)
	case config.DriverSQLite:
		return sqlite.RunMigrations(cfg.DSN)
	case config.DriverMemory:
		return nil
	default:
		return fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
