package storage

import (
	"context"
	"fmt"
)

// Config selects and configures the store backends.
type Config struct {
	Driver     string // "sqlite" or "postgres"
	SQLitePath string
	Postgres   PostgresConfig

	ClickHouseEnabled bool
	ClickHouse        ClickHouseConfig
}

// DefaultConfig returns a configuration with default local development settings.
func DefaultConfig() Config {
	return Config{
		Driver:     "sqlite",
		SQLitePath: "koabot.db",
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "koabot",
			User:     "koabot",
			Password: "koabot",
		},
		ClickHouse: ClickHouseConfig{
			Host:     "localhost",
			Port:     9000,
			Database: "koabot",
			User:     "default",
			Password: "",
		},
	}
}

// DB bundles the operations store with the optional line audit.
type DB struct {
	Store Store
	Audit *ClickHouseAudit // nil when disabled.
}

// Open opens the configured store and, when enabled, ClickHouse.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	var store Store
	var err error

	switch cfg.Driver {
	case "", "sqlite":
		store, err = OpenSQLite(ctx, cfg.SQLitePath)
	case "postgres":
		store, err = OpenPostgres(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Driver, err)
	}

	db := &DB{Store: store}
	if cfg.ClickHouseEnabled {
		ch, err := OpenClickHouse(ctx, cfg.ClickHouse)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("clickhouse: %w", err)
		}
		db.Audit = ch
	}
	return db, nil
}

// Close closes every open connection.
func (d *DB) Close() error {
	var errs []error
	if d.Audit != nil {
		if err := d.Audit.Close(); err != nil {
			errs = append(errs, fmt.Errorf("clickhouse: %w", err))
		}
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// CreateSchemas creates the schemas in every open database.
func (d *DB) CreateSchemas(ctx context.Context) error {
	if err := d.Store.CreateSchema(ctx); err != nil {
		return fmt.Errorf("store schema: %w", err)
	}
	if d.Audit != nil {
		if err := d.Audit.CreateSchema(ctx); err != nil {
			return fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	return nil
}
