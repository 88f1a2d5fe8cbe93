package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rom8726/clinicflow/archetype"
	"github.com/rom8726/clinicflow/archetype/diskvstore"
	"github.com/rom8726/clinicflow/archetype/pgstore"
	"github.com/rom8726/clinicflow/archetype/sqlstore"
	"github.com/rom8726/clinicflow/internal/config"
)

// openService opens the configured archetype backend. The returned close
// function releases it.
func openService(ctx context.Context, cfg config.StoreConfig) (archetype.Service, func(), error) {
	noop := func() {}

	switch cfg.Driver {
	case config.DriverMemory:
		return archetype.NewMemoryService(), noop, nil
	case config.DriverDiskv:
		return diskvstore.New(cfg.Path), noop, nil
	case config.DriverSQLite:
		store, err := sqlstore.NewSQLite(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}

		return store, func() { _ = store.Close() }, nil
	case config.DriverMySQL:
		store, err := sqlstore.NewMySQL(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}

		return store, func() { _ = store.Close() }, nil
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pgstore.RunMigrations(ctx, pool); err != nil {
			pool.Close()

			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}

		return pgstore.New(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
