package pgstore

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migrationLock keys the advisory lock held while migrating.
const migrationLock = 0x636c6e66

const bootstrap = `
CREATE SCHEMA IF NOT EXISTS clinicflow;
CREATE TABLE IF NOT EXISTS clinicflow.schema_migrations (
    version    TEXT        PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// RunMigrations applies the embedded migrations that are not yet recorded in
// clinicflow.schema_migrations, in file name order and in one transaction.
// Concurrent callers are serialized by an advisory lock.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	files, err := migrationNames()
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLock); err != nil {
			return fmt.Errorf("lock migrations: %w", err)
		}
		if _, err := tx.Exec(ctx, bootstrap); err != nil {
			return fmt.Errorf("create migrations table: %w", err)
		}

		rows, err := tx.Query(ctx, `SELECT version FROM clinicflow.schema_migrations`)
		if err != nil {
			return fmt.Errorf("list applied migrations: %w", err)
		}
		applied, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("list applied migrations: %w", err)
		}

		for _, file := range files {
			if slices.Contains(applied, file) {
				continue
			}

			content, err := migrationFiles.ReadFile("migrations/" + file)
			if err != nil {
				return fmt.Errorf("read migration %s: %w", file, err)
			}
			if _, err := tx.Exec(ctx, string(content)); err != nil {
				return fmt.Errorf("execute migration %s: %w", file, err)
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO clinicflow.schema_migrations (version) VALUES ($1)`, file); err != nil {
				return fmt.Errorf("record migration %s: %w", file, err)
			}
		}

		return nil
	})
}

func migrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	slices.Sort(files)

	return files, nil
}
