// Package sqlstore implements archetype.Service on database/sql for the
// SQLite (modernc) and MySQL drivers.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/rom8726/clinicflow/archetype"
)

//go:embed migrations/sqlite/*.sql migrations/mysql/*.sql
var migrationFiles embed.FS

var _ archetype.Service = (*Store)(nil)

// Dialect captures the differences between the supported SQL engines.
type Dialect struct {
	Name       string
	Driver     string
	Migrations string
	// LockClause is appended to the version check inside Save.
	LockClause string
}

var (
	SQLite = Dialect{Name: "sqlite", Driver: "sqlite", Migrations: "migrations/sqlite"}
	MySQL  = Dialect{Name: "mysql", Driver: "mysql", Migrations: "migrations/mysql", LockClause: " FOR UPDATE"}
)

type Store struct {
	db      *sql.DB
	dialect Dialect
	mu      sync.Mutex // serialize writers; SQLite allows a single one anyway
}

// NewSQLite opens a SQLite database. An empty dsn opens a private
// in-memory database.
func NewSQLite(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open(SQLite.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode=WAL;")
	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout=5000;")
	// single connection keeps :memory: consistent
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store, err := New(ctx, db, SQLite)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// NewMySQL opens a MySQL database using a go-sql-driver DSN.
func NewMySQL(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open(MySQL.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	store, err := New(ctx, db, MySQL)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// New wraps an open database and applies the dialect's migrations.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	if err := RunMigrations(ctx, db, dialect); err != nil {
		return nil, err
	}

	return &Store{db: db, dialect: dialect}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RunMigrations executes the embedded migrations for dialect in lexical
// order within a single transaction.
func RunMigrations(ctx context.Context, db *sql.DB, dialect Dialect) error {
	entries, err := fs.ReadDir(migrationFiles, dialect.Migrations)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		content, err := migrationFiles.ReadFile(dialect.Migrations + "/" + e.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", e.Name(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	tx = nil

	return nil
}

func (s *Store) Create(_ context.Context, shortName string) (*archetype.IMObject, error) {
	return archetype.NewIMObject(shortName, uuid.NewString()), nil
}

func (s *Store) Get(ctx context.Context, ref archetype.Reference) (*archetype.IMObject, error) {
	const q = `SELECT data FROM objects WHERE short_name = ? AND id = ?`

	var data []byte
	err := s.db.QueryRowContext(ctx, q, ref.ShortName, ref.ID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", archetype.ErrNotFound, ref)
		}
		return nil, fmt.Errorf("get %s: %w", ref, err)
	}

	return decode(data)
}

func (s *Store) Query(ctx context.Context, query *archetype.Query) ([]*archetype.IMObject, error) {
	q := `SELECT data FROM objects`
	patterns := query.ShortNameLikePatterns()
	args := make([]any, 0, len(patterns))
	if len(patterns) > 0 {
		clauses := make([]string, len(patterns))
		for i, p := range patterns {
			clauses[i] = "short_name LIKE ?"
			args = append(args, p)
		}
		q += " WHERE " + strings.Join(clauses, " OR ")
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query objects: %w", err)
	}
	defer rows.Close()

	var candidates []*archetype.IMObject
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}
		obj, err := decode(data)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate objects: %w", err)
	}

	return query.Apply(candidates), nil
}

func (s *Store) Save(ctx context.Context, objects ...*archetype.IMObject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	saved := make([]*archetype.IMObject, 0, len(objects))
	for _, obj := range objects {
		next := obj.Clone()
		if err := s.save(ctx, tx, next); err != nil {
			return err
		}
		saved = append(saved, next)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	tx = nil

	for i, obj := range objects {
		obj.Version = saved[i].Version
	}

	return nil
}

func (s *Store) save(ctx context.Context, tx *sql.Tx, obj *archetype.IMObject) error {
	if obj.ID == "" || obj.ShortName == "" {
		return fmt.Errorf("save %s: missing identity", obj.Ref())
	}

	var stored int64
	err := tx.QueryRowContext(ctx,
		`SELECT version FROM objects WHERE short_name = ? AND id = ?`+s.dialect.LockClause,
		obj.ShortName, obj.ID,
	).Scan(&stored)
	exists := true
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
	} else if err != nil {
		return fmt.Errorf("read version %s: %w", obj.Ref(), err)
	}

	switch {
	case !exists && obj.Version != 0:
		return fmt.Errorf("%w: %s", archetype.ErrNotFound, obj.Ref())
	case exists && stored != obj.Version:
		return fmt.Errorf("%w: %s", archetype.ErrStale, obj.Ref())
	}

	obj.Version++
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", obj.Ref(), err)
	}
	now := time.Now().UnixNano()

	if exists {
		_, err = tx.ExecContext(ctx,
			`UPDATE objects SET name = ?, version = ?, data = ?, updated_at = ? WHERE short_name = ? AND id = ?`,
			obj.Name, obj.Version, string(data), now, obj.ShortName, obj.ID,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO objects (short_name, id, name, version, data, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			obj.ShortName, obj.ID, obj.Name, obj.Version, string(data), now,
		)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", obj.Ref(), err)
	}

	return nil
}

func (s *Store) Remove(ctx context.Context, ref archetype.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM objects WHERE short_name = ? AND id = ?`, ref.ShortName, ref.ID)
	if err != nil {
		return fmt.Errorf("remove %s: %w", ref, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove %s: %w", ref, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", archetype.ErrNotFound, ref)
	}

	return nil
}

func decode(data []byte) (*archetype.IMObject, error) {
	var obj archetype.IMObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("unmarshal object: %w", err)
	}

	return &obj, nil
}
