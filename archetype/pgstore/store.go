// Package pgstore implements archetype.Service on PostgreSQL via pgx.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rom8726/clinicflow/archetype"
)

var _ archetype.Service = (*Store)(nil)

type Store struct {
	db        Tx
	txManager *TxManager
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{db: pool, txManager: NewTxManager(pool)}
}

func (store *Store) TxManager() *TxManager {
	return store.txManager
}

func (store *Store) Create(_ context.Context, shortName string) (*archetype.IMObject, error) {
	return archetype.NewIMObject(shortName, uuid.NewString()), nil
}

func (store *Store) Get(ctx context.Context, ref archetype.Reference) (*archetype.IMObject, error) {
	executor := store.getExecutor(ctx)

	const query = `
SELECT data
FROM clinicflow.objects
WHERE short_name = $1 AND id = $2`

	var data []byte
	if err := executor.QueryRow(ctx, query, ref.ShortName, ref.ID).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", archetype.ErrNotFound, ref)
		}

		return nil, fmt.Errorf("get %s: %w", ref, err)
	}

	return decode(data)
}

func (store *Store) Query(ctx context.Context, q *archetype.Query) ([]*archetype.IMObject, error) {
	executor := store.getExecutor(ctx)

	query := `SELECT data FROM clinicflow.objects`
	var args []any
	if patterns := q.ShortNameLikePatterns(); len(patterns) > 0 {
		query += ` WHERE short_name LIKE ANY($1)`
		args = append(args, patterns)
	}

	rows, err := executor.Query(ctx, query, args...)
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

	return q.Apply(candidates), nil
}

func (store *Store) Save(ctx context.Context, objects ...*archetype.IMObject) error {
	saved := make([]*archetype.IMObject, len(objects))

	err := store.txManager.ReadCommitted(ctx, func(ctx context.Context) error {
		for i, obj := range objects {
			next := obj.Clone()
			if err := store.save(ctx, next); err != nil {
				return err
			}
			saved[i] = next
		}

		return nil
	})
	if err != nil {
		return err
	}

	for i, obj := range objects {
		obj.Version = saved[i].Version
	}

	return nil
}

func (store *Store) save(ctx context.Context, obj *archetype.IMObject) error {
	if obj.ID == "" || obj.ShortName == "" {
		return fmt.Errorf("save %s: missing identity", obj.Ref())
	}

	executor := store.getExecutor(ctx)

	const selectQuery = `
SELECT version
FROM clinicflow.objects
WHERE short_name = $1 AND id = $2
FOR UPDATE`

	var stored int64
	exists := true
	err := executor.QueryRow(ctx, selectQuery, obj.ShortName, obj.ID).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
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

	const upsert = `
INSERT INTO clinicflow.objects (short_name, id, name, version, data, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (short_name, id) DO UPDATE
SET name = EXCLUDED.name, version = EXCLUDED.version, data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`

	if _, err := executor.Exec(ctx, upsert,
		obj.ShortName, obj.ID, obj.Name, obj.Version, data, time.Now(),
	); err != nil {
		return fmt.Errorf("write %s: %w", obj.Ref(), err)
	}

	return nil
}

func (store *Store) Remove(ctx context.Context, ref archetype.Reference) error {
	executor := store.getExecutor(ctx)

	const query = `DELETE FROM clinicflow.objects WHERE short_name = $1 AND id = $2`

	tag, err := executor.Exec(ctx, query, ref.ShortName, ref.ID)
	if err != nil {
		return fmt.Errorf("remove %s: %w", ref, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", archetype.ErrNotFound, ref)
	}

	return nil
}

func (store *Store) getExecutor(ctx context.Context) Tx {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}

	return store.db
}

func decode(data []byte) (*archetype.IMObject, error) {
	var obj archetype.IMObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("unmarshal object: %w", err)
	}

	return &obj, nil
}
