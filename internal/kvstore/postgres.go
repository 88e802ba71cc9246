// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package kvstore

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"neardeal/cli/internal/dsn"
	apperrors "neardeal/cli/internal/errors"
)

const postgresTable = "auth_kv"

const createPostgresTable = `CREATE TABLE IF NOT EXISTS ` + postgresTable + ` (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertPostgres = `INSERT INTO ` + postgresTable + ` (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

// Postgres is a Store on a PostgreSQL table. MultiSet runs in one transaction.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects with rawDSN and creates the table if needed.
func OpenPostgres(ctx context.Context, rawDSN string) (*Postgres, error) {
	normalized, err := dsn.Normalize(rawDSN)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ConfigInvalid, "storage.postgres_dsn", err)
	}
	pool, err := pgxpool.New(ctx, normalized)
	if err != nil {
		return nil, unavailable("connect postgres", err)
	}
	if _, err := pool.Exec(ctx, createPostgresTable); err != nil {
		pool.Close()
		return nil, unavailable("create "+postgresTable, err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) MultiSet(ctx context.Context, pairs map[string]string) error {
	if len(pairs) == 0 {
		return nil
	}
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for k, v := range pairs {
			batch.Queue(upsertPostgres, k, v)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return unavailable("postgres multiset", err)
	}
	return nil
}

func (p *Postgres) MultiGet(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	rows, err := p.pool.Query(ctx, `SELECT key, value FROM `+postgresTable+` WHERE key = ANY($1)`, keys)
	if err != nil {
		return nil, unavailable("postgres multiget", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, unavailable("postgres scan", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("postgres multiget", err)
	}
	return out, nil
}

func (p *Postgres) MultiRemove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := p.pool.Exec(ctx, `DELETE FROM `+postgresTable+` WHERE key = ANY($1)`, keys); err != nil {
		return unavailable("postgres multiremove", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
