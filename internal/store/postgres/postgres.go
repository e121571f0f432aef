// Package postgres implements the store.Store contract on PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/auto-applier/internal/store"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*DB)(nil)

// Connect establishes a connection pool and bootstraps the schema.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{pool: pool}
	if err := db.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	company       TEXT NOT NULL,
	location      TEXT NOT NULL DEFAULT '',
	url           TEXT NOT NULL UNIQUE,
	apply_url     TEXT NOT NULL DEFAULT '',
	source        TEXT NOT NULL DEFAULT 'other',
	vendor        TEXT NOT NULL DEFAULT 'unknown',
	status        TEXT NOT NULL DEFAULT 'new',
	discovered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	applied_at    TIMESTAMPTZ,
	tags          TEXT[] NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_jobs_status_discovered
	ON jobs (status, discovered_at);

CREATE TABLE IF NOT EXISTS applications (
	id              TEXT PRIMARY KEY,
	job_id          TEXT NOT NULL REFERENCES jobs (id),
	job_title       TEXT NOT NULL DEFAULT '',
	company         TEXT NOT NULL DEFAULT '',
	job_url         TEXT NOT NULL DEFAULT '',
	vendor          TEXT NOT NULL DEFAULT 'unknown',
	status          TEXT NOT NULL DEFAULT 'pending',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	started_at      TIMESTAMPTZ,
	completed_at    TIMESTAMPTZ,
	questions       JSONB NOT NULL DEFAULT '[]',
	logs            JSONB NOT NULL DEFAULT '[]',
	error_message   TEXT NOT NULL DEFAULT '',
	retry_count     INT NOT NULL DEFAULT 0,
	max_retries     INT NOT NULL DEFAULT 3,
	resume_uploaded BOOLEAN NOT NULL DEFAULT FALSE,
	screenshots     TEXT[] NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_applications_job ON applications (job_id);
`

func (db *DB) ensureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to bootstrap schema: %w", err)
	}
	return nil
}
