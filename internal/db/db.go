// Package db provides PostgreSQL storage for run records and the parsed
// profile cache.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping checks connectivity.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS letter_runs (
	id            UUID PRIMARY KEY,
	kind          TEXT NOT NULL,
	status        TEXT NOT NULL,
	tone          TEXT NOT NULL DEFAULT '',
	job_hash      TEXT NOT NULL DEFAULT '',
	resume_hash   TEXT NOT NULL DEFAULT '',
	attempts      INT NOT NULL DEFAULT 0,
	best_effort   BOOLEAN NOT NULL DEFAULT FALSE,
	cover_letter  TEXT,
	result        JSONB,
	error_message TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS letter_run_steps (
	id            BIGSERIAL PRIMARY KEY,
	run_id        UUID NOT NULL REFERENCES letter_runs(id) ON DELETE CASCADE,
	step          TEXT NOT NULL,
	attempt       INT NOT NULL,
	status        TEXT NOT NULL,
	duration_ms   BIGINT NOT NULL,
	error_message TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_letter_run_steps_run_id ON letter_run_steps(run_id);

CREATE TABLE IF NOT EXISTS profile_cache (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	expires_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate creates the tables if they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
