package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pynay/LetterChain/internal/cache"
)

// ProfileCache is a cache.Store backed by the profile_cache table.
type ProfileCache struct {
	db *DB
}

var _ cache.Store = (*ProfileCache)(nil)

// NewProfileCache returns a Postgres-backed profile store.
func NewProfileCache(db *DB) *ProfileCache {
	return &ProfileCache{db: db}
}

// Get returns a live entry.
func (c *ProfileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := c.db.pool.QueryRow(ctx,
		`SELECT value FROM profile_cache
		 WHERE key = $1 AND (expires_at IS NULL OR expires_at > NOW())`,
		key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return value, true, nil
}

// Set upserts an entry. A non-positive ttl never expires.
func (c *ProfileCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expires *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expires = &t
	}
	_, err := c.db.pool.Exec(ctx,
		`INSERT INTO profile_cache (key, value, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = $2, expires_at = $3, created_at = NOW()`,
		key, value, expires,
	)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Purge deletes expired entries and reports how many were removed.
func (c *ProfileCache) Purge(ctx context.Context) (int64, error) {
	tag, err := c.db.pool.Exec(ctx, `DELETE FROM profile_cache WHERE expires_at IS NOT NULL AND expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	return tag.RowsAffected(), nil
}
