package cache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS response_cache (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	written_at TIMESTAMPTZ NOT NULL
)`

// Кеш в Postgres, общий для нескольких инстансов радара
type PostgresCache struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time
}

func NewPostgresCache(db *sqlx.DB, ttl time.Duration) *PostgresCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PostgresCache{db: db, ttl: ttl, now: time.Now}
}

func (c *PostgresCache) EnsureSchema(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, schema)
	return err
}

func (c *PostgresCache) Get(ctx context.Context, key string) (string, bool, error) {
	conn, err := c.db.Connx(ctx)
	if err != nil {
		return "", false, err
	}
	defer conn.Close()

	var row dbCacheEntry
	err = conn.GetContext(ctx, &row, `SELECT key, value, written_at FROM response_cache WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if c.now().Sub(row.WrittenAt) >= c.ttl {
		if _, err := conn.ExecContext(ctx, `DELETE FROM response_cache WHERE key = $1 AND written_at = $2`, key, row.WrittenAt); err != nil {
			return "", false, err
		}
		return "", false, nil
	}

	return row.Value, true, nil
}

func (c *PostgresCache) Set(ctx context.Context, key, value string) error {
	conn, err := c.db.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.ExecContext(
		ctx,
		`INSERT INTO response_cache (key, value, written_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, written_at = EXCLUDED.written_at`,
		key,
		value,
		c.now().UTC(),
	)
	return err
}

type dbCacheEntry struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	WrittenAt time.Time `db:"written_at"`
}
