package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

const DefaultTTL = 24 * time.Hour

// Хранилище записей кеша. Битая или протухшая запись удаляется при чтении
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Key - стабильный хеш от частей запроса
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

// Cache оборачивает бэкенд: ошибки чтения превращаются в промах, ведется статистика
type Cache struct {
	backend Backend
	log     zerolog.Logger

	hits   atomic.Int64
	misses atomic.Int64
	errs   atomic.Int64
}

func New(backend Backend, log zerolog.Logger) *Cache {
	return &Cache{backend: backend, log: log}
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	value, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.errs.Add(1)

		var cacheErr *model.CacheError
		if errors.As(err, &cacheErr) {
			c.log.Warn().Err(err).Str("key", key).Msg("corrupt cache entry evicted")
		} else {
			c.log.Error().Err(err).Str("key", key).Msg("cache read failed")
		}
	}

	if !ok {
		c.misses.Add(1)
		return "", false
	}

	c.hits.Add(1)
	return value, true
}

func (c *Cache) Set(ctx context.Context, key, value string) {
	if err := c.backend.Set(ctx, key, value); err != nil {
		c.errs.Add(1)
		c.log.Error().Err(err).Str("key", key).Msg("cache write failed")
	}
}

type Stats struct {
	Hits   int64
	Misses int64
	Errors int64
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Errors: c.errs.Load(),
	}
}
