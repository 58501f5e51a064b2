package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     string
	writtenAt time.Time
}

// Кеш в памяти. Каждый ключ - отдельная запись в sync.Map,
// так что обращения к разным ключам не конкурируют за общий лок
type MemoryCache struct {
	entries sync.Map
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{ttl: ttl, now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := c.entries.Load(key)
	if !ok {
		return "", false, nil
	}

	e := v.(*entry)
	if c.now().Sub(e.writtenAt) >= c.ttl {
		// Удаляем только ту запись, которую прочитали, свежий Set не трогаем
		c.entries.CompareAndDelete(key, e)
		return "", false, nil
	}

	return e.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key, value string) error {
	c.entries.Store(key, &entry{value: value, writtenAt: c.now()})
	return nil
}

// Периодическая чистка протухших записей, которые никто не читает
func (c *MemoryCache) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *MemoryCache) sweep() {
	now := c.now()
	c.entries.Range(func(k, v any) bool {
		if e := v.(*entry); now.Sub(e.writtenAt) >= c.ttl {
			c.entries.CompareAndDelete(k, e)
		}
		return true
	})
}
