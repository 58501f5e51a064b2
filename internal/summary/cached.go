package summary

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/kovalyov-valentin/news-radar/internal/cache"
	"github.com/kovalyov-valentin/news-radar/internal/model"
)

type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

type CachedOption func(*Cached)

// WithRateLimit ограничивает число обращений к генератору в минуту
func WithRateLimit(perMinute int) CachedOption {
	return func(c *Cached) {
		if perMinute > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
		}
	}
}

func WithCallTimeout(d time.Duration) CachedOption {
	return func(c *Cached) {
		c.timeout = d
	}
}

// Cached оборачивает генератор кешем, бюджетом на вызов и ограничением частоты.
// Ошибки не кешируются
type Cached struct {
	next    Generator
	cache   Cache
	limiter *rate.Limiter
	timeout time.Duration

	calls atomic.Int64
	hits  atomic.Int64
}

func NewCached(next Generator, c Cache, opts ...CachedOption) *Cached {
	g := &Cached{
		next:    next,
		cache:   c,
		limiter: rate.NewLimiter(rate.Inf, 1),
		timeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

func (g *Cached) Generate(ctx context.Context, prompt string, maxLength int) (string, error) {
	key := cache.Key("generate", prompt, strconv.Itoa(maxLength))

	if g.cache != nil {
		if value, ok := g.cache.Get(ctx, key); ok {
			g.hits.Add(1)
			return value, nil
		}
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return "", &model.TimeoutError{Op: "generate", Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	g.calls.Add(1)
	text, err := g.next.Generate(callCtx, prompt, maxLength)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", &model.TimeoutError{Op: "generate", Err: err}
		}
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &model.ExternalServiceError{Service: "generate", Err: errEmptyResponse}
	}

	if g.cache != nil {
		g.cache.Set(ctx, key, text)
	}

	return text, nil
}

// Calls сколько раз дошли до генератора (промахи кеша)
func (g *Cached) Calls() int64 {
	return g.calls.Load()
}

func (g *Cached) Hits() int64 {
	return g.hits.Load()
}
