package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/kovalyov-valentin/news-radar/internal/cache"
	"github.com/kovalyov-valentin/news-radar/internal/model"
	"github.com/kovalyov-valentin/news-radar/internal/source"
)

const DefaultTimeout = 10 * time.Second

type SourceProvider interface {
	Sources(ctx context.Context) ([]model.Source, error)
}

type Normalizer interface {
	Normalize(payload model.RawPayload) (items []model.NewsItem, dropped int, err error)
}

type Governor interface {
	Track(source, kind string, interval time.Duration)
	Acquire(source string) bool
	Wait(source string) time.Duration
}

type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// Интерфейс источника
type Source interface {
	ID() int64
	Name() string
	Model() model.Source
	Fetch(ctx context.Context) (model.RawPayload, error)
}

// Итог обращения к одному источнику
type Result struct {
	Source    string
	Items     []model.NewsItem
	Dropped   int
	FromCache bool
	Err       error
}

type Batch struct {
	Items   []model.NewsItem
	Results []Result
}

func (b Batch) count(match func(Result) bool) int {
	n := 0
	for _, r := range b.Results {
		if match(r) {
			n++
		}
	}
	return n
}

func (b Batch) Skipped() int {
	return b.count(func(r Result) bool {
		var rl *RateLimitedError
		return errors.As(r.Err, &rl)
	})
}

func (b Batch) Failed() int {
	return b.count(func(r Result) bool {
		var rl *RateLimitedError
		return r.Err != nil && !errors.As(r.Err, &rl)
	})
}

func (b Batch) Dropped() int {
	n := 0
	for _, r := range b.Results {
		n += r.Dropped
	}
	return n
}

// Структура сборщика
type Fetcher struct {
	sources    SourceProvider
	normalizer Normalizer
	governor   Governor
	// Может быть nil, тогда ответы не кешируются
	cache Cache

	client         *http.Client
	defaultTimeout time.Duration
	maxRetries     uint64
	log            zerolog.Logger
}

type Option func(*Fetcher)

func WithCache(c Cache) Option {
	return func(f *Fetcher) { f.cache = c }
}

func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

func WithDefaultTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.defaultTimeout = d
		}
	}
}

func WithMaxRetries(n uint64) Option {
	return func(f *Fetcher) { f.maxRetries = n }
}

func NewFetcher(sourceProvider SourceProvider, normalizer Normalizer, governor Governor, log zerolog.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		sources:        sourceProvider,
		normalizer:     normalizer,
		governor:       governor,
		client:         http.DefaultClient,
		defaultTimeout: DefaultTimeout,
		maxRetries:     2,
		log:            log,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch опрашивает все источники параллельно. Ошибка возвращается только если
// не удалось получить сам список источников
func (f *Fetcher) Fetch(ctx context.Context) (Batch, error) {
	sources, err := f.sources.Sources(ctx)
	if err != nil {
		return Batch{}, fmt.Errorf("list sources: %w", err)
	}
	if len(sources) == 0 {
		return Batch{}, model.ErrNoSources
	}

	// Каждый источник в своей горутине, медленный или сломанный источник не задерживает остальные.
	// Результаты пишутся по индексу, общего изменяемого состояния нет
	var (
		wg      sync.WaitGroup
		results = make([]Result, len(sources))
	)

	for i, m := range sources {
		wg.Add(1)

		go func(i int, m model.Source) {
			defer wg.Done()
			results[i] = f.fetchSource(ctx, m)
		}(i, m)
	}

	wg.Wait()

	batch := Batch{Results: results}
	for _, r := range results {
		batch.Items = append(batch.Items, r.Items...)
	}

	return batch, nil
}

func (f *Fetcher) fetchSource(ctx context.Context, m model.Source) (res Result) {
	res.Source = m.Name
	log := f.log.With().Str("source", m.Name).Logger()

	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Bytes("stack", debug.Stack()).Msg("panic recovered while fetching")
			res = Result{Source: m.Name, Err: &SourceError{Source: m.Name, Err: fmt.Errorf("panic: %v", p)}}
		}
	}()

	src, err := source.New(m, f.client)
	if err != nil {
		log.Error().Err(err).Msg("bad source definition")
		return Result{Source: m.Name, Err: &SourceError{Source: m.Name, Err: err}}
	}

	payload, err := f.FetchOne(ctx, src)
	if err != nil {
		var rl *RateLimitedError
		if !errors.As(err, &rl) {
			log.Error().Err(err).Msg("fetching items")
			res.Err = err
			return res
		}

		// Источник остывает: если есть свежий ответ в кеше, работаем с ним
		res.Err = err
		cached, ok := f.cached(ctx, m)
		if !ok {
			log.Debug().Dur("wait", rl.Wait).Msg("source skipped by rate limit")
			return res
		}

		payload = cached
		res.FromCache = true
	}

	items, dropped, err := f.normalizer.Normalize(payload)
	if err != nil {
		log.Error().Err(err).Msg("processing items")
		res.Err = &SourceError{Source: m.Name, Err: err}
		return res
	}

	log.Debug().Int("items", len(items)).Int("dropped", dropped).Bool("cached", res.FromCache).Msg("source processed")

	res.Items = items
	res.Dropped = dropped
	return res
}

// FetchOne выполняет один запрос к источнику под жестким дедлайном.
// Попытка записывается в governor до запроса, поэтому источник остывает даже после таймаута
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (model.RawPayload, error) {
	name := src.Name()
	m := src.Model()

	f.governor.Track(name, m.Kind, m.MinInterval)
	if !f.governor.Acquire(name) {
		return model.RawPayload{}, &RateLimitedError{Source: name, Wait: f.governor.Wait(name)}
	}

	timeout := m.FetchTimeout
	if timeout <= 0 {
		timeout = f.defaultTimeout
	}

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := f.fetchWithRetry(fetchCtx, src)
	if err != nil {
		if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			return model.RawPayload{}, &model.TimeoutError{Op: "fetch " + name, Err: context.DeadlineExceeded}
		}
		return model.RawPayload{}, &SourceError{Source: name, Err: err}
	}

	if f.cache != nil {
		f.cache.Set(ctx, cacheKey(src.Model()), string(payload.Body))
	}

	return payload, nil
}

// Временные ошибки провайдера (429, 5xx) повторяем с экспоненциальной задержкой в рамках того же дедлайна
func (f *Fetcher) fetchWithRetry(ctx context.Context, src Source) (model.RawPayload, error) {
	var payload model.RawPayload

	operation := func() error {
		p, err := src.Fetch(ctx)
		if err != nil {
			var statusErr *source.StatusError
			if errors.As(err, &statusErr) && statusErr.Temporary() {
				return err
			}
			return backoff.Permanent(err)
		}

		payload = p
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, f.maxRetries), ctx)); err != nil {
		return model.RawPayload{}, err
	}

	return payload, nil
}

func (f *Fetcher) cached(ctx context.Context, m model.Source) (model.RawPayload, bool) {
	if f.cache == nil {
		return model.RawPayload{}, false
	}

	body, ok := f.cache.Get(ctx, cacheKey(m))
	if !ok {
		return model.RawPayload{}, false
	}

	return model.RawPayload{Source: m, Body: []byte(body), FetchedAt: time.Now().UTC()}, true
}

func cacheKey(m model.Source) string {
	return cache.Key("fetch", m.Name, m.Kind, m.FeedURL, m.Query)
}
