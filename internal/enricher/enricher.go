package enricher

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/kovalyov-valentin/news-radar/internal/model"
	"github.com/kovalyov-valentin/news-radar/internal/scoring"
)

const (
	maxEntities = 20
	maxSources  = 5
	maxBullets  = 3
	maxTimeline = 5
)

type Extractor interface {
	Extract(ctx context.Context, text string) model.Entities
}

type Generator interface {
	Generate(ctx context.Context, prompt string, maxLength int) (string, error)
}

type Option func(*Enricher)

// WithConcurrency задает, сколько кластеров обогащаются одновременно
func WithConcurrency(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithCallTimeout задает бюджет на один вызов генератора
func WithCallTimeout(d time.Duration) Option {
	return func(e *Enricher) {
		if d > 0 {
			e.callTimeout = d
		}
	}
}

// Enricher превращает кластер новостей в готовый к публикации материал
type Enricher struct {
	extractor   Extractor
	generator   Generator
	concurrency int
	callTimeout time.Duration
	log         zerolog.Logger
}

func New(extractor Extractor, generator Generator, log zerolog.Logger, opts ...Option) *Enricher {
	e := &Enricher{
		extractor:   extractor,
		generator:   generator,
		concurrency: 4,
		callTimeout: 30 * time.Second,
		log:         log,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Report итоги обогащения пачки кластеров
type Report struct {
	Failed   int
	Degraded int
}

// EnrichAll обрабатывает кластеры параллельно. Ошибка одного кластера
// не влияет на остальные: он просто не попадает в результат
func (e *Enricher) EnrichAll(ctx context.Context, clusters []model.EventCluster) ([]model.EnrichedEvent, Report) {
	var (
		results = make([]*model.EnrichedEvent, len(clusters))
		failed  atomic.Int64
		g       errgroup.Group
	)
	g.SetLimit(e.concurrency)

	for i, cl := range clusters {
		i, cl := i, cl
		g.Go(func() error {
			event, err := e.Enrich(ctx, cl)
			if err != nil {
				failed.Add(1)
				e.log.Error().Err(err).Str("cluster", cl.Key).Msg("cluster enrichment failed")
				return nil
			}
			results[i] = &event
			return nil
		})
	}
	_ = g.Wait()

	events := make([]model.EnrichedEvent, 0, len(clusters))
	report := Report{Failed: int(failed.Load())}
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Degraded {
			report.Degraded++
		}
		events = append(events, *r)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Hotness > events[j].Hotness
	})

	return events, report
}

// Enrich собирает материал по одному кластеру. Сущности, хронология и заголовок
// строятся параллельно; why-now ждет сущности, черновик ждет why-now
func (e *Enricher) Enrich(ctx context.Context, cl model.EventCluster) (model.EnrichedEvent, error) {
	if cl.Representative == nil {
		return model.EnrichedEvent{}, fmt.Errorf("cluster %s has no representative", cl.Key)
	}

	rep := cl.Representative
	text := rep.Item.Text()

	var (
		entities model.Entities
		timeline []model.TimelineEntry
		headline string
		whyNow   string
		draft    model.Draft
		degraded atomic.Bool

		g            errgroup.Group
		entitiesDone = make(chan struct{})
	)

	g.Go(guard(cl.Key, func() error {
		defer close(entitiesDone)
		entities = e.extractor.Extract(ctx, text)
		return nil
	}))

	g.Go(guard(cl.Key, func() error {
		timeline = buildTimeline(cl.Members)
		return nil
	}))

	g.Go(guard(cl.Key, func() error {
		headline = e.generate(ctx, "Создай краткий заголовок: "+truncate(text, 200), 80, headlineFallback, &degraded)
		if utf8.RuneCountInString(headline) < 10 {
			headline = headlineFallback
		}
		return nil
	}))

	g.Go(guard(cl.Key, func() error {
		select {
		case <-entitiesDone:
		case <-ctx.Done():
			return ctx.Err()
		}

		whyNow = e.generate(ctx, whyNowPrompt(text, entities, rep.Score), 150, whyNowFallback, &degraded)

		var err error
		draft, err = e.buildDraft(ctx, text, entities, whyNow, &degraded)
		return err
	}))

	if err := g.Wait(); err != nil {
		return model.EnrichedEvent{}, err
	}

	return model.EnrichedEvent{
		Headline:   headline,
		Hotness:    rep.Score.Total,
		WhyNow:     whyNow,
		Entities:   lo.Slice(lo.Uniq(entities.Flatten()), 0, maxEntities),
		Sources:    lo.Slice(cl.SourceURLs, 0, maxSources),
		Timeline:   timeline,
		Draft:      draft,
		DedupGroup: cl.Key,
		Degraded:   degraded.Load(),
	}, nil
}

func (e *Enricher) buildDraft(ctx context.Context, text string, entities model.Entities, whyNow string, degraded *atomic.Bool) (model.Draft, error) {
	var (
		draft model.Draft
		g     errgroup.Group
	)

	g.Go(guard("draft", func() error {
		draft.Headline = e.generate(ctx, "Создай заголовок для новости: "+truncate(text, 200), 100, draftHeadlineFallback, degraded)
		return nil
	}))

	g.Go(guard("draft", func() error {
		prompt := "Напиши краткий лид-абзац для новости: " + truncate(text, 300) + " Контекст: " + whyNow
		draft.Lead = e.generate(ctx, prompt, 300, leadFallback, degraded)
		return nil
	}))

	g.Go(guard("draft", func() error {
		quote := e.generate(ctx, "Создай экспертную цитату по поводу: "+truncate(text, 200), 200, quoteFallback, degraded)
		if utf8.RuneCountInString(quote) < 20 {
			quote = quoteFallback
		}
		draft.Quote = quote
		return nil
	}))

	draft.Bullets = buildBullets(entities)

	if err := g.Wait(); err != nil {
		return model.Draft{}, err
	}
	return draft, nil
}

// generate вызывает генератор с ограничением по времени и подставляет заготовку при ошибке
func (e *Enricher) generate(ctx context.Context, prompt string, maxLength int, fallback string, degraded *atomic.Bool) string {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	text, err := e.generator.Generate(callCtx, prompt, maxLength)
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		degraded.Store(true)
		e.log.Warn().Err(err).Msg("generation failed, using fallback")
		return fallback
	}

	return truncate(text, maxLength)
}

func whyNowPrompt(text string, entities model.Entities, score model.HotnessScore) string {
	var sb strings.Builder
	sb.WriteString("Почему эта новость важна сейчас: ")
	sb.WriteString(truncate(text, 300))

	if names := entities.Flatten(); len(names) > 0 {
		sb.WriteString(" Участники: ")
		sb.WriteString(strings.Join(lo.Slice(names, 0, 5), ", "))
		sb.WriteString(".")
	}

	fmt.Fprintf(&sb, " Горячесть %.2f, %s.", score.Total, scoring.Category(score.Total))
	return sb.String()
}

func buildBullets(entities model.Entities) []string {
	var bullets []string

	names := lo.FilterMap(lo.Slice(entities.Companies, 0, 2), func(c model.Company, _ int) (string, bool) {
		return c.Name, c.Name != ""
	})
	if len(names) > 0 {
		bullets = append(bullets, "Затронутые компании: "+strings.Join(names, ", "))
	}
	if len(entities.Instruments) > 0 {
		bullets = append(bullets, "Финансовые инструменты: "+strings.Join(lo.Slice(entities.Instruments, 0, 3), ", "))
	}
	if len(entities.Countries) > 0 {
		bullets = append(bullets, "География события: "+strings.Join(lo.Slice(entities.Countries, 0, 2), ", "))
	}

	for _, b := range defaultBullets {
		if len(bullets) >= maxBullets {
			break
		}
		bullets = append(bullets, b)
	}

	return lo.Slice(bullets, 0, maxBullets)
}

func buildTimeline(members []*model.ScoredItem) []model.TimelineEntry {
	sorted := append([]*model.ScoredItem(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Item.PublishedAt.Before(sorted[j].Item.PublishedAt)
	})

	return lo.Map(lo.Slice(sorted, 0, maxTimeline), func(it *model.ScoredItem, _ int) model.TimelineEntry {
		return model.TimelineEntry{
			Time:  it.Item.PublishedAt,
			Event: "Публикация: " + truncate(it.Item.Title, 50) + "...",
		}
	})
}

// guard превращает панику в ошибку, чтобы она не уронила весь процесс
func guard(scope string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in %s: %v\n%s", scope, r, debug.Stack())
			}
		}()
		return fn()
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
