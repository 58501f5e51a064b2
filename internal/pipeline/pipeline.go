package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/kovalyov-valentin/news-radar/internal/cluster"
	"github.com/kovalyov-valentin/news-radar/internal/dedup"
	"github.com/kovalyov-valentin/news-radar/internal/enricher"
	"github.com/kovalyov-valentin/news-radar/internal/fetcher"
	"github.com/kovalyov-valentin/news-radar/internal/model"
	"github.com/kovalyov-valentin/news-radar/internal/scoring"
	"github.com/kovalyov-valentin/news-radar/internal/selector"
)

type Fetcher interface {
	Fetch(ctx context.Context) (fetcher.Batch, error)
}

type Marker interface {
	Mark(items []model.NewsItem) []model.NewsItem
}

type Scorer interface {
	Score(item model.NewsItem) model.HotnessScore
}

type Enricher interface {
	EnrichAll(ctx context.Context, clusters []model.EventCluster) ([]model.EnrichedEvent, enricher.Report)
}

// BodyFiller дописывает текст новостям, пришедшим без него
type BodyFiller interface {
	Backfill(ctx context.Context, items []model.NewsItem) int
}

// CallCounter отдает счетчики обращений к генератору текста
type CallCounter interface {
	Calls() int64
	Hits() int64
}

// Services все зависимости прогона. Собираются один раз в main
type Services struct {
	Fetcher  Fetcher
	Marker   Marker
	Scorer   Scorer
	Enricher Enricher
	// Необязательные
	Bodies BodyFiller
	Calls  CallCounter
}

type Config struct {
	Selector selector.Config
	// Сколько событий максимум отдаем на обогащение
	MaxEvents int
}

func DefaultConfig() Config {
	return Config{
		Selector:  selector.DefaultConfig(),
		MaxEvents: 15,
	}
}

type Pipeline struct {
	services Services
	cfg      Config
	log      zerolog.Logger
	now      func() time.Time
}

func New(services Services, cfg Config, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		services: services,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Run выполняет один полный прогон: сбор, скоринг, отбор, группировка и обогащение.
// Ошибку возвращает только при проблемах конфигурации, остальное попадает в статистику
func (p *Pipeline) Run(ctx context.Context) (model.RadarOutput, error) {
	runID := uuid.NewString()
	log := p.log.With().Str("run_id", runID).Logger()

	var callsBefore, hitsBefore int64
	if p.services.Calls != nil {
		callsBefore, hitsBefore = p.services.Calls.Calls(), p.services.Calls.Hits()
	}

	batch, err := p.services.Fetcher.Fetch(ctx)
	if err != nil {
		return model.RadarOutput{}, fmt.Errorf("fetch: %w", err)
	}

	items := batch.Items
	if p.services.Bodies != nil {
		if n := p.services.Bodies.Backfill(ctx, items); n > 0 {
			log.Debug().Int("filled", n).Msg("article bodies backfilled")
		}
	}

	if p.services.Marker != nil {
		items = p.services.Marker.Mark(items)
	}
	items = dedup.Corroborate(items)

	scored := lo.Map(items, func(it model.NewsItem, _ int) *model.ScoredItem {
		return &model.ScoredItem{Item: it, Score: p.services.Scorer.Score(it)}
	})

	selected, threshold := selector.Select(scored, p.cfg.Selector)
	selector.SortByTotal(selected)

	clusters := cluster.Group(selected)
	if p.cfg.MaxEvents > 0 && len(clusters) > p.cfg.MaxEvents {
		clusters = clusters[:p.cfg.MaxEvents]
	}

	events, report := p.services.Enricher.EnrichAll(ctx, clusters)

	stats := model.RunStats{
		TotalProcessed:   len(items),
		HotNewsCount:     len(selected),
		AvgHotness:       avgTotal(selected),
		GroupsAnalyzed:   len(clusters),
		Threshold:        threshold,
		SourcesFailed:    batch.Failed(),
		SourcesSkipped:   batch.Skipped(),
		ItemsDropped:     batch.Dropped(),
		ClustersFailed:   report.Failed,
		ClustersDegraded: report.Degraded,
	}
	if p.services.Calls != nil {
		stats.APICallsMade = p.services.Calls.Calls() - callsBefore
		stats.CacheHits = p.services.Calls.Hits() - hitsBefore
	}

	log.Info().
		Int("processed", stats.TotalProcessed).
		Int("hot", stats.HotNewsCount).
		Float64("threshold", threshold).
		Int("events", len(events)).
		Int("sources_failed", stats.SourcesFailed).
		Int("clusters_failed", stats.ClustersFailed).
		Msg("radar run finished")

	return model.RadarOutput{
		RunID:     runID,
		Timestamp: p.now().UTC(),
		TopEvents: events,
		Stats:     stats,
	}, nil
}

// Средняя горячесть по отобранным новостям
func avgTotal(items []*model.ScoredItem) float64 {
	if len(items) == 0 {
		return 0
	}
	return lo.SumBy(items, func(it *model.ScoredItem) float64 { return it.Score.Total }) / float64(len(items))
}

var _ Scorer = (*scoring.Scorer)(nil)
