package enricher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kovalyov-valentin/news-radar/internal/entities"
	"github.com/kovalyov-valentin/news-radar/internal/model"
	"github.com/kovalyov-valentin/news-radar/internal/summary"
)

type generatorFunc func(ctx context.Context, prompt string, maxLength int) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string, maxLength int) (string, error) {
	return f(ctx, prompt, maxLength)
}

type extractorFunc func(ctx context.Context, text string) model.Entities

func (f extractorFunc) Extract(ctx context.Context, text string) model.Entities {
	return f(ctx, text)
}

func clusterOf(key string, total float64, titles ...string) model.EventCluster {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	var members []*model.ScoredItem
	var urls []string
	for i, title := range titles {
		url := fmt.Sprintf("https://example.com/%s/%d", key, i)
		members = append(members, &model.ScoredItem{
			Item: model.NewsItem{
				ID:          fmt.Sprintf("%s-%d", key, i),
				Title:       title,
				URL:         url,
				PublishedAt: base.Add(-time.Duration(i) * time.Minute),
			},
			Score: model.HotnessScore{Total: total},
		})
		urls = append(urls, url)
	}

	return model.EventCluster{Key: key, Members: members, Representative: members[0], SourceURLs: urls}
}

func TestEnrich_WithRuleTable(t *testing.T) {
	e := New(entities.NewRuleExtractor(), summary.DefaultRuleTable(), zerolog.Nop())

	cl := clusterOf("group_1", 0.72,
		"Сбербанк: рубль обвалился к доллару на фоне санкций США",
		"Рубль резко ослаб к доллару",
	)

	event, err := e.Enrich(context.Background(), cl)
	require.NoError(t, err)

	assert.False(t, event.Degraded)
	assert.Equal(t, "group_1", event.DedupGroup)
	assert.Equal(t, 0.72, event.Hotness)
	assert.Equal(t, "Рубль достиг новых минимумов на фоне геополитической напряженности", event.Headline)
	assert.Equal(t, "Резкие колебания валютных курсов влияют на инфляцию, импорт и экономическую стабильность страны.", event.WhyNow)
	assert.Equal(t, []string{"Сбербанк", "США"}, event.Entities)
	assert.Equal(t, cl.SourceURLs, event.Sources)

	require.Len(t, event.Timeline, 2)
	// Хронология по времени публикации: второй материал вышел раньше
	assert.Equal(t, "Публикация: Рубль резко ослаб к доллару...", event.Timeline[0].Event)
	assert.True(t, event.Timeline[0].Time.Before(event.Timeline[1].Time))

	assert.Equal(t, []string{
		"Затронутые компании: Сбербанк",
		"Финансовые инструменты: рубль, доллар",
		"География события: США",
	}, event.Draft.Bullets)
	assert.NotEmpty(t, event.Draft.Lead)
	assert.GreaterOrEqual(t, len([]rune(event.Draft.Quote)), 20)
}

func TestEnrich_DegradesOnGeneratorFailure(t *testing.T) {
	failing := generatorFunc(func(context.Context, string, int) (string, error) {
		return "", &model.ExternalServiceError{Service: "llm", Err: errors.New("unavailable")}
	})
	e := New(extractorFunc(func(context.Context, string) model.Entities { return model.Entities{} }), failing, zerolog.Nop())

	event, err := e.Enrich(context.Background(), clusterOf("unique_x", 0.4, "Quiet market update for the day"))
	require.NoError(t, err)

	assert.True(t, event.Degraded)
	assert.Equal(t, headlineFallback, event.Headline)
	assert.Equal(t, whyNowFallback, event.WhyNow)
	assert.Equal(t, draftHeadlineFallback, event.Draft.Headline)
	assert.Equal(t, leadFallback, event.Draft.Lead)
	assert.Equal(t, quoteFallback, event.Draft.Quote)
	assert.Equal(t, defaultBullets, event.Draft.Bullets)
}

func TestEnrich_CallTimeoutUsesFallback(t *testing.T) {
	slow := generatorFunc(func(ctx context.Context, _ string, _ int) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	e := New(entities.NewRuleExtractor(), slow, zerolog.Nop(), WithCallTimeout(20*time.Millisecond))

	start := time.Now()
	event, err := e.Enrich(context.Background(), clusterOf("unique_y", 0.3, "Slow generator test headline"))
	require.NoError(t, err)

	assert.True(t, event.Degraded)
	assert.Equal(t, whyNowFallback, event.WhyNow)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestEnrich_Caps(t *testing.T) {
	many := model.Entities{}
	for i := 0; i < 30; i++ {
		many.Companies = append(many.Companies, model.Company{Name: fmt.Sprintf("Company %d", i)})
	}
	many.Instruments = []string{"акции"}
	many.Countries = []string{"Китай"}

	e := New(extractorFunc(func(context.Context, string) model.Entities { return many }), summary.DefaultRuleTable(), zerolog.Nop())

	titles := make([]string, 8)
	for i := range titles {
		titles[i] = strings.Repeat("длинный заголовок ", 5)
	}

	event, err := e.Enrich(context.Background(), clusterOf("group_9", 0.5, titles...))
	require.NoError(t, err)

	assert.Len(t, event.Entities, maxEntities)
	assert.Len(t, event.Sources, maxSources)
	assert.Len(t, event.Timeline, maxTimeline)
	assert.Len(t, event.Draft.Bullets, maxBullets)
	assert.Equal(t, "Затронутые компании: Company 0, Company 1", event.Draft.Bullets[0])
	assert.Equal(t, "Публикация: "+string([]rune(titles[0])[:50])+"...", event.Timeline[0].Event)
}

func TestEnrichAll_IsolatesFailures(t *testing.T) {
	extractor := extractorFunc(func(_ context.Context, text string) model.Entities {
		if strings.Contains(text, "panic") {
			panic("extractor exploded")
		}
		return model.Entities{}
	})
	e := New(extractor, summary.DefaultRuleTable(), zerolog.Nop())

	clusters := []model.EventCluster{
		clusterOf("unique_a", 0.3, "Ordinary headline number one"),
		clusterOf("unique_b", 0.9, "This one will panic inside"),
		clusterOf("unique_c", 0.6, "Ordinary headline number two"),
	}

	events, report := e.EnrichAll(context.Background(), clusters)

	assert.Equal(t, 1, report.Failed)
	require.Len(t, events, 2)
	assert.Equal(t, "unique_c", events[0].DedupGroup)
	assert.Equal(t, "unique_a", events[1].DedupGroup)
}

func TestEnrichAll_RespectsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32

	gen := generatorFunc(func(context.Context, string, int) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return "Сгенерированный текст достаточной длины.", nil
	})

	e := New(entities.NewRuleExtractor(), gen, zerolog.Nop(), WithConcurrency(2))

	var clusters []model.EventCluster
	for i := 0; i < 6; i++ {
		clusters = append(clusters, clusterOf(fmt.Sprintf("unique_%d", i), float64(i)/10, "Headline for concurrency test"))
	}

	events, report := e.EnrichAll(context.Background(), clusters)
	require.Len(t, events, 6)
	assert.Zero(t, report.Failed)
	assert.Zero(t, report.Degraded)

	// Внутри кластера до четырех вызовов одновременно, кластеров не больше двух
	assert.LessOrEqual(t, peak.Load(), int32(8))
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i-1].Hotness, events[i].Hotness)
	}
}
