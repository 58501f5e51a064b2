package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

func TestDBSource_RoundTrip(t *testing.T) {
	src := model.Source{
		ID:           3,
		Name:         "Interfax",
		Kind:         "rss",
		FeedURL:      "https://www.interfax.ru/rss.asp",
		Category:     "economy",
		Credibility:  9,
		MinInterval:  90 * time.Second,
		FetchTimeout: 5 * time.Second,
		CreatedAt:    time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	row := fromModel(src)
	assert.Equal(t, int64(90000), row.MinIntervalMS)
	assert.Equal(t, int64(5000), row.FetchTimeoutMS)
	assert.Equal(t, src, row.toModel())
}

func TestDBSource_ProviderIntervalWhenUnset(t *testing.T) {
	row := dbSource{Name: "newsdata-db", Kind: "newsdata", FeedURL: "https://newsdata.io/api/1/news"}
	assert.Equal(t, 8*time.Minute, row.toModel().MinInterval)

	row = dbSource{Name: "feed", Kind: "rss", FeedURL: "https://example.com/rss"}
	assert.Zero(t, row.toModel().MinInterval)
}

func TestDBRun_ToModel(t *testing.T) {
	run := dbRun{
		RunID:     "0b9f3f8e-6a43-4c43-9d0e-8a2c1c0e7d11",
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Stats:     []byte(`{"total_processed": 40, "hot_news_count": 6, "threshold": 0.42}`),
	}
	events := []dbEvent{
		{Payload: []byte(`{"headline": "ЦБ поднял ставку", "hotness": 0.8, "dedup_group": "group_1"}`)},
		{Payload: []byte(`{"headline": "Нефть дорожает", "hotness": 0.6, "dedup_group": "unique_x"}`)},
	}

	out, err := run.toModel(events)
	require.NoError(t, err)

	assert.Equal(t, run.RunID, out.RunID)
	assert.Equal(t, 40, out.Stats.TotalProcessed)
	assert.Equal(t, 0.42, out.Stats.Threshold)
	require.Len(t, out.TopEvents, 2)
	assert.Equal(t, "group_1", out.TopEvents[0].DedupGroup)
	assert.Equal(t, "Нефть дорожает", out.TopEvents[1].Headline)

	_, err = run.toModel([]dbEvent{{Payload: []byte("{")}})
	assert.Error(t, err)
}

type failingProvider struct{}

func (failingProvider) Sources(context.Context) ([]model.Source, error) {
	return nil, errors.New("db is down")
}

func TestCombined_Sources(t *testing.T) {
	fromFile := StaticSources{
		{Name: "Interfax", Kind: "rss"},
		{Name: "newsapi", Kind: "newsapi"},
	}
	fromDB := StaticSources{
		{Name: "Interfax", Kind: "feed"},
		{Name: "РБК", Kind: "rss"},
	}

	sources, err := Combined{fromFile, fromDB}.Sources(context.Background())
	require.NoError(t, err)

	require.Len(t, sources, 3)
	assert.Equal(t, "rss", sources[0].Kind)
	assert.Equal(t, "РБК", sources[2].Name)

	_, err = Combined{fromFile, failingProvider{}}.Sources(context.Background())
	assert.Error(t, err)
}
