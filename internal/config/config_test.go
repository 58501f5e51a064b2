package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

func TestLoad_DefaultsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level    = "debug"
run_interval = "5m"
max_events   = 7
http_addr    = ":9090"
`), 0o644))

	t.Setenv("NR_MAX_EVENTS", "12")
	t.Setenv("NR_SELECTOR_TARGET_COUNT", "4")
	t.Setenv("NR_ENRICH_LLM_PROVIDER", "openai")

	cfg, err := Load(path, filepath.Join(dir, "config.local.hcl"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Minute, cfg.RunInterval)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	// Переменная окружения перекрывает файл
	assert.Equal(t, 12, cfg.MaxEvents)
	assert.Equal(t, 4, cfg.Selector.TargetCount)
	assert.Equal(t, "openai", cfg.Enrich.LLMProvider)

	// Значения по умолчанию
	assert.Equal(t, 5, cfg.Selector.MinCount)
	assert.Equal(t, 0.8, cfg.Selector.MaxThreshold)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 0.3, cfg.Weights.Unexpectedness)
	assert.Equal(t, 4, cfg.Enrich.Concurrency)
	assert.Equal(t, 15, cfg.Filter.MinTitle)
}

func validConfig() Config {
	return Config{
		RunInterval: time.Minute,
		SourcesFile: "./sources.yaml",
		Selector:    Selector{TargetCount: 10, MinCount: 5, MinThreshold: 0.05, MaxThreshold: 0.8},
		Weights:     Weights{Unexpectedness: 0.3, Materiality: 0.25, Velocity: 0.2, Breadth: 0.15, SourceTrust: 0.1},
		Cache:       Cache{Backend: CacheMemory},
		Enrich:      Enrich{LLMProvider: ProviderRules},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		is      error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad weights", mutate: func(c *Config) { c.Weights.Breadth = 0.5 }, wantErr: true, is: model.ErrBadWeights},
		{name: "no sources", mutate: func(c *Config) { c.SourcesFile = "" }, wantErr: true, is: model.ErrNoSources},
		{name: "sources from db", mutate: func(c *Config) { c.SourcesFile = ""; c.DatabaseDSN = "postgres://localhost/radar" }},
		{name: "openai without key", mutate: func(c *Config) { c.Enrich.LLMProvider = ProviderOpenAI }, wantErr: true},
		{name: "gemini with key", mutate: func(c *Config) { c.Enrich.LLMProvider = ProviderGemini; c.GeminiKey = "k" }},
		{name: "unknown provider", mutate: func(c *Config) { c.Enrich.LLMProvider = "magic" }, wantErr: true},
		{name: "postgres cache without dsn", mutate: func(c *Config) { c.Cache.Backend = CachePostgres }, wantErr: true},
		{name: "telegram without channel", mutate: func(c *Config) { c.TelegramBotToken = "t" }, wantErr: true},
		{name: "inverted thresholds", mutate: func(c *Config) { c.Selector.MinThreshold = 0.9 }, wantErr: true},
		{name: "zero interval", mutate: func(c *Config) { c.RunInterval = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)

			err := c.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestLoadSources(t *testing.T) {
	t.Setenv("TEST_NEWSAPI_KEY", "secret")

	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  - name: Interfax
    kind: rss
    url: https://www.interfax.ru/rss.asp
    category: economy
    credibility: 9
    min_interval: 90s
    fetch_timeout: 5s
  - kind: newsapi
    url: https://newsapi.org/v2/everything
    query: central bank
    api_key: ${TEST_NEWSAPI_KEY}
    credibility: 7
  - name: Old feed
    kind: rss
    url: https://example.com/rss
    disabled: true
`), 0o644))

	c := validConfig()
	c.DefaultMinInterval = 30 * time.Second
	c.DefaultFetchTimeout = 10 * time.Second

	sources, err := LoadSources(path, c)
	require.NoError(t, err)
	require.Len(t, sources, 2)

	assert.Equal(t, "Interfax", sources[0].Name)
	assert.Equal(t, 90*time.Second, sources[0].MinInterval)
	assert.Equal(t, 5*time.Second, sources[0].FetchTimeout)

	assert.Equal(t, "newsapi", sources[1].Name)
	assert.Equal(t, "secret", sources[1].APIKey)
	assert.Equal(t, 60*time.Second, sources[1].MinInterval)
	assert.Equal(t, 10*time.Second, sources[1].FetchTimeout)

	intervals := Intervals(sources)
	assert.Equal(t, 90*time.Second, intervals["Interfax"])
	assert.Equal(t, 60*time.Second, intervals["newsapi"])
}

func TestLoadSources_Invalid(t *testing.T) {
	tests := map[string]string{
		"no url":    "sources:\n  - name: a\n    kind: rss\n",
		"duplicate": "sources:\n  - {name: a, kind: rss, url: x}\n  - {name: a, kind: rss, url: y}\n",
		"broken":    "sources: [",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sources.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

			_, err := LoadSources(path, validConfig())
			assert.Error(t, err)
		})
	}

	_, err := LoadSources(filepath.Join(t.TempDir(), "missing.yaml"), validConfig())
	assert.Error(t, err)
}
