package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/kovalyov-valentin/news-radar/internal/governor"
	"github.com/kovalyov-valentin/news-radar/internal/model"
)

type sourcesFile struct {
	Sources []sourceEntry `yaml:"sources"`
}

type sourceEntry struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"`
	URL      string `yaml:"url"`
	Query    string `yaml:"query"`
	Category string `yaml:"category"`
	// Ключ можно задать ссылкой на переменную окружения: ${NEWSAPI_KEY}
	APIKey       string        `yaml:"api_key"`
	Credibility  int           `yaml:"credibility"`
	MinInterval  time.Duration `yaml:"min_interval"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	Disabled     bool          `yaml:"disabled"`
}

// LoadSources читает таблицу источников. Интервал и дедлайн, не заданные в файле,
// берутся из умолчаний провайдера, затем из общих умолчаний конфига
func LoadSources(path string, c Config) ([]model.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode sources file %s: %w", path, err)
	}

	var sources []model.Source
	for i, entry := range file.Sources {
		if entry.Disabled {
			continue
		}

		src, err := entry.toModel(c)
		if err != nil {
			return nil, fmt.Errorf("source #%d: %w", i+1, err)
		}
		sources = append(sources, src)
	}

	if dups := lo.FindDuplicatesBy(sources, func(s model.Source) string { return s.Name }); len(dups) > 0 {
		return nil, fmt.Errorf("duplicate source name %q", dups[0].Name)
	}

	return sources, nil
}

func (e sourceEntry) toModel(c Config) (model.Source, error) {
	kind := strings.ToLower(strings.TrimSpace(e.Kind))
	name := strings.TrimSpace(e.Name)
	if name == "" {
		name = kind
	}
	if name == "" || kind == "" {
		return model.Source{}, fmt.Errorf("name or kind is required")
	}
	if e.URL == "" {
		return model.Source{}, fmt.Errorf("url is required for %s", name)
	}

	src := model.Source{
		Name:         name,
		Kind:         kind,
		FeedURL:      e.URL,
		APIKey:       os.ExpandEnv(e.APIKey),
		Query:        e.Query,
		Category:     e.Category,
		Credibility:  e.Credibility,
		MinInterval:  e.MinInterval,
		FetchTimeout: e.FetchTimeout,
		CreatedAt:    time.Now().UTC(),
	}

	src.MinInterval = governor.Resolve(kind, src.MinInterval, c.DefaultMinInterval)
	if src.FetchTimeout <= 0 {
		src.FetchTimeout = c.DefaultFetchTimeout
	}

	return src, nil
}

// Intervals собирает таблицу минимальных интервалов для governor по именам источников
func Intervals(sources []model.Source) map[string]time.Duration {
	return lo.Associate(sources, func(s model.Source) (string, time.Duration) {
		return s.Name, s.MinInterval
	})
}
