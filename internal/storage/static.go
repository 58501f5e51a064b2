package storage

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

// Источники из файла конфигурации
type StaticSources []model.Source

func (s StaticSources) Sources(context.Context) ([]model.Source, error) {
	return append([]model.Source(nil), s...), nil
}

type SourceProvider interface {
	Sources(ctx context.Context) ([]model.Source, error)
}

// Combined объединяет несколько списков источников. При совпадении имени
// побеждает источник, который встретился раньше
type Combined []SourceProvider

func (c Combined) Sources(ctx context.Context) ([]model.Source, error) {
	var all []model.Source
	for _, provider := range c {
		sources, err := provider.Sources(ctx)
		if err != nil {
			return nil, fmt.Errorf("list sources: %w", err)
		}
		all = append(all, sources...)
	}

	return lo.UniqBy(all, func(s model.Source) string { return s.Name }), nil
}
