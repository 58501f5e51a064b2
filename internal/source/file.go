package source

import (
	"context"
	"os"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

// Локальный JSON файл с новостями в каноническом формате
type FileSource struct {
	source model.Source
}

func (s FileSource) Fetch(ctx context.Context) (model.RawPayload, error) {
	if err := ctx.Err(); err != nil {
		return model.RawPayload{}, err
	}

	body, err := os.ReadFile(s.source.FeedURL)
	if err != nil {
		return model.RawPayload{}, err
	}

	return payload(s.source, body), nil
}

func (s FileSource) ID() int64           { return s.source.ID }
func (s FileSource) Name() string        { return s.source.Name }
func (s FileSource) Model() model.Source { return s.source }
