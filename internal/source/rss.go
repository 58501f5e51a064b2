package source

import (
	"context"
	"net/http"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

// RSS клиент. Лента забирается как есть, разбор делает нормализатор
type RSSSource struct {
	// URL откуда мы забираем данные
	URL    string
	source model.Source
	client *http.Client
}

func NewRSSSourceFromModel(m model.Source, client *http.Client) RSSSource {
	return RSSSource{
		URL:    m.FeedURL,
		source: m,
		client: client,
	}
}

func (s RSSSource) Fetch(ctx context.Context) (model.RawPayload, error) {
	body, err := get(ctx, s.client, s.URL)
	if err != nil {
		return model.RawPayload{}, err
	}

	return payload(s.source, body), nil
}

func (s RSSSource) ID() int64 {
	return s.source.ID
}

func (s RSSSource) Name() string {
	return s.source.Name
}

func (s RSSSource) Model() model.Source {
	return s.source
}
