package source

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

const (
	KindNewsAPI   = "newsapi"
	KindPolygon   = "polygon"
	KindFinnhub   = "finnhub"
	KindMarketaux = "marketaux"
	KindNewsData  = "newsdata"
	KindRSS       = "rss"
	KindFeed      = "feed"
	KindFile      = "file"
)

const pageSize = 20

// Базовые адреса провайдеров, если в модели не задан свой
var defaultEndpoints = map[string]string{
	KindNewsAPI:   "https://newsapi.org/v2/everything",
	KindPolygon:   "https://api.polygon.io/v2/reference/news",
	KindFinnhub:   "https://finnhub.io/api/v1/news",
	KindMarketaux: "https://api.marketaux.com/v1/news/all",
	KindNewsData:  "https://newsdata.io/api/1/news",
}

// Клиент JSON API провайдеров новостей
type APISource struct {
	source model.Source
	client *http.Client
}

func NewAPISource(m model.Source, client *http.Client) APISource {
	return APISource{source: m, client: client}
}

func (s APISource) Fetch(ctx context.Context) (model.RawPayload, error) {
	u, err := s.requestURL()
	if err != nil {
		return model.RawPayload{}, err
	}

	body, err := get(ctx, s.client, u)
	if err != nil {
		return model.RawPayload{}, err
	}

	return payload(s.source, body), nil
}

// Параметры запроса у каждого провайдера свои
func (s APISource) requestURL() (string, error) {
	base := s.source.FeedURL
	if base == "" {
		base = defaultEndpoints[s.source.Kind]
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	q := u.Query()
	size := strconv.Itoa(pageSize)

	switch s.source.Kind {
	case KindNewsAPI:
		q.Set("apiKey", s.source.APIKey)
		q.Set("pageSize", size)
		q.Set("sortBy", "publishedAt")
		if s.source.Query != "" {
			q.Set("q", s.source.Query)
		}
	case KindPolygon:
		q.Set("apiKey", s.source.APIKey)
		q.Set("limit", size)
		q.Set("order", "desc")
	case KindFinnhub:
		q.Set("token", s.source.APIKey)
		q.Set("category", "general")
	case KindMarketaux:
		q.Set("api_token", s.source.APIKey)
		q.Set("limit", size)
		q.Set("language", "en")
		if s.source.Query != "" {
			q.Set("search", s.source.Query)
		}
	case KindNewsData:
		q.Set("apikey", s.source.APIKey)
		if s.source.Query != "" {
			q.Set("q", s.source.Query)
		}
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s APISource) ID() int64           { return s.source.ID }
func (s APISource) Name() string        { return s.source.Name }
func (s APISource) Model() model.Source { return s.source }
