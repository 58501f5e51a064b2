package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

// Ограничение на размер ответа провайдера
const maxBodySize = 8 << 20

// Ответ провайдера с неуспешным статусом
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// Временная ошибка, которую имеет смысл повторить
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// Конструктор, который из модели источника создает клиента нужного типа
func New(m model.Source, client *http.Client) (Source, error) {
	if client == nil {
		client = http.DefaultClient
	}

	switch m.Kind {
	case KindRSS, KindFeed:
		return NewRSSSourceFromModel(m, client), nil
	case KindFile:
		return FileSource{source: m}, nil
	case KindNewsAPI, KindPolygon, KindFinnhub, KindMarketaux, KindNewsData:
		return NewAPISource(m, client), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q for %s", m.Kind, m.Name)
	}
}

// Общий интерфейс, который реализуют все источники
type Source interface {
	ID() int64
	Name() string
	Model() model.Source
	Fetch(ctx context.Context) (model.RawPayload, error)
}

// GET с контекстом. Отмена контекста обрывает сам запрос, а не только ожидание ответа
func get(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "news-radar/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
}

func payload(m model.Source, body []byte) model.RawPayload {
	return model.RawPayload{
		Source:    m,
		Body:      body,
		FetchedAt: time.Now().UTC(),
	}
}
