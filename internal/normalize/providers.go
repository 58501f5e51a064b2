package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"github.com/SlyMarbo/rss"
	"github.com/mmcdole/gofeed"
	"github.com/samber/lo"

	"github.com/kovalyov-valentin/news-radar/internal/source"
)

// Промежуточная запись после разбора ответа конкретного провайдера
type record struct {
	ID          string
	Title       string
	Body        string
	URL         string
	SourceName  string
	Category    string
	Categories  []string
	Tickers     []string
	Language    string
	PublishedAt time.Time
	// Заданы только во входных файлах канонического формата
	Credibility    int
	DuplicateGroup *int
	// Запись не удалось разобрать, вместо новости будет ValidationError
	Invalid string
}

type decoder func(body []byte) ([]record, error)

var decoders = map[string]decoder{
	source.KindNewsAPI:   decodeNewsAPI,
	source.KindPolygon:   decodePolygon,
	source.KindFinnhub:   decodeFinnhub,
	source.KindMarketaux: decodeMarketaux,
	source.KindNewsData:  decodeNewsData,
	source.KindRSS:       decodeRSS,
	source.KindFeed:      decodeFeed,
	source.KindFile:      decodeFile,
}

type newsAPIArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
	} `json:"source"`
}

func decodeNewsAPI(body []byte) ([]record, error) {
	var resp struct {
		Status   string           `json:"status"`
		Message  string           `json:"message"`
		Articles []newsAPIArticle `json:"articles"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if resp.Status == "error" {
		return nil, fmt.Errorf("newsapi: %s", resp.Message)
	}

	return lo.Map(resp.Articles, func(a newsAPIArticle, _ int) record {
		return record{
			Title:       a.Title,
			Body:        firstNonEmpty(a.Description, a.Content),
			URL:         a.URL,
			SourceName:  a.Source.Name,
			PublishedAt: parseTime(a.PublishedAt),
		}
	}), nil
}

type polygonArticle struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ArticleURL   string   `json:"article_url"`
	PublishedUTC string   `json:"published_utc"`
	Tickers      []string `json:"tickers"`
	Keywords     []string `json:"keywords"`
	Publisher    struct {
		Name string `json:"name"`
	} `json:"publisher"`
}

func decodePolygon(body []byte) ([]record, error) {
	var resp struct {
		Results []polygonArticle `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	return lo.Map(resp.Results, func(a polygonArticle, _ int) record {
		return record{
			Title:       a.Title,
			Body:        a.Description,
			URL:         a.ArticleURL,
			SourceName:  a.Publisher.Name,
			Tickers:     a.Tickers,
			Categories:  a.Keywords,
			PublishedAt: parseTime(a.PublishedUTC),
		}
	}), nil
}

type finnhubArticle struct {
	Category string `json:"category"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

func decodeFinnhub(body []byte) ([]record, error) {
	var resp []finnhubArticle
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	return lo.Map(resp, func(a finnhubArticle, _ int) record {
		var published time.Time
		if a.Datetime > 0 {
			published = time.Unix(a.Datetime, 0).UTC()
		}

		return record{
			Title:       a.Headline,
			Body:        a.Summary,
			URL:         a.URL,
			SourceName:  a.Source,
			Category:    a.Category,
			Tickers:     splitList(a.Related),
			PublishedAt: published,
		}
	}), nil
}

type marketauxArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Snippet     string `json:"snippet"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
	Source      string `json:"source"`
	Language    string `json:"language"`
	Entities    []struct {
		Symbol   string `json:"symbol"`
		Industry string `json:"industry"`
	} `json:"entities"`
}

func decodeMarketaux(body []byte) ([]record, error) {
	var resp struct {
		Data []marketauxArticle `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	return lo.Map(resp.Data, func(a marketauxArticle, _ int) record {
		var tickers, industries []string
		for _, e := range a.Entities {
			if e.Symbol != "" {
				tickers = append(tickers, e.Symbol)
			}
			if e.Industry != "" {
				industries = append(industries, e.Industry)
			}
		}

		return record{
			Title:       a.Title,
			Body:        firstNonEmpty(a.Description, a.Snippet),
			URL:         a.URL,
			SourceName:  a.Source,
			Language:    a.Language,
			Tickers:     tickers,
			Categories:  lo.Uniq(industries),
			PublishedAt: parseTime(a.PublishedAt),
		}
	}), nil
}

type newsDataArticle struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Link        string   `json:"link"`
	PubDate     string   `json:"pubDate"`
	SourceID    string   `json:"source_id"`
	Language    string   `json:"language"`
	Category    []string `json:"category"`
	Keywords    []string `json:"keywords"`
}

func decodeNewsData(body []byte) ([]record, error) {
	var resp struct {
		Status  string            `json:"status"`
		Results []newsDataArticle `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if resp.Status == "error" {
		return nil, errors.New("newsdata: error status")
	}

	return lo.Map(resp.Results, func(a newsDataArticle, _ int) record {
		r := record{
			Title:       a.Title,
			Body:        a.Description,
			URL:         a.Link,
			SourceName:  a.SourceID,
			Language:    a.Language,
			Categories:  append(append([]string{}, a.Category...), a.Keywords...),
			PublishedAt: parseTime(a.PubDate),
		}
		if len(a.Category) > 0 {
			r.Category = a.Category[0]
		}
		return r
	}), nil
}

func decodeRSS(body []byte) ([]record, error) {
	feed, err := rss.Parse(body)
	if err != nil {
		return nil, err
	}

	return lo.Map(feed.Items, func(item *rss.Item, _ int) record {
		return record{
			Title:       item.Title,
			Body:        firstNonEmpty(item.Summary, item.Content),
			URL:         item.Link,
			SourceName:  feed.Title,
			Categories:  item.Categories,
			PublishedAt: item.Date,
		}
	}), nil
}

// Atom, RSS и JSON Feed через универсальный парсер
func decodeFeed(body []byte) ([]record, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	return lo.Map(feed.Items, func(item *gofeed.Item, _ int) record {
		r := record{
			Title:      item.Title,
			Body:       firstNonEmpty(item.Description, item.Content),
			URL:        item.Link,
			SourceName: feed.Title,
			Categories: item.Categories,
			Language:   feed.Language,
		}
		if item.PublishedParsed != nil {
			r.PublishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			r.PublishedAt = *item.UpdatedParsed
		}
		return r
	}), nil
}

// Канонический формат: либо массив новостей, либо объект {"news": [...]}.
// Во втором случае доверие приходит долей 0..1, а группа дубликатов строкой
type fileItem struct {
	ID                json.RawMessage `json:"id"`
	Title             string          `json:"title"`
	Content           string          `json:"content"`
	URL               string          `json:"url"`
	Source            string          `json:"source"`
	SourceCredibility json.Number     `json:"source_credibility"`
	Category          string          `json:"category"`
	Tags              []string        `json:"tags"`
	Keywords          []string        `json:"keywords"`
	Tickers           []string        `json:"tickers"`
	Language          string          `json:"language"`
	PublishedAt       string          `json:"published_at"`
	IsDuplicate       *int            `json:"is_duplicate"`
	DuplicateGroup    json.RawMessage `json:"duplicate_group"`
}

func decodeFile(body []byte) ([]record, error) {
	var elems []json.RawMessage

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapper struct {
			News []json.RawMessage `json:"news"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, err
		}
		elems = wrapper.News
	} else if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, err
	}

	// Каждая запись разбирается отдельно: одна битая не должна ронять весь файл
	return lo.Map(elems, func(raw json.RawMessage, _ int) record {
		var it fileItem
		if err := json.Unmarshal(raw, &it); err != nil {
			return record{Invalid: err.Error()}
		}

		rec := record{
			ID:             rawID(it.ID),
			Title:          it.Title,
			Body:           it.Content,
			URL:            it.URL,
			SourceName:     it.Source,
			Credibility:    credibilityScale(it.SourceCredibility),
			Category:       it.Category,
			Categories:     it.Tags,
			Tickers:        it.Tickers,
			Language:       it.Language,
			PublishedAt:    parseTime(it.PublishedAt),
			DuplicateGroup: it.IsDuplicate,
		}
		if len(rec.Categories) == 0 {
			rec.Categories = it.Keywords
		}
		if rec.DuplicateGroup == nil {
			rec.DuplicateGroup = legacyGroup(it.DuplicateGroup)
		}
		return rec
	}), nil
}

// Доверие задается целым 1..10 или долей 0..1
func credibilityScale(n json.Number) int {
	if n == "" {
		return 0
	}

	v, err := n.Float64()
	if err != nil || v <= 0 {
		return 0
	}
	if v <= 1 {
		v *= 10
	}
	return int(math.Round(v))
}

// Строковый идентификатор группы переводится в число, одинаковые строки дают одну группу
func legacyGroup(raw json.RawMessage) *int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(name))
		group := int(h.Sum32() % 10000)
		return &group
	}

	var group int
	if err := json.Unmarshal(raw, &group); err == nil && group >= 0 {
		return &group
	}
	return nil
}

// id во входных файлах бывает и строкой, и числом
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	return strings.TrimSpace(string(raw))
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// Нераспознанная дата дает нулевое время, а не ошибку
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}

	return time.Time{}
}

func splitList(s string) []string {
	return lo.Filter(lo.Map(strings.Split(s, ","), func(p string, _ int) string {
		return strings.TrimSpace(p)
	}), func(p string, _ int) bool {
		return p != ""
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
