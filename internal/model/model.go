package model

import (
	"fmt"
	"time"
)

// Маркер уникальной новости, у которой нет группы дубликатов
const UniqueGroup = -1

// Модель источника
type Source struct {
	ID int64
	// Имя, оно же ключ для лимитов и доверия
	Name string
	// Тип провайдера: newsapi, polygon, finnhub, marketaux, newsdata, rss, feed, file
	Kind string
	// Урл откуда забираем данные
	FeedURL string
	APIKey  string
	Query   string
	// Категория по умолчанию для всех новостей источника
	Category string
	// Доверие к источнику от 1 до 10
	Credibility int
	// Минимальный интервал между запросами к источнику
	MinInterval time.Duration
	// Жесткий дедлайн на один запрос
	FetchTimeout time.Duration
	// Время создания
	CreatedAt time.Time
}

// Сырой ответ провайдера, без какой-либо фильтрации
type RawPayload struct {
	Source    Source
	Body      []byte
	FetchedAt time.Time
}

// Каноническая новость, с которой работает весь пайплайн после нормализации
type NewsItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"content,omitempty"`
	URL         string    `json:"url"`
	SourceName  string    `json:"source"`
	Credibility int       `json:"source_credibility"`
	Category    string    `json:"category,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Tickers     []string  `json:"tickers,omitempty"`
	Language    string    `json:"language,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	CollectedAt time.Time `json:"collected_at"`
	// -1 если новость уникальна, иначе идентификатор группы дубликатов
	DuplicateGroup int `json:"is_duplicate"`
	// Сколько разных источников подтверждают событие
	ConfirmationCount int  `json:"confirmation_count"`
	Priority          bool `json:"priority,omitempty"`
}

// Нормализованное доверие в [0,1]
func (n NewsItem) NormalizedCredibility() float64 {
	c := float64(n.Credibility) / 10
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

func (n NewsItem) IsUnique() bool {
	return n.DuplicateGroup == UniqueGroup
}

// Ключ группы: group_<id> для дубликатов и unique_<id> для одиночных новостей
func (n NewsItem) GroupKey() string {
	if n.IsUnique() {
		return "unique_" + n.ID
	}
	return fmt.Sprintf("group_%d", n.DuplicateGroup)
}

// Текст для поиска ключевых слов
func (n NewsItem) Text() string {
	if n.Body == "" {
		return n.Title
	}
	return n.Title + " " + n.Body
}

type HotnessScore struct {
	Unexpectedness float64 `json:"unexpectedness"`
	Materiality    float64 `json:"materiality"`
	Velocity       float64 `json:"velocity"`
	Breadth        float64 `json:"breadth"`
	SourceTrust    float64 `json:"source_trust"`
	Total          float64 `json:"total"`
}

type ScoredItem struct {
	Item  NewsItem
	Score HotnessScore
}

// Кластер новостей об одном событии. Элементы не копируются
type EventCluster struct {
	Key            string
	Members        []*ScoredItem
	Representative *ScoredItem
	SourceURLs     []string
}

type Company struct {
	Name   string `json:"name"`
	Ticker string `json:"ticker,omitempty"`
	Sector string `json:"sector,omitempty"`
}

type Entities struct {
	Companies   []Company `json:"companies"`
	Countries   []string  `json:"countries"`
	Instruments []string  `json:"instruments"`
	People      []string  `json:"people"`
	Sectors     []string  `json:"sectors"`
}

// Плоский список имен, порядок: компании, страны, люди
func (e Entities) Flatten() []string {
	out := make([]string, 0, len(e.Companies)+len(e.Countries)+len(e.People))
	for _, c := range e.Companies {
		if c.Name != "" {
			out = append(out, c.Name)
		}
	}
	out = append(out, e.Countries...)
	out = append(out, e.People...)
	return out
}

type TimelineEntry struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
}

type Draft struct {
	Headline string   `json:"headline"`
	Lead     string   `json:"lead"`
	Bullets  []string `json:"bullets"`
	Quote    string   `json:"quote"`
}

type EnrichedEvent struct {
	Headline   string          `json:"headline"`
	Hotness    float64         `json:"hotness"`
	WhyNow     string          `json:"why_now"`
	Entities   []string        `json:"entities"`
	Sources    []string        `json:"sources"`
	Timeline   []TimelineEntry `json:"timeline"`
	Draft      Draft           `json:"draft"`
	DedupGroup string          `json:"dedup_group"`
	// Часть полей заменена заглушками из-за ошибок внешних сервисов
	Degraded bool `json:"degraded,omitempty"`
}

type RunStats struct {
	TotalProcessed   int     `json:"total_processed"`
	HotNewsCount     int     `json:"hot_news_count"`
	AvgHotness       float64 `json:"avg_hotness"`
	GroupsAnalyzed   int     `json:"groups_analyzed"`
	APICallsMade     int64   `json:"api_calls_made"`
	CacheHits        int64   `json:"cache_hits"`
	Threshold        float64 `json:"threshold"`
	SourcesFailed    int     `json:"sources_failed"`
	SourcesSkipped   int     `json:"sources_skipped"`
	ItemsDropped     int     `json:"items_dropped"`
	ClustersFailed   int     `json:"clusters_failed"`
	ClustersDegraded int     `json:"clusters_degraded"`
}

// Результат одного прогона радара
type RadarOutput struct {
	RunID     string          `json:"run_id"`
	Timestamp time.Time       `json:"timestamp"`
	TopEvents []EnrichedEvent `json:"top_events"`
	Stats     RunStats        `json:"processing_stats"`
}
