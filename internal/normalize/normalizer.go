package normalize

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/tomakado/containers/set"

	"github.com/kovalyov-valentin/news-radar/internal/model"
	"github.com/kovalyov-valentin/news-radar/internal/source"
)

const defaultCredibility = 5

var DefaultExcludeKeywords = []string{
	"advertisement", "sponsored", "promotion", "promo", "casino",
	"gambling", "bet", "lottery", "porn", "adult", "spam",
}

var DefaultPriorityKeywords = []string{
	"breaking", "urgent", "alert", "crisis", "crash", "surge", "record",
	"massive", "unprecedented", "emergency", "federal reserve", "interest rate",
	"inflation", "recession", "bull market", "bear market",
}

type Config struct {
	MinTitleLength int
	MaxTitleLength int
	MinBodyLength  int
	// Сколько записей берем из одного ответа API провайдера
	MaxItemsPerSource int
	ExcludeKeywords   []string
	PriorityKeywords  []string
	MarkPriority      bool
	SortByPriority    bool
}

func DefaultConfig() Config {
	return Config{
		MinTitleLength:    15,
		MaxTitleLength:    200,
		MinBodyLength:     20,
		MaxItemsPerSource: 20,
		ExcludeKeywords:   DefaultExcludeKeywords,
		PriorityKeywords:  DefaultPriorityKeywords,
		MarkPriority:      true,
		SortByPriority:    true,
	}
}

// Normalizer приводит ответы провайдеров к каноническому виду и отсеивает мусор
type Normalizer struct {
	cfg      Config
	exclude  []string
	priority []string
	log      zerolog.Logger
	now      func() time.Time
}

func New(cfg Config, log zerolog.Logger) *Normalizer {
	lower := func(s string, _ int) string { return strings.ToLower(strings.TrimSpace(s)) }
	nonEmpty := func(s string, _ int) bool { return s != "" }

	return &Normalizer{
		cfg:      cfg,
		exclude:  lo.Filter(lo.Map(cfg.ExcludeKeywords, lower), nonEmpty),
		priority: lo.Filter(lo.Map(cfg.PriorityKeywords, lower), nonEmpty),
		log:      log,
		now:      time.Now,
	}
}

// Normalize возвращает отфильтрованные новости и число отброшенных записей.
// Ошибка означает, что весь ответ не удалось разобрать
func (n *Normalizer) Normalize(payload model.RawPayload) ([]model.NewsItem, int, error) {
	src := payload.Source

	decode, ok := decoders[src.Kind]
	if !ok {
		return nil, 0, fmt.Errorf("no decoder for kind %q", src.Kind)
	}

	records, err := decode(payload.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s payload: %w", src.Kind, err)
	}

	if src.Kind != source.KindFile && n.cfg.MaxItemsPerSource > 0 && len(records) > n.cfg.MaxItemsPerSource {
		records = records[:n.cfg.MaxItemsPerSource]
	}

	collectedAt := payload.FetchedAt
	if collectedAt.IsZero() {
		collectedAt = n.now().UTC()
	}

	var (
		items   = make([]model.NewsItem, 0, len(records))
		dropped int
	)

	for _, rec := range records {
		item, err := n.build(src, rec, collectedAt)
		if err != nil {
			dropped++

			var validationErr *model.ValidationError
			if errors.As(err, &validationErr) {
				n.log.Warn().Err(err).Msg("item dropped")
			}
			continue
		}

		if n.itemShouldBeSkipped(item) {
			dropped++
			continue
		}

		if n.cfg.MarkPriority {
			item.Priority = n.isPriority(item)
		}

		items = append(items, item)
	}

	if n.cfg.SortByPriority {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Priority && !items[j].Priority
		})
	}

	return items, dropped, nil
}

func (n *Normalizer) build(src model.Source, rec record, collectedAt time.Time) (model.NewsItem, error) {
	if rec.Invalid != "" {
		return model.NewsItem{}, &model.ValidationError{Source: src.Name, Reason: "malformed record: " + rec.Invalid}
	}

	title := cleanText(rec.Title)
	if title == "" {
		return model.NewsItem{}, &model.ValidationError{Source: src.Name, Reason: "empty title"}
	}

	sourceName := cleanText(rec.SourceName)
	if sourceName == "" {
		sourceName = src.Name
	}

	credibility := rec.Credibility
	if credibility <= 0 {
		credibility = src.Credibility
	}
	if credibility <= 0 {
		credibility = defaultCredibility
	}
	if credibility > 10 {
		credibility = 10
	}

	category := strings.ToLower(strings.TrimSpace(rec.Category))
	if category == "" {
		category = strings.ToLower(src.Category)
	}

	item := model.NewsItem{
		ID:                rec.ID,
		Title:             title,
		Body:              cleanText(rec.Body),
		URL:               strings.TrimSpace(rec.URL),
		SourceName:        sourceName,
		Credibility:       credibility,
		Category:          category,
		Tags:              lo.Uniq(lo.Filter(lo.Map(rec.Categories, func(s string, _ int) string { return cleanText(s) }), func(s string, _ int) bool { return s != "" })),
		Tickers:           lo.Uniq(lo.Map(rec.Tickers, func(s string, _ int) string { return strings.ToUpper(strings.TrimSpace(s)) })),
		Language:          strings.ToLower(strings.TrimSpace(rec.Language)),
		PublishedAt:       rec.PublishedAt,
		CollectedAt:       collectedAt,
		DuplicateGroup:    model.UniqueGroup,
		ConfirmationCount: 1,
	}

	if rec.DuplicateGroup != nil {
		item.DuplicateGroup = *rec.DuplicateGroup
	}
	if item.ID == "" {
		item.ID = itemID(src.Name, item.Title, item.URL)
	}
	if item.PublishedAt.IsZero() {
		item.PublishedAt = collectedAt
	}
	item.PublishedAt = item.PublishedAt.UTC()

	return item, nil
}

// Проверяем длину заголовка и текста, а также стоп-слова в тексте и категориях
func (n *Normalizer) itemShouldBeSkipped(item model.NewsItem) bool {
	titleLen := utf8.RuneCountInString(item.Title)
	if titleLen < n.cfg.MinTitleLength || (n.cfg.MaxTitleLength > 0 && titleLen > n.cfg.MaxTitleLength) {
		return true
	}

	if item.Body != "" && utf8.RuneCountInString(item.Body) < n.cfg.MinBodyLength {
		return true
	}

	categoriesSet := set.New(lo.Map(append([]string{item.Category}, item.Tags...), func(s string, _ int) string {
		return strings.ToLower(s)
	})...)
	text := strings.ToLower(item.Text())

	for _, keyword := range n.exclude {
		if categoriesSet.Contains(keyword) || strings.Contains(text, keyword) {
			return true
		}
	}

	return false
}

func (n *Normalizer) isPriority(item model.NewsItem) bool {
	text := strings.ToLower(item.Text())
	return lo.ContainsBy(n.priority, func(keyword string) bool {
		return strings.Contains(text, keyword)
	})
}

func itemID(sourceName, title, url string) string {
	sum := md5.Sum([]byte(sourceName + ":" + title + ":" + url))
	return hex.EncodeToString(sum[:])
}

// Схлопываем пробелы и переносы строк
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
