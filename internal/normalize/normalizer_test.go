package normalize

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

func payloadOf(kind, body string) model.RawPayload {
	return model.RawPayload{
		Source: model.Source{
			Name:        kind,
			Kind:        kind,
			Credibility: 7,
			Category:    "Markets",
		},
		Body:      []byte(body),
		FetchedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

const newsAPIBody = `{
  "status": "ok",
  "articles": [
    {"title": "Oil prices edge higher in quiet trading",
     "description": "Crude futures moved slightly higher on Tuesday morning.",
     "url": "https://example.com/oil", "publishedAt": "2024-05-01T08:00:00Z",
     "source": {"name": "Reuters"}},
    {"title": "Short",
     "description": "Title below the minimum length window.",
     "url": "https://example.com/short", "publishedAt": "2024-05-01T08:00:00Z",
     "source": {"name": "Reuters"}},
    {"title": "Sponsored: the best savings account of 2024",
     "description": "A paid placement that should never pass the filter.",
     "url": "https://example.com/ad", "publishedAt": "2024-05-01T08:00:00Z",
     "source": {"name": "AdNet"}},
    {"title": "BREAKING: Central bank raises interest rate unexpectedly",
     "description": "The decision surprised markets across the region today.",
     "url": "https://example.com/rate", "publishedAt": "2024-05-01T08:30:00Z",
     "source": {"name": "Bloomberg"}},
    {"title": "Company reports quarterly numbers today",
     "description": "Too short",
     "url": "https://example.com/q", "publishedAt": "2024-05-01T08:30:00Z",
     "source": {"name": "Bloomberg"}},
    {"title": "   ",
     "description": "No title at all, a validation failure for this record.",
     "url": "https://example.com/none", "publishedAt": "2024-05-01T08:30:00Z",
     "source": {"name": "Bloomberg"}}
  ]
}`

func TestNormalizer_NewsAPIFilteringAndPriority(t *testing.T) {
	n := New(DefaultConfig(), zerolog.Nop())

	items, dropped, err := n.Normalize(payloadOf("newsapi", newsAPIBody))
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, 4, dropped)

	// Приоритетная новость идет первой
	assert.True(t, items[0].Priority)
	assert.Equal(t, "BREAKING: Central bank raises interest rate unexpectedly", items[0].Title)
	assert.Equal(t, "Bloomberg", items[0].SourceName)

	oil := items[1]
	assert.False(t, oil.Priority)
	assert.Equal(t, 7, oil.Credibility)
	assert.Equal(t, "markets", oil.Category)
	assert.Equal(t, model.UniqueGroup, oil.DuplicateGroup)
	assert.Equal(t, 1, oil.ConfirmationCount)
	assert.Equal(t, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), oil.PublishedAt)
	assert.Len(t, oil.ID, 32)
	assert.Equal(t, itemID("newsapi", oil.Title, oil.URL), oil.ID)
}

func TestNormalizer_StableOrderWithoutPrioritySort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SortByPriority = false

	items, _, err := New(cfg, zerolog.Nop()).Normalize(payloadOf("newsapi", newsAPIBody))
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "Oil prices edge higher in quiet trading", items[0].Title)
}

func TestNormalizer_BlocklistMatchesCategory(t *testing.T) {
	body := `[{"category": "general", "datetime": 1714550400, "headline": "Weekly roundup of the most notable market moves",
	  "related": "AAPL, msft", "source": "Promo", "summary": "Everything that happened on the markets this week.",
	  "url": "https://example.com/1"}]`

	cfg := DefaultConfig()
	cfg.ExcludeKeywords = []string{"General"}

	items, dropped, err := New(cfg, zerolog.Nop()).Normalize(payloadOf("finnhub", body))
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 1, dropped)
}

func TestNormalizer_Finnhub(t *testing.T) {
	body := `[{"category": "company", "datetime": 1714550400, "headline": "Apple shares climb after earnings beat",
	  "related": "AAPL, msft", "source": "CNBC", "summary": "The company reported revenue above analyst estimates.",
	  "url": "https://example.com/aapl"}]`

	items, _, err := New(DefaultConfig(), zerolog.Nop()).Normalize(payloadOf("finnhub", body))
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, []string{"AAPL", "MSFT"}, items[0].Tickers)
	assert.Equal(t, time.Unix(1714550400, 0).UTC(), items[0].PublishedAt)
	assert.Equal(t, "company", items[0].Category)
}

func TestNormalizer_CanonicalFile(t *testing.T) {
	body := `{"news": [
	  {"id": 42, "title": "Сбербанк объявил о рекордной прибыли за квартал",
	   "content": "Чистая прибыль банка выросла на 25% год к году.",
	   "url": "https://example.ru/sber", "source": "interfax", "source_credibility": 9,
	   "category": "banking", "published_at": "2024-05-01T07:00:00Z", "is_duplicate": 3, "language": "ru"},
	  {"id": "  abc ", "title": "Рынок облигаций без заметных изменений сегодня",
	   "content": "Доходности ОФЗ остались на уровне прошлой недели.",
	   "url": "https://example.ru/ofz", "source": "blog", "source_credibility": 4,
	   "published_at": "2024-05-01 06:00:00"}
	]}`

	items, dropped, err := New(DefaultConfig(), zerolog.Nop()).Normalize(payloadOf("file", body))
	require.NoError(t, err)
	assert.Zero(t, dropped)
	require.Len(t, items, 2)

	var sber, ofz model.NewsItem
	for _, it := range items {
		switch it.ID {
		case "42":
			sber = it
		case "abc":
			ofz = it
		}
	}

	assert.Equal(t, 3, sber.DuplicateGroup)
	assert.Equal(t, 9, sber.Credibility)
	assert.Equal(t, "ru", sber.Language)
	assert.Equal(t, model.UniqueGroup, ofz.DuplicateGroup)
	assert.Equal(t, 4, ofz.Credibility)
	assert.Equal(t, time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC), ofz.PublishedAt)
}

func TestNormalizer_LegacyFile(t *testing.T) {
	body := `{"news": [
	  {"title": "ЦБ повысил ключевую ставку до 18 процентов",
	   "content": "Решение совета директоров оказалось неожиданным для рынка.",
	   "url": "https://example.ru/a", "source": "interfax", "source_credibility": 0.9,
	   "duplicate_group": "cbr-rate", "keywords": ["ставка"]},
	  {"title": "Регулятор поднял ставку сильнее ожиданий аналитиков",
	   "content": "Аналитики ждали меньшего повышения ставки на заседании.",
	   "url": "https://example.ru/b", "source": "rbc", "source_credibility": 7,
	   "duplicate_group": "cbr-rate"},
	  {"title": 12345, "content": "Битая запись с числом вместо заголовка новости."},
	  {"title": "Нефть подешевела на фоне роста запасов в США",
	   "content": "Котировки Brent снизились после публикации данных о запасах.",
	   "url": "https://example.ru/c", "source": "tass", "source_credibility": 0.65}
	]}`

	items, dropped, err := New(DefaultConfig(), zerolog.Nop()).Normalize(payloadOf("file", body))
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	require.Len(t, items, 3)

	byURL := make(map[string]model.NewsItem, len(items))
	for _, it := range items {
		byURL[it.URL] = it
	}

	a, b, c := byURL["https://example.ru/a"], byURL["https://example.ru/b"], byURL["https://example.ru/c"]

	// Доля 0..1 переводится в шкалу 1..10
	assert.Equal(t, 9, a.Credibility)
	assert.Equal(t, 7, b.Credibility)
	assert.Equal(t, 7, c.Credibility)

	// Одинаковая строковая группа дает одну числовую группу
	assert.NotEqual(t, model.UniqueGroup, a.DuplicateGroup)
	assert.Equal(t, a.DuplicateGroup, b.DuplicateGroup)
	assert.Equal(t, model.UniqueGroup, c.DuplicateGroup)

	assert.Equal(t, []string{"ставка"}, a.Tags)
}

func TestNormalizer_FileBadRecordKeepsBatch(t *testing.T) {
	body := `[
	  {"title": "Индекс Мосбиржи вырос на полтора процента", "content": "Рост поддержали акции банков и нефтяных компаний.",
	   "url": "https://example.ru/imoex", "source_credibility": "high"},
	  {"title": "Индекс Мосбиржи закрылся в плюсе второй день", "content": "Покупатели сохраняли инициативу до конца торговой сессии.",
	   "url": "https://example.ru/imoex2", "source_credibility": 8}
	]`

	items, dropped, err := New(DefaultConfig(), zerolog.Nop()).Normalize(payloadOf("file", body))
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	require.Len(t, items, 1)
	assert.Equal(t, "https://example.ru/imoex2", items[0].URL)
	assert.Equal(t, 8, items[0].Credibility)
}

func TestNormalizer_RSS(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example Markets</title>
  <link>https://example.com</link>
  <description>Markets feed</description>
  <item>
    <title>Gold hits a fresh record as investors seek safety</title>
    <link>https://example.com/gold</link>
    <description>Spot gold rose above its previous all-time high on Monday.</description>
    <category>commodities</category>
    <pubDate>Mon, 29 Apr 2024 10:00:00 GMT</pubDate>
  </item>
</channel>
</rss>`

	items, _, err := New(DefaultConfig(), zerolog.Nop()).Normalize(payloadOf("rss", body))
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "Gold hits a fresh record as investors seek safety", items[0].Title)
	assert.Equal(t, "https://example.com/gold", items[0].URL)
	assert.True(t, items[0].Priority)
}

func TestNormalizer_AtomFeed(t *testing.T) {
	body := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Wire</title>
  <id>urn:atom-wire</id>
  <updated>2024-04-29T10:00:00Z</updated>
  <entry>
    <title>Copper demand outlook improves on grid spending</title>
    <link href="https://example.com/copper"/>
    <id>urn:copper</id>
    <updated>2024-04-29T10:00:00Z</updated>
    <summary>Analysts raised their copper demand forecasts for next year.</summary>
  </entry>
</feed>`

	items, _, err := New(DefaultConfig(), zerolog.Nop()).Normalize(payloadOf("feed", body))
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "https://example.com/copper", items[0].URL)
	assert.Equal(t, "Atom Wire", items[0].SourceName)
	assert.Equal(t, time.Date(2024, 4, 29, 10, 0, 0, 0, time.UTC), items[0].PublishedAt)
}

func TestNormalizer_BrokenPayload(t *testing.T) {
	_, _, err := New(DefaultConfig(), zerolog.Nop()).Normalize(payloadOf("polygon", `{"results": [`))
	assert.Error(t, err)
}

func TestNormalizer_ProviderErrorStatus(t *testing.T) {
	_, _, err := New(DefaultConfig(), zerolog.Nop()).Normalize(payloadOf("newsapi", `{"status":"error","message":"apiKeyInvalid"}`))
	assert.ErrorContains(t, err, "apiKeyInvalid")
}
