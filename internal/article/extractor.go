package article

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/rs/zerolog"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

const maxPageSize = 4 << 20

// Extractor скачивает страницу новости и достает из нее основной текст.
// Нужен для провайдеров, которые отдают только заголовок
type Extractor struct {
	client *http.Client
	log    zerolog.Logger
}

func NewExtractor(client *http.Client, log zerolog.Logger) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Extractor{client: client, log: log}
}

func (e *Extractor) Extract(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, pageURL)
	}

	page, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", err
	}

	doc, err := readability.FromReader(bytes.NewReader(page), u)
	if err == nil {
		if text := cleanText(doc.TextContent); text != "" {
			return text, nil
		}
	}

	// readability не справился, собираем абзацы по типовым селекторам
	return paragraphs(page)
}

var contentSelectors = []string{
	"article p",
	".article p",
	".content p",
	".post-content p",
	".entry-content p",
	"main p",
	"p",
}

func paragraphs(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var parts []string
	for _, selector := range contentSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); len([]rune(text)) > 20 {
				parts = append(parts, text)
			}
		})
		if len(parts) >= 3 {
			break
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no article text found")
	}
	return cleanText(strings.Join(parts, "\n\n")), nil
}

// Backfill дописывает текст новостям без тела. Ошибки только логируются
func (e *Extractor) Backfill(ctx context.Context, items []model.NewsItem) int {
	filled := 0
	for i := range items {
		if items[i].Body != "" || items[i].URL == "" {
			continue
		}

		text, err := e.Extract(ctx, items[i].URL)
		if err != nil {
			e.log.Debug().Err(err).Str("url", items[i].URL).Msg("failed to extract article body")
			continue
		}

		items[i].Body = text
		filled++
	}
	return filled
}

var redundantNewLines = regexp.MustCompile(`\n{3,}`)

func cleanText(text string) string {
	return strings.TrimSpace(redundantNewLines.ReplaceAllString(text, "\n"))
}
