package notifier

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/kovalyov-valentin/news-radar/internal/botkit/markup"
	"github.com/kovalyov-valentin/news-radar/internal/model"
	"github.com/kovalyov-valentin/news-radar/internal/scoring"
)

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Config struct {
	ChannelID int64
	// Сколько событий публикуем за один прогон
	TopN int
	// События холоднее этого порога в канал не идут
	MinHotness float64
	// Окно, в течение которого одно и то же событие не публикуется повторно
	RepostWindow time.Duration
}

// Notifier публикует самые горячие события прогона в телеграм канал
type Notifier struct {
	bot Sender
	cfg Config
	log zerolog.Logger
	now func() time.Time

	mu     sync.Mutex
	posted map[string]time.Time
}

func New(bot Sender, cfg Config, log zerolog.Logger) *Notifier {
	if cfg.TopN <= 0 {
		cfg.TopN = 3
	}
	if cfg.RepostWindow <= 0 {
		cfg.RepostWindow = 6 * time.Hour
	}

	return &Notifier{
		bot:    bot,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
		posted: make(map[string]time.Time),
	}
}

func (n *Notifier) Publish(_ context.Context, out model.RadarOutput) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	for key, at := range n.posted {
		if now.Sub(at) >= n.cfg.RepostWindow {
			delete(n.posted, key)
		}
	}

	fresh := lo.Filter(out.TopEvents, func(e model.EnrichedEvent, _ int) bool {
		_, seen := n.posted[eventKey(e)]
		return !seen && e.Hotness >= n.cfg.MinHotness
	})
	if len(fresh) > n.cfg.TopN {
		fresh = fresh[:n.cfg.TopN]
	}

	for _, event := range fresh {
		if err := n.sendEvent(event); err != nil {
			return fmt.Errorf("send event %s: %w", event.DedupGroup, err)
		}
		n.posted[eventKey(event)] = now
	}

	n.log.Debug().Int("posted", len(fresh)).Str("run_id", out.RunID).Msg("events published to channel")
	return nil
}

func (n *Notifier) sendEvent(event model.EnrichedEvent) error {
	msg := tgbotapi.NewMessage(n.cfg.ChannelID, FormatEvent(event))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true

	_, err := n.bot.Send(msg)
	return err
}

// Номер группы меняется от прогона к прогону, поэтому событие узнаем по первому источнику
func eventKey(e model.EnrichedEvent) string {
	if len(e.Sources) > 0 {
		return e.Sources[0]
	}
	return e.Headline
}

// FormatEvent собирает сообщение о событии в разметке MarkdownV2:
// жирный заголовок, горячесть, почему сейчас, тезисы и ссылки
func FormatEvent(e model.EnrichedEvent) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "🔥 *%s*\n", markup.EscapeForMarkdown(e.Headline))
	fmt.Fprintf(&sb, "_%s_\n\n", markup.EscapeForMarkdown(fmt.Sprintf("Горячесть %.2f, %s", e.Hotness, scoring.Category(e.Hotness))))

	if e.WhyNow != "" {
		fmt.Fprintf(&sb, "%s\n\n", markup.EscapeForMarkdown(e.WhyNow))
	}

	for _, bullet := range e.Draft.Bullets {
		fmt.Fprintf(&sb, "• %s\n", markup.EscapeForMarkdown(bullet))
	}

	if len(e.Entities) > 0 {
		fmt.Fprintf(&sb, "\n%s\n", markup.EscapeForMarkdown("Участники: "+strings.Join(e.Entities, ", ")))
	}

	if len(e.Sources) > 0 {
		sb.WriteString("\n")
		for i, src := range e.Sources {
			fmt.Fprintf(&sb, "[%s](%s)\n", markup.EscapeForMarkdown(fmt.Sprintf("Источник %d", i+1)), escapeURL(src))
		}
	}

	return markup.Truncate(strings.TrimRight(sb.String(), "\n"), markup.MaxMessageLength)
}

// Внутри круглых скобок ссылки экранируются только ) и \
var urlReplacer = strings.NewReplacer(`\`, `\\`, ")", `\)`)

func escapeURL(u string) string {
	return urlReplacer.Replace(u)
}
