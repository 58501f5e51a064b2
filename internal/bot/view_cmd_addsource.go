package bot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kovalyov-valentin/news-radar/internal/botkit"
	"github.com/kovalyov-valentin/news-radar/internal/botkit/markup"
	"github.com/kovalyov-valentin/news-radar/internal/governor"
	"github.com/kovalyov-valentin/news-radar/internal/model"
	"github.com/kovalyov-valentin/news-radar/internal/source"
)

type SourceStorage interface {
	Add(ctx context.Context, source model.Source) (int64, error)
}

type addSourceArgs struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Kind        string `json:"kind"`
	Category    string `json:"category"`
	Credibility int    `json:"credibility"`
}

func (a addSourceArgs) toModel() (model.Source, error) {
	if strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.URL) == "" {
		return model.Source{}, errors.New("name и url обязательны")
	}

	m := model.Source{
		Name:        strings.TrimSpace(a.Name),
		Kind:        strings.ToLower(strings.TrimSpace(a.Kind)),
		FeedURL:     strings.TrimSpace(a.URL),
		Category:    a.Category,
		Credibility: a.Credibility,
	}
	if m.Kind == "" {
		m.Kind = source.KindRSS
	}
	// Локальные файлы через бота не добавляются: читать можно только по сети
	if m.Kind == source.KindFile {
		return model.Source{}, errors.New("тип file недоступен для добавления через бота")
	}
	if u, err := url.Parse(m.FeedURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return model.Source{}, errors.New("url должен начинаться с http:// или https://")
	}
	m.MinInterval = governor.Resolve(m.Kind, 0, 0)
	if m.Credibility <= 0 || m.Credibility > 10 {
		m.Credibility = 5
	}

	// Конструктор источника проверяет, что такой тип провайдера поддерживается
	if _, err := source.New(m, nil); err != nil {
		return model.Source{}, err
	}
	return m, nil
}

// Аргументы передаются JSON объектом:
// /addsource {"name": "Interfax", "url": "https://www.interfax.ru/rss.asp", "credibility": 9}
func ViewCmdAddSource(storage SourceStorage) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		args, err := botkit.ParseJSON[addSourceArgs](update.Message.CommandArguments())
		if err != nil {
			return replyText(bot, update, "Не удалось разобрать аргументы\\. Ожидается JSON: `{\"name\": \"...\", \"url\": \"...\"}`")
		}

		src, err := args.toModel()
		if err != nil {
			return replyText(bot, update, markup.EscapeForMarkdown("Некорректный источник: "+err.Error()))
		}

		sourceID, err := storage.Add(ctx, src)
		if err != nil {
			return err
		}

		return replyText(bot, update, fmt.Sprintf(
			"Источник добавлен с ID: `%d`\\. Он будет опрошен в следующем прогоне\\.",
			sourceID,
		))
	}
}

func replyText(bot *tgbotapi.BotAPI, update tgbotapi.Update, text string) error {
	reply := tgbotapi.NewMessage(update.Message.Chat.ID, text)
	reply.ParseMode = tgbotapi.ModeMarkdownV2

	_, err := bot.Send(reply)
	return err
}
