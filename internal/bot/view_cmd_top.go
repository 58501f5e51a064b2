package bot

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kovalyov-valentin/news-radar/internal/botkit"
	"github.com/kovalyov-valentin/news-radar/internal/botkit/markup"
	"github.com/kovalyov-valentin/news-radar/internal/model"
	"github.com/kovalyov-valentin/news-radar/internal/notifier"
)

const (
	defaultTopCount = 3
	maxTopCount     = 10
)

type RadarProvider interface {
	Latest() (model.RadarOutput, bool)
}

// /top [n] показывает n самых горячих событий последнего прогона
func ViewCmdTop(radar RadarProvider) botkit.ViewFunc {
	return func(_ context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		out, ok := radar.Latest()
		if !ok || len(out.TopEvents) == 0 {
			return replyText(bot, update, "Радар еще не собрал ни одного события, попробуйте позже\\.")
		}

		events := out.TopEvents
		if n := topCount(update.Message.CommandArguments()); len(events) > n {
			events = events[:n]
		}

		for _, event := range events {
			reply := tgbotapi.NewMessage(update.Message.Chat.ID, notifier.FormatEvent(event))
			reply.ParseMode = tgbotapi.ModeMarkdownV2
			reply.DisableWebPagePreview = true

			if _, err := bot.Send(reply); err != nil {
				return err
			}
		}

		return replyText(bot, update, markup.EscapeForMarkdown(
			"Прогон "+out.Timestamp.Format("02.01.2006 15:04")+" UTC, новостей обработано: "+strconv.Itoa(out.Stats.TotalProcessed),
		))
	}
}

func topCount(args string) int {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || n <= 0 {
		return defaultTopCount
	}
	if n > maxTopCount {
		return maxTopCount
	}
	return n
}
