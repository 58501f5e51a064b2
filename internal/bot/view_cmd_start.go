package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kovalyov-valentin/news-radar/internal/botkit"
)

const startText = "Привет\\! Я радар финансовых новостей\\.\n\n" +
	"/top: самые горячие события последнего прогона\n" +
	"/listsources: список источников\n" +
	"/addsource: добавить источник \\(только для админов\\)"

func ViewCmdStart() botkit.ViewFunc {
	return func(_ context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		reply := tgbotapi.NewMessage(update.Message.Chat.ID, startText)
		reply.ParseMode = tgbotapi.ModeMarkdownV2

		_, err := bot.Send(reply)
		return err
	}
}
