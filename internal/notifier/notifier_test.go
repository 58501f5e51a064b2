package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func event(headline string, hotness float64, source string) model.EnrichedEvent {
	return model.EnrichedEvent{
		Headline: headline,
		Hotness:  hotness,
		WhyNow:   "Решение регулятора влияет на стоимость кредитов.",
		Entities: []string{"ЦБ РФ"},
		Sources:  []string{source},
		Draft:    model.Draft{Bullets: []string{"Ставка выросла на 2 п.п."}},
	}
}

func TestNotifier_Publish(t *testing.T) {
	sender := &fakeSender{}
	n := New(sender, Config{ChannelID: -100, TopN: 2, MinHotness: 0.3}, zerolog.Nop())

	out := model.RadarOutput{
		RunID: "run-1",
		TopEvents: []model.EnrichedEvent{
			event("ЦБ поднял ставку", 0.9, "https://example.com/a"),
			event("Нефть дорожает", 0.6, "https://example.com/b"),
			event("Золото растет", 0.5, "https://example.com/c"),
			event("Тихая новость", 0.1, "https://example.com/d"),
		},
	}

	require.NoError(t, n.Publish(context.Background(), out))
	require.Len(t, sender.sent, 2)
	assert.Equal(t, int64(-100), sender.sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, sender.sent[0].ParseMode)
	assert.Contains(t, sender.sent[0].Text, "ЦБ поднял ставку")

	// Уже опубликованные события повторно не идут, следующее по горячести идет
	require.NoError(t, n.Publish(context.Background(), out))
	require.Len(t, sender.sent, 3)
	assert.Contains(t, sender.sent[2].Text, "Золото растет")

	// После окна событие можно публиковать снова
	n.now = func() time.Time { return time.Now().Add(7 * time.Hour) }
	require.NoError(t, n.Publish(context.Background(), out))
	assert.Len(t, sender.sent, 5)
}

func TestNotifier_SendError(t *testing.T) {
	sender := &fakeSender{err: errors.New("chat not found")}
	n := New(sender, Config{ChannelID: 1}, zerolog.Nop())

	err := n.Publish(context.Background(), model.RadarOutput{
		TopEvents: []model.EnrichedEvent{event("ЦБ поднял ставку", 0.9, "https://example.com/a")},
	})
	assert.Error(t, err)

	// Неотправленное событие не считается опубликованным
	sender.err = nil
	require.NoError(t, n.Publish(context.Background(), model.RadarOutput{
		TopEvents: []model.EnrichedEvent{event("ЦБ поднял ставку", 0.9, "https://example.com/a")},
	}))
	assert.Len(t, sender.sent, 1)
}

func TestFormatEvent(t *testing.T) {
	text := FormatEvent(model.EnrichedEvent{
		Headline: "S&P 500 упал на 3.5%",
		Hotness:  0.82,
		WhyNow:   "Распродажа (массовая) в техсекторе.",
		Entities: []string{"Apple", "США"},
		Sources:  []string{"https://example.com/news_(1)"},
		Draft:    model.Draft{Bullets: []string{"Индекс-ориентир"}},
	})

	assert.True(t, strings.HasPrefix(text, `🔥 *S&P 500 упал на 3\.5%*`))
	assert.Contains(t, text, `_Горячесть 0\.82, экстремально горячая новость_`)
	assert.Contains(t, text, `Распродажа \(массовая\) в техсекторе\.`)
	assert.Contains(t, text, `• Индекс\-ориентир`)
	assert.Contains(t, text, `Участники: Apple, США`)
	assert.Contains(t, text, `[Источник 1](https://example.com/news_(1\))`)
}
