package summary

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

var (
	errDisabled      = errors.New("generator disabled: no api key")
	errEmptyResponse = errors.New("empty response")
)

const systemPrompt = "Ты финансовый редактор. Отвечай по-русски, кратко и по существу, без вводных слов."

// Generator медленный и ненадежный внешний генератор текста
type Generator interface {
	Generate(ctx context.Context, prompt string, maxLength int) (string, error)
}

// Грубая оценка: для кириллицы около двух символов на токен
func tokensFor(maxLength int) int {
	if maxLength <= 0 {
		return 256
	}
	return maxLength/2 + 16
}

// Обрезаем по границе руны
func clip(s string, maxLength int) string {
	if maxLength <= 0 || utf8.RuneCountInString(s) <= maxLength {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:maxLength]))
}
