package summary

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

const defaultOpenAIModel = openai.GPT3Dot5Turbo

// OpenAIGenerator генерирует тексты через chat completions API.
// Подходит и для совместимых сервисов с другим base url
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	// Без ключа генератор выключен и всегда отвечает ошибкой
	enabled bool
}

func NewOpenAIGenerator(apiKey, baseURL, modelName string, log zerolog.Logger) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if modelName == "" {
		modelName = defaultOpenAIModel
	}

	log.Info().Bool("enabled", apiKey != "").Str("model", modelName).Msg("openai generator")

	return &OpenAIGenerator{
		client:  openai.NewClientWithConfig(cfg),
		model:   modelName,
		enabled: apiKey != "",
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, maxLength int) (string, error) {
	if !g.enabled {
		return "", &model.ExternalServiceError{Service: "openai", Err: errDisabled}
	}

	request := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   tokensFor(maxLength),
		Temperature: 0.3,
		TopP:        1,
	}

	resp, err := g.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", &model.ExternalServiceError{Service: "openai", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &model.ExternalServiceError{Service: "openai", Err: errEmptyResponse}
	}

	// Берем первый вариант ответа
	return clip(trimToSentence(strings.TrimSpace(resp.Choices[0].Message.Content)), maxLength), nil
}

// Ответ, оборванный по лимиту токенов, обрезаем до последнего законченного предложения
func trimToSentence(text string) string {
	if text == "" || strings.HasSuffix(text, ".") {
		return text
	}

	idx := strings.LastIndex(text, ".")
	if idx < 0 {
		return text
	}
	return text[:idx+1]
}
