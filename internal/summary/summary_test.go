package summary

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kovalyov-valentin/news-radar/internal/cache"
	"github.com/kovalyov-valentin/news-radar/internal/model"
)

func TestRuleTable(t *testing.T) {
	table := DefaultRuleTable()

	tests := []struct {
		name   string
		prompt string
		want   string
	}{
		{
			name:   "why now by keyword",
			prompt: "Почему эта новость важна сейчас: рубль обвалился к доллару",
			want:   "Резкие колебания валютных курсов влияют на инфляцию, импорт и экономическую стабильность страны.",
		},
		{
			name:   "why now default",
			prompt: "Почему эта новость важна сейчас: выпуск отчетности",
			want:   "Данное событие может существенно повлиять на финансовые рынки и требует пристального внимания инвесторов.",
		},
		{
			name:   "bank needs whole word",
			prompt: "Почему эта новость важна сейчас: банкомат сломался",
			want:   "Данное событие может существенно повлиять на финансовые рынки и требует пристального внимания инвесторов.",
		},
		{
			name:   "headline",
			prompt: "Создай краткий заголовок: биткоин упал на 20%",
			want:   "Резкое падение биткоина вызвало распродажи на криптовалютном рынке",
		},
		{
			name:   "news text does not switch section",
			prompt: "Создай краткий заголовок: почему это важно для рынка",
			want:   "Важное событие на финансовых рынках",
		},
		{
			name:   "lead",
			prompt: "Напиши краткий лид-абзац для новости: банкротство банка",
			want:   "Ситуация с банкротством развивается стремительно. Регулятор принимает экстренные меры для стабилизации ситуации. Вкладчики могут рассчитывать на выплаты в рамках системы страхования депозитов.",
		},
		{
			name:   "unknown",
			prompt: "Переведи: hello",
			want:   "Краткий анализ темы.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.Generate(context.Background(), tt.prompt, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := table.Generate(context.Background(), "Создай краткий заголовок: рубль", 5)
	require.NoError(t, err)
	assert.Equal(t, "Рубль", got)
}

type countingGenerator struct {
	calls atomic.Int32
	fn    func(ctx context.Context, prompt string) (string, error)
}

func (g *countingGenerator) Generate(ctx context.Context, prompt string, _ int) (string, error) {
	g.calls.Add(1)
	return g.fn(ctx, prompt)
}

func newCache() *cache.Cache {
	return cache.New(cache.NewMemoryCache(time.Hour), zerolog.Nop())
}

func TestCached_HitsCache(t *testing.T) {
	next := &countingGenerator{fn: func(_ context.Context, prompt string) (string, error) {
		return "  ответ на " + prompt + " ", nil
	}}
	g := NewCached(next, newCache())

	for i := 0; i < 3; i++ {
		got, err := g.Generate(context.Background(), "вопрос", 100)
		require.NoError(t, err)
		assert.Equal(t, "ответ на вопрос", got)
	}

	assert.Equal(t, int32(1), next.calls.Load())
	assert.Equal(t, int64(1), g.Calls())
	assert.Equal(t, int64(2), g.Hits())

	// Другой лимит длины дает другой ключ
	_, err := g.Generate(context.Background(), "вопрос", 50)
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	fail := true
	next := &countingGenerator{fn: func(context.Context, string) (string, error) {
		if fail {
			return "", &model.ExternalServiceError{Service: "test", Err: errors.New("boom")}
		}
		return "ok", nil
	}}
	g := NewCached(next, newCache())

	_, err := g.Generate(context.Background(), "p", 10)
	var extErr *model.ExternalServiceError
	require.ErrorAs(t, err, &extErr)

	fail = false
	got, err := g.Generate(context.Background(), "p", 10)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestCached_EmptyResponseIsError(t *testing.T) {
	next := &countingGenerator{fn: func(context.Context, string) (string, error) { return "   ", nil }}

	_, err := NewCached(next, nil).Generate(context.Background(), "p", 10)
	var extErr *model.ExternalServiceError
	assert.ErrorAs(t, err, &extErr)
}

func TestCached_CallTimeout(t *testing.T) {
	next := &countingGenerator{fn: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	g := NewCached(next, newCache(), WithCallTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := g.Generate(context.Background(), "slow", 10)

	var timeoutErr *model.TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCached_RateLimitRespectsContext(t *testing.T) {
	next := &countingGenerator{fn: func(context.Context, string) (string, error) { return "ok", nil }}
	g := NewCached(next, nil, WithRateLimit(1))

	_, err := g.Generate(context.Background(), "first", 10)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = g.Generate(ctx, "second", 10)
	var timeoutErr *model.TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestTrimToSentence(t *testing.T) {
	assert.Equal(t, "Первое. Второе.", trimToSentence("Первое. Второе. Треть"))
	assert.Equal(t, "Целое.", trimToSentence("Целое."))
	assert.Equal(t, "без точки", trimToSentence("без точки"))
}
