package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

// Sink получает результат каждого успешного прогона: файл, база, телеграм
type Sink interface {
	Publish(ctx context.Context, out model.RadarOutput) error
}

type Runner struct {
	pipeline *Pipeline
	sinks    []Sink
	// Интервал между прогонами
	interval time.Duration
	log      zerolog.Logger

	mu     sync.RWMutex
	latest *model.RadarOutput
}

func NewRunner(p *Pipeline, interval time.Duration, log zerolog.Logger, sinks ...Sink) *Runner {
	return &Runner{
		pipeline: p,
		sinks:    sinks,
		interval: interval,
		log:      log,
	}
}

// Start запускает прогон сразу и дальше по тикеру, пока не отменят контекст
func (r *Runner) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if err := r.tick(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ticker.C:
			if err := r.tick(ctx); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Ошибка конфигурации останавливает раннер, сбой отдельного прогона только логируется
func (r *Runner) tick(ctx context.Context) error {
	_, err := r.RunOnce(ctx)
	if errors.Is(err, model.ErrNoSources) {
		return err
	}
	if err != nil {
		r.log.Error().Err(err).Msg("radar run failed")
	}
	return nil
}

// RunOnce выполняет один прогон и раздает результат по sink'ам
func (r *Runner) RunOnce(ctx context.Context) (model.RadarOutput, error) {
	out, err := r.pipeline.Run(ctx)
	if err != nil {
		return model.RadarOutput{}, err
	}

	r.mu.Lock()
	r.latest = &out
	r.mu.Unlock()

	for _, sink := range r.sinks {
		if err := sink.Publish(ctx, out); err != nil {
			r.log.Error().Err(err).Str("run_id", out.RunID).Msg("failed to publish radar output")
		}
	}

	return out, nil
}

// Seed подставляет сохраненный ранее результат, пока не прошел первый прогон
func (r *Runner) Seed(out model.RadarOutput) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.latest == nil {
		r.latest = &out
	}
}

// Latest отдает результат последнего успешного прогона
func (r *Runner) Latest() (model.RadarOutput, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.latest == nil {
		return model.RadarOutput{}, false
	}
	return *r.latest, true
}
