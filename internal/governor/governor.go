package governor

import (
	"sync"
	"time"
)

// Интервалы провайдеров по умолчанию
var DefaultIntervals = map[string]time.Duration{
	"newsapi":   60 * time.Second,
	"polygon":   12 * time.Second,
	"finnhub":   1 * time.Second,
	"marketaux": 360 * time.Second,
	"fmp":       360 * time.Second,
	"newsdata":  480 * time.Second,
}

// Состояние одного источника. У каждого источника свой мьютекс,
// поэтому разные источники друг друга не блокируют
type gate struct {
	mu          sync.Mutex
	interval    time.Duration
	lastAttempt time.Time
}

func (g *gate) allowed(now time.Time) bool {
	return g.lastAttempt.IsZero() || now.Sub(g.lastAttempt) >= g.interval
}

// Governor пропускает запрос к источнику не чаще, чем раз в его минимальный интервал
type Governor struct {
	gates           sync.Map
	defaultInterval time.Duration
	intervals       map[string]time.Duration
	now             func() time.Time
}

// Resolve выбирает интервал источника: заданный явно, затем умолчание провайдера, затем fallback
func Resolve(kind string, configured, fallback time.Duration) time.Duration {
	if configured > 0 {
		return configured
	}
	if d, ok := DefaultIntervals[kind]; ok {
		return d
	}
	return fallback
}

type Option func(*Governor)

func WithClock(now func() time.Time) Option {
	return func(g *Governor) {
		g.now = now
	}
}

func WithDefaultInterval(d time.Duration) Option {
	return func(g *Governor) {
		g.defaultInterval = d
	}
}

func New(intervals map[string]time.Duration, opts ...Option) *Governor {
	g := &Governor{
		intervals: make(map[string]time.Duration, len(intervals)),
		now:       time.Now,
	}
	for name, d := range intervals {
		// Нулевой интервал означает "не задан", такой источник живет по умолчаниям
		if d > 0 {
			g.intervals[name] = d
		}
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

func (g *Governor) gate(source string) *gate {
	if v, ok := g.gates.Load(source); ok {
		return v.(*gate)
	}

	interval, ok := g.intervals[source]
	if !ok {
		interval = g.defaultInterval
	}

	v, _ := g.gates.LoadOrStore(source, &gate{interval: interval})
	return v.(*gate)
}

// Track задает интервал источника по его описанию. Вызывается перед каждой
// попыткой, поэтому источники, добавленные после старта, тоже получают
// интервал своего провайдера
func (g *Governor) Track(source, kind string, configured time.Duration) {
	interval := configured
	if interval <= 0 {
		if d, ok := g.intervals[source]; ok {
			interval = d
		} else {
			interval = Resolve(kind, 0, g.defaultInterval)
		}
	}

	gt := g.gate(source)

	gt.mu.Lock()
	gt.interval = interval
	gt.mu.Unlock()
}

// CanProceed ничего не меняет, только проверяет прошел ли интервал
func (g *Governor) CanProceed(source string) bool {
	gt := g.gate(source)

	gt.mu.Lock()
	defer gt.mu.Unlock()

	return gt.allowed(g.now())
}

func (g *Governor) RecordAttempt(source string, at time.Time) {
	gt := g.gate(source)

	gt.mu.Lock()
	defer gt.mu.Unlock()

	if at.After(gt.lastAttempt) {
		gt.lastAttempt = at
	}
}

// Acquire атомарно проверяет интервал и сразу записывает попытку.
// Нужен, чтобы два пересекающихся цикла не сходили в источник одновременно
func (g *Governor) Acquire(source string) bool {
	gt := g.gate(source)
	now := g.now()

	gt.mu.Lock()
	defer gt.mu.Unlock()

	if !gt.allowed(now) {
		return false
	}

	gt.lastAttempt = now
	return true
}

// Время до следующего разрешенного запроса
func (g *Governor) Wait(source string) time.Duration {
	gt := g.gate(source)
	now := g.now()

	gt.mu.Lock()
	defer gt.mu.Unlock()

	if gt.allowed(now) {
		return 0
	}
	return gt.interval - now.Sub(gt.lastAttempt)
}
