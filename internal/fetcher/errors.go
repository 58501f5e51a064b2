package fetcher

import (
	"fmt"
	"time"
)

// Источник пропущен в этом цикле, его интервал еще не прошел
type RateLimitedError struct {
	Source string
	Wait   time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("source %s is rate limited for %s", e.Source, e.Wait)
}

// Любая другая ошибка источника: сеть, статус, разбор ответа
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }
