package model

import (
	"errors"
	"fmt"
)

var (
	ErrNoSources   = errors.New("no sources configured")
	ErrBadWeights  = errors.New("hotness weights must sum to 1.0")
	ErrNoNarrative = errors.New("narrative generator unavailable")
)

// Некорректная запись во входных данных. Запись отбрасывается, батч продолжается
type ValidationError struct {
	Source string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid item from %s: %s", e.Source, e.Reason)
}

// Превышен дедлайн запроса к источнику или внешнему сервису
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Внешний NLP/LLM сервис вернул ошибку или мусор
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// Битая запись кеша. Считается промахом
type CacheError struct {
	Key string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache entry %s: %v", e.Key, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }
