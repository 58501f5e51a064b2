package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

// Файловый кеш: одна запись - один файл <key>.json
type FileCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

type fileEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Value     string    `json:"value"`
}

func NewFileCache(dir string, ttl time.Duration) (*FileCache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return &FileCache{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func (c *FileCache) Get(_ context.Context, key string) (string, bool, error) {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &model.CacheError{Key: key, Err: err}
	}

	var e fileEntry
	if err := json.Unmarshal(data, &e); err != nil {
		_ = os.Remove(path)
		return "", false, &model.CacheError{Key: key, Err: err}
	}

	if c.now().Sub(e.Timestamp) >= c.ttl {
		_ = os.Remove(path)
		return "", false, nil
	}

	return e.Value, true, nil
}

// Пишем во временный файл и переименовываем, чтобы читатель не увидел половину записи
func (c *FileCache) Set(_ context.Context, key, value string) error {
	data, err := json.Marshal(fileEntry{Timestamp: c.now(), Value: value})
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), c.path(key))
}
