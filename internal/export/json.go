package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kovalyov-valentin/news-radar/internal/model"
)

// JSONFile пишет результат прогона в файл. Файл перезаписывается целиком,
// через временный файл и rename, чтобы читатель не увидел половину JSON
type JSONFile struct {
	path string
}

func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

func (f *JSONFile) Publish(_ context.Context, out model.RadarOutput) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal radar output: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".radar-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write radar output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}

// ReadJSONFile читает ранее сохраненный результат, нужен чтобы отдать
// последний радар сразу после рестарта
func ReadJSONFile(path string) (model.RadarOutput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.RadarOutput{}, err
	}

	var out model.RadarOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return model.RadarOutput{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}
