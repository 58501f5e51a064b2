package botkit

import (
	"encoding/json"
	"fmt"
)

// ParseJSON разбирает аргументы команды, переданные одним JSON объектом
func ParseJSON[T any](src string) (T, error) {
	var args T
	if err := json.Unmarshal([]byte(src), &args); err != nil {
		return args, fmt.Errorf("parse command arguments: %w", err)
	}
	return args, nil
}
