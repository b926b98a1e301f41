package generator

import (
	"encoding/json"
	"errors"
	"strings"

	"dialogue-generator/internal/model"
)

// ErrNoTranscript - в ответе модели не найден JSON-массив диалога.
var ErrNoTranscript = errors.New("в ответе не найден валидный JSON диалога")

// ParseTranscript извлекает диалог из сырого ответа модели. Модель
// просят вернуть JSON-массив, но вокруг него часто бывает пояснительный
// текст или markdown-ограждение, поэтому берем подстроку от первой '['
// до последней ']'.
func ParseTranscript(raw string) (model.Transcript, error) {
	start := strings.IndexByte(raw, '[')
	end := strings.LastIndexByte(raw, ']')
	if start < 0 || end <= start {
		return nil, ErrNoTranscript
	}

	var transcript model.Transcript
	if err := json.Unmarshal([]byte(raw[start:end+1]), &transcript); err != nil {
		return nil, ErrNoTranscript
	}
	return transcript, nil
}
