package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"dialogue-generator/internal/model"
)

// JSONLRepository пишет записи в JSONL-файл: одна запись - одна строка.
// Каждая запись уходит на диск сразу, без буферизации: файл служит
// чекпоинтом прогона.
type JSONLRepository struct {
	mu     sync.Mutex
	file   *os.File
	closed bool
}

// NewJSONLRepository открывает файл результатов на дозапись.
func NewJSONLRepository(path string) (*JSONLRepository, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл результатов %s: %w", path, err)
	}
	return &JSONLRepository{file: file}, nil
}

// Save сериализует запись и дописывает строку в файл.
func (r *JSONLRepository) Save(_ context.Context, record *model.ResultRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRepositoryClosed
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать запись %s/%d: %w", record.ScenarioID, record.VariationID, err)
	}

	if _, err := r.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("не удалось записать результат: %w", err)
	}
	return nil
}

// Close закрывает файл результатов.
func (r *JSONLRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}
