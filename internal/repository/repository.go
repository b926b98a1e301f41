// Package repository содержит хранилища результатов генерации и чтение
// входных промптов.
package repository

import (
	"context"
	"errors"

	"dialogue-generator/internal/model"
)

// ErrRepositoryClosed - попытка записи в закрытое хранилище.
var ErrRepositoryClosed = errors.New("хранилище результатов закрыто")

// ResultRepository - хранилище итоговых записей. Save должен быть
// долговечным: после возврата запись переживает падение процесса,
// прогон можно продолжить с места обрыва.
type ResultRepository interface {
	Save(ctx context.Context, record *model.ResultRecord) error
	Close() error
}
