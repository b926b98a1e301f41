package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"

	"dialogue-generator/internal/model"
)

// PostgresRepository хранит результаты в PostgreSQL. Повторная запись
// той же пары (batch, prompt, scenario, variation) перезаписывает
// строку: продолжение прерванного прогона не плодит дубликатов.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создает хранилище поверх готового пула.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save сохраняет запись результата.
func (r *PostgresRepository) Save(ctx context.Context, record *model.ResultRecord) error {
	conversation, err := json.Marshal(record.Conversation)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать диалог %s/%d: %w", record.ScenarioID, record.VariationID, err)
	}
	issues, err := json.Marshal(record.Metadata.Issues)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать замечания %s/%d: %w", record.ScenarioID, record.VariationID, err)
	}

	query := `
		INSERT INTO dialogue_results (
			batch_id, prompt_id, scenario_id, variation_id,
			conversation, validation_passed, special_tags_found,
			quality_score, attempts_used, issues, model, language, generated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (batch_id, prompt_id, scenario_id, variation_id) DO UPDATE SET
			conversation = EXCLUDED.conversation,
			validation_passed = EXCLUDED.validation_passed,
			special_tags_found = EXCLUDED.special_tags_found,
			quality_score = EXCLUDED.quality_score,
			attempts_used = EXCLUDED.attempts_used,
			issues = EXCLUDED.issues,
			model = EXCLUDED.model,
			language = EXCLUDED.language,
			generated_at = EXCLUDED.generated_at
	`
	_, err = r.pool.Exec(ctx, query,
		record.Metadata.BatchID,
		record.Metadata.PromptID,
		record.ScenarioID,
		record.VariationID,
		conversation,
		record.ValidationPassed,
		record.SpecialTagsFound,
		record.Metadata.QualityScore,
		record.Metadata.AttemptsUsed,
		issues,
		record.Metadata.Model,
		record.Metadata.Language,
		record.Metadata.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("не удалось сохранить результат %s/%d: %w", record.ScenarioID, record.VariationID, err)
	}
	return nil
}

// BatchSummary - агрегированная сводка по прогону.
type BatchSummary struct {
	Total          int     `db:"total"`
	Accepted       int     `db:"accepted"`
	AverageQuality float64 `db:"average_quality"`
	AvgAttempts    float64 `db:"avg_attempts"`
}

// GetBatchSummary возвращает сводку по batch_id.
func (r *PostgresRepository) GetBatchSummary(ctx context.Context, batchID string) (*BatchSummary, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE validation_passed) AS accepted,
			COALESCE(AVG(quality_score), 0) AS average_quality,
			COALESCE(AVG(attempts_used), 0) AS avg_attempts
		FROM dialogue_results
		WHERE batch_id = $1
	`
	var summary BatchSummary
	if err := pgxscan.Get(ctx, r.pool, &summary, query, batchID); err != nil {
		return nil, fmt.Errorf("не удалось получить сводку по прогону %s: %w", batchID, err)
	}
	return &summary, nil
}

// Close закрывает пул соединений.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
