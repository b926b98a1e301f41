package generator

import (
	"context"
	"fmt"
	"log"
	"time"

	"dialogue-generator/internal/model"
	"dialogue-generator/internal/repository"
)

// Runner обходит декартово произведение промпты x сценарии x вариации
// и записывает одну запись результата на каждую тройку. Обход
// последовательный: порядок записей детерминирован, а нагрузка на
// AI-провайдера предсказуема.
type Runner struct {
	expander   *Expander
	controller *Controller
	repo       repository.ResultRepository

	modelName      string
	variations     int
	metricsEnabled bool
}

// NewRunner создает Runner.
func NewRunner(expander *Expander, controller *Controller, repo repository.ResultRepository, modelName string, variations int, metricsEnabled bool) *Runner {
	return &Runner{
		expander:       expander,
		controller:     controller,
		repo:           repo,
		modelName:      modelName,
		variations:     variations,
		metricsEnabled: metricsEnabled,
	}
}

// Run выполняет весь батч. Каждая запись сохраняется сразу после
// завершения своей тройки: прерванный прогон оставляет валидный файл
// результатов. Отмена контекста останавливает прогон между тройками.
func (r *Runner) Run(ctx context.Context, prompts []model.InputPrompt, scenarios []model.ScenarioDefinition) (*model.RunStats, error) {
	stats := &model.RunStats{
		TotalPrompts: len(prompts),
		StartedAt:    time.Now(),
	}
	batchID := NewBatchID()

	total := len(prompts) * len(scenarios) * r.variations
	log.Printf("Старт прогона %s: %d промптов x %d сценариев x %d вариаций = %d диалогов",
		batchID, len(prompts), len(scenarios), r.variations, total)

	for pi, prompt := range prompts {
		log.Printf("Промпт %d/%d: %s", pi+1, len(prompts), prompt.ID)

		for si := range scenarios {
			s := &scenarios[si]
			log.Printf("Processing scenario %d/%d: %s", si+1, len(scenarios), s.ID)

			for index := 1; index <= r.variations; index++ {
				if err := ctx.Err(); err != nil {
					stats.FinishedAt = time.Now()
					return stats, err
				}

				variation, err := r.expander.Expand(s, index)
				if err != nil {
					stats.FinishedAt = time.Now()
					return stats, fmt.Errorf("не удалось раскрыть сценарий %s: %w", s.ID, err)
				}

				out, err := r.controller.Run(ctx, prompt.SystemPrompt, s, variation)
				if err != nil {
					stats.FinishedAt = time.Now()
					return stats, err
				}

				record := BuildRecord(s, variation, out, r.modelName, batchID, prompt.ID, time.Now())
				record.Metadata.Language = prompt.Language

				if err := r.repo.Save(ctx, &record); err != nil {
					stats.FinishedAt = time.Now()
					return stats, fmt.Errorf("не удалось сохранить результат %s/%d: %w", s.ID, index, err)
				}

				stats.TotalConversations++
				stats.QualitySum += out.Validation.QualityScore
				if out.State == StateAccepted {
					stats.Accepted++
				} else {
					stats.Exhausted++
				}

				if r.metricsEnabled {
					MetricsRecordOutcome(out)
				}
			}
		}
	}

	stats.FinishedAt = time.Now()
	log.Printf("Прогон %s завершен: %d диалогов, принято %d (%.1f%%), среднее качество %.2f, время %v",
		batchID, stats.TotalConversations, stats.Accepted, stats.SuccessRate(), stats.AverageQuality(), stats.Duration().Round(time.Second))
	return stats, nil
}
