package generator

import (
	"time"

	"github.com/google/uuid"

	"dialogue-generator/internal/model"
)

// BuildRecord собирает итоговую запись для одной пары (сценарий,
// вариация). Запись формируется всегда, в том числе для исчерпанных
// попыток: в этом случае validation_passed=false и в метаданных лежат
// замечания последней попытки.
func BuildRecord(s *model.ScenarioDefinition, v model.VariationParameters, out RetryOutcome, modelName, batchID, promptID string, now time.Time) model.ResultRecord {
	transcript := out.Transcript
	if transcript == nil {
		transcript = model.Transcript{}
	}

	tagsFound := out.Validation.TagsFound
	if tagsFound == nil {
		tagsFound = []string{}
	}

	issues := make([]string, len(out.Validation.Issues))
	for i, issue := range out.Validation.Issues {
		issues[i] = string(issue)
	}

	return model.ResultRecord{
		ScenarioID:       s.ID,
		VariationID:      v.VariationID,
		Conversation:     transcript,
		ValidationPassed: out.Validation.Passed,
		SpecialTagsFound: tagsFound,
		Metadata: model.RecordMetadata{
			GeneratedAt:  now.UTC(),
			Model:        modelName,
			AttemptsUsed: out.AttemptsUsed,
			QualityScore: out.Validation.QualityScore,
			Issues:       issues,
			BatchID:      batchID,
			PromptID:     promptID,
			Language:     "en",
		},
	}
}

// NewBatchID генерирует идентификатор прогона.
func NewBatchID() string {
	return uuid.NewString()
}
