package model

import (
	"time"
)

// Роли реплик в сгенерированном диалоге.
// "assistant" - агент по взысканию, "user" - клиент.
const (
	RoleAssistant = "assistant"
	RoleUser      = "user"
)

// ScenarioDefinition описывает один сценарий разговора из каталога.
// Структура неизменяемая: ядро только читает её.
type ScenarioDefinition struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	CustomerBehavior string   `json:"customer_behavior"`
	Outcome          string   `json:"outcome"`
	SpecialTags      []string `json:"special_tags"`
}

// VariationParameters - конкретная параметризация сценария.
// Создаётся заново для каждой вариации и после этого не изменяется.
type VariationParameters struct {
	VariationID  int       // 1..N внутри сценария
	CustomerName string
	AgentName    string
	DebtAmount   int       // сумма долга в дирхамах
	DueDate      time.Time // просроченная дата платежа
}

// Issue - одно нарушение правила валидации, в человекочитаемом виде.
// Используется и в отчёте, и в фидбеке для повторной генерации.
type Issue string

// GenerationRequest - запрос на одну попытку генерации.
// Собирается заново на каждую попытку, никогда не мутируется.
type GenerationRequest struct {
	Scenario  *ScenarioDefinition
	Variation VariationParameters
	Attempt   int     // номер попытки, начиная с 1
	Feedback  []Issue // пусто на первой попытке
	Prompt    string  // итоговый текст промпта для генерации
}

// Turn - одна реплика диалога.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transcript - упорядоченная последовательность реплик одной попытки.
type Transcript []Turn

// ValidationOutcome - результат проверки одного транскрипта.
// Вычисляется заново на каждую попытку, не мутируется.
type ValidationOutcome struct {
	Passed          bool
	QualityScore    float64 // [0..1]
	TagsFound       []string
	TagsMissing     []string
	Issues          []Issue
	Recommendations []string
}

// RecordMetadata - метаданные одной записи результата.
type RecordMetadata struct {
	GeneratedAt  time.Time `json:"generated_at"`
	Model        string    `json:"model"`
	AttemptsUsed int       `json:"attempts_used"`
	QualityScore float64   `json:"quality_score"`
	Issues       []string  `json:"issues,omitempty"`
	BatchID      string    `json:"batch_id,omitempty"`
	PromptID     string    `json:"prompt_id,omitempty"`
	Language     string    `json:"language,omitempty"`
}

// ResultRecord - единица вывода: ровно одна на пару (сценарий, вариация),
// независимо от того, прошла ли валидация.
type ResultRecord struct {
	ScenarioID       string         `json:"scenario_id"`
	VariationID      int            `json:"variation_id"`
	Conversation     Transcript     `json:"conversation"`
	ValidationPassed bool           `json:"validation_passed"`
	SpecialTagsFound []string       `json:"special_tags_found"`
	Metadata         RecordMetadata `json:"metadata"`
}

// InputPrompt - входная запись с системным промптом.
// Ядро использует только SystemPrompt, остальное - метаданные.
type InputPrompt struct {
	ID           string         `json:"id"`
	SystemPrompt string         `json:"system_prompt"`
	Language     string         `json:"language"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// RunStats - итоговая статистика батч-прогона.
type RunStats struct {
	TotalPrompts       int
	TotalConversations int
	Accepted           int
	Exhausted          int
	QualitySum         float64
	StartedAt          time.Time
	FinishedAt         time.Time
}

// AverageQuality возвращает средний quality score по всем записям.
func (s *RunStats) AverageQuality() float64 {
	if s.TotalConversations == 0 {
		return 0
	}
	return s.QualitySum / float64(s.TotalConversations)
}

// SuccessRate возвращает долю принятых записей в процентах.
func (s *RunStats) SuccessRate() float64 {
	if s.TotalConversations == 0 {
		return 0
	}
	return float64(s.Accepted) / float64(s.TotalConversations) * 100
}

// Duration возвращает общее время прогона.
func (s *RunStats) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
