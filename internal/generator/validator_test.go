package generator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dialogue-generator/internal/config"
	"dialogue-generator/internal/generator"
	"dialogue-generator/internal/model"
)

func validatorConfig() *config.Config {
	return &config.Config{
		QualityThreshold: 0.6,
		MinTurns:         4,
		RedFlags:         []string{"lorem ipsum", "placeholder", "{{", "}}"},
	}
}

// goodTranscript - эталонный диалог: чередование ролей, тег function_1,
// индикаторы всех категорий качества.
func goodTranscript() model.Transcript {
	return model.Transcript{
		{Role: model.RoleAssistant, Content: "Good morning, thank you for taking my call. May I please speak with Mr. Khalili? This call may be recorded for quality purposes."},
		{Role: model.RoleUser, Content: "Yes, how are you? This is he speaking, sure, go ahead."},
		{Role: model.RoleAssistant, Content: "I appreciate that. I need to verify and confirm your account details regarding an overdue loan payment of 750 dirhams. The amount is past due and the balance remains on your account."},
		{Role: model.RoleUser, Content: "I see, well actually I understand the situation. Okay, I am ready to pay the debt today, really."},
		{Role: model.RoleAssistant, Content: "Thank you, I understand. Let me process your payment right now (function_1). Your payment has been confirmed, have a great day."},
		{Role: model.RoleUser, Content: "Thanks a lot, goodbye, have a wonderful day ahead."},
	}
}

func TestValidator_PassingTranscript(t *testing.T) {
	v := generator.NewValidator(validatorConfig())

	outcome := v.Validate(goodTranscript(), testScenario())

	assert.True(t, outcome.Passed)
	assert.GreaterOrEqual(t, outcome.QualityScore, 0.6)
	assert.Contains(t, outcome.TagsFound, "(function_1)")
	assert.Empty(t, outcome.TagsMissing)
}

func TestValidator_MissingTag(t *testing.T) {
	v := generator.NewValidator(validatorConfig())

	transcript := goodTranscript()
	transcript[4].Content = "Thank you, I understand. Your payment has been confirmed, have a great day."

	outcome := v.Validate(transcript, testScenario())

	assert.False(t, outcome.Passed)
	assert.Contains(t, outcome.TagsMissing, "function_1")
	assert.Contains(t, outcome.Issues, model.Issue("missing required tag (function_1)"))
}

func TestValidator_RedFlagPenalty(t *testing.T) {
	v := generator.NewValidator(validatorConfig())

	clean := v.Validate(goodTranscript(), testScenario())

	flagged := goodTranscript()
	flagged[3].Content += " lorem ipsum"
	withFlag := v.Validate(flagged, testScenario())

	assert.InDelta(t, clean.QualityScore-0.3, withFlag.QualityScore, 0.01,
		"каждый красный флаг стоит 0.3 оценки")
}

func TestValidator_ThresholdInclusive(t *testing.T) {
	// Оценка, равная порогу, проходит
	cfg := validatorConfig()
	cfg.QualityThreshold = 1.0
	v := generator.NewValidator(cfg)

	outcome := v.Validate(goodTranscript(), testScenario())

	assert.Equal(t, 1.0, outcome.QualityScore)
	assert.True(t, outcome.Passed)
}

func TestValidator_EmptyTranscript(t *testing.T) {
	v := generator.NewValidator(validatorConfig())

	outcome := v.Validate(model.Transcript{}, testScenario())

	assert.False(t, outcome.Passed)
	assert.Zero(t, outcome.QualityScore)
	assert.Equal(t, []string{"function_1"}, outcome.TagsMissing)
	assert.Contains(t, outcome.Issues, model.Issue("empty conversation"))
}

func TestValidator_EmptyTurnIsFatal(t *testing.T) {
	v := generator.NewValidator(validatorConfig())

	transcript := goodTranscript()
	transcript[5].Content = "   "

	outcome := v.Validate(transcript, testScenario())

	assert.False(t, outcome.Passed, "пустая реплика фатальна независимо от оценки")
	assert.Contains(t, outcome.Issues, model.Issue("1 empty messages found"))
}

func TestValidator_TooShort(t *testing.T) {
	v := generator.NewValidator(validatorConfig())

	transcript := model.Transcript{
		{Role: model.RoleAssistant, Content: "Hello, is this Mr. Khalili?"},
		{Role: model.RoleUser, Content: "No."},
	}

	outcome := v.Validate(transcript, testScenario())

	assert.False(t, outcome.Passed)
	assert.Contains(t, outcome.Issues, model.Issue("conversation too short (less than 4 exchanges)"))
}

func TestValidator_AlternationViolation(t *testing.T) {
	v := generator.NewValidator(validatorConfig())

	transcript := goodTranscript()
	// Две реплики агента подряд
	transcript[1].Role = model.RoleAssistant

	outcome := v.Validate(transcript, testScenario())

	found := false
	for _, issue := range outcome.Issues {
		if issue == "consecutive turns from role 'assistant' at position 1" {
			found = true
		}
	}
	assert.True(t, found, "нарушение чередования должно попасть в замечания")
}

func TestValidator_TagFormats(t *testing.T) {
	// Теги распознаются в нескольких форматах записи
	v := generator.NewValidator(validatorConfig())

	for _, content := range []string{
		"Let me process that (function_1) right away.",
		"Let me process that <function_1> right away.",
		"Let me process that function_1 right away.",
	} {
		transcript := goodTranscript()
		transcript[4].Content = content

		outcome := v.Validate(transcript, testScenario())
		assert.Contains(t, outcome.TagsFound, "(function_1)", "формат: %s", content)
	}
}

func TestValidator_IndicatorsFromConfig(t *testing.T) {
	// Списки фраз берутся из конфигурации, а не из зашитого набора
	transcript := goodTranscript()

	present := validatorConfig()
	present.QualityIndicators = map[string]string{"greetings": "good morning"}
	foundScore := generator.NewValidator(present).Validate(transcript, testScenario()).QualityScore

	absent := validatorConfig()
	absent.QualityIndicators = map[string]string{"exotic": "quantum flux"}
	missedScore := generator.NewValidator(absent).Validate(transcript, testScenario()).QualityScore

	// Единственная категория найдена целиком: (1 + структура 1) / 2
	assert.InDelta(t, 1.0, foundScore, 0.001)
	// Единственная категория не найдена: (0 + структура 1) / 2
	assert.InDelta(t, 0.5, missedScore, 0.001)
}

func TestValidator_RecommendationUsesMinTurns(t *testing.T) {
	cfg := validatorConfig()
	cfg.MinTurns = 6
	v := generator.NewValidator(cfg)

	transcript := model.Transcript{
		{Role: model.RoleAssistant, Content: "Hello, is this Mr. Khalili?"},
		{Role: model.RoleUser, Content: "Speaking, yes."},
	}

	outcome := v.Validate(transcript, testScenario())

	assert.Contains(t, outcome.Recommendations, "Extend conversation to at least 6 exchanges")
}

func TestValidator_Pure(t *testing.T) {
	v := generator.NewValidator(validatorConfig())
	transcript := goodTranscript()

	o1 := v.Validate(transcript, testScenario())
	o2 := v.Validate(transcript, testScenario())

	assert.Equal(t, o1, o2)
}

func TestValidator_IssueOrder(t *testing.T) {
	// Порядок замечаний: теги, качество, структура
	v := generator.NewValidator(validatorConfig())

	transcript := model.Transcript{
		{Role: model.RoleAssistant, Content: "Hello."},
		{Role: model.RoleUser, Content: "Bye."},
	}

	outcome := v.Validate(transcript, testScenario())

	assert.GreaterOrEqual(t, len(outcome.Issues), 3)
	assert.Equal(t, model.Issue("missing required tag (function_1)"), outcome.Issues[0])
	assert.Contains(t, string(outcome.Issues[1]), "quality_score")
}
