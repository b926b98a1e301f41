package generator_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dialogue-generator/internal/generator"
	"dialogue-generator/internal/model"
)

func testVariation() model.VariationParameters {
	return model.VariationParameters{
		VariationID:  1,
		AgentName:    "Fatima",
		CustomerName: "Ahmed Khalili",
		DebtAmount:   750,
		DueDate:      time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestComposer_Substitution(t *testing.T) {
	c := generator.NewComposer()
	base := "You are Salma. You are calling {FirstName} {LastName} about {amount} due on {DueDate}."

	req := c.Compose(base, testScenario(), testVariation(), nil, 1)

	assert.Contains(t, req.Prompt, "You are Fatima.")
	assert.Contains(t, req.Prompt, "calling Ahmed Khalili")
	assert.Contains(t, req.Prompt, "750 dirhams")
	assert.Contains(t, req.Prompt, "August first")
	assert.NotContains(t, req.Prompt, "{FirstName}")
	assert.NotContains(t, req.Prompt, "{amount}")
	assert.NotContains(t, req.Prompt, "Salma")
}

func TestComposer_ScenarioInstructions(t *testing.T) {
	c := generator.NewComposer()
	s := testScenario()

	req := c.Compose("base prompt", s, testVariation(), nil, 1)

	assert.Contains(t, req.Prompt, "SCENARIO-SPECIFIC INSTRUCTIONS")
	assert.Contains(t, req.Prompt, s.Name)
	assert.Contains(t, req.Prompt, s.CustomerBehavior)
	assert.Contains(t, req.Prompt, "function_1")
}

func TestComposer_FeedbackPrepended(t *testing.T) {
	c := generator.NewComposer()
	feedback := []model.Issue{"missing required tag (function_1)", "conversation too short (less than 4 exchanges)"}

	req := c.Compose("base prompt", testScenario(), testVariation(), feedback, 2)

	assert.True(t, strings.HasPrefix(req.Prompt, "## CRITICAL REQUIREMENTS FOR THIS RETRY:"),
		"блок фидбека должен стоять перед основным промптом")
	assert.Contains(t, req.Prompt, "- missing required tag (function_1)")
	assert.Contains(t, req.Prompt, "- conversation too short (less than 4 exchanges)")
	assert.Equal(t, 2, req.Attempt)
}

func TestComposer_NoFeedbackOnFirstAttempt(t *testing.T) {
	c := generator.NewComposer()

	req := c.Compose("base prompt", testScenario(), testVariation(), nil, 1)

	assert.NotContains(t, req.Prompt, "CRITICAL REQUIREMENTS")
}

func TestComposer_Pure(t *testing.T) {
	c := generator.NewComposer()
	feedback := []model.Issue{"quality_score 0.40 below threshold 0.60"}

	req1 := c.Compose("base {FirstName}", testScenario(), testVariation(), feedback, 2)
	req2 := c.Compose("base {FirstName}", testScenario(), testVariation(), feedback, 2)

	assert.Equal(t, req1.Prompt, req2.Prompt)
}

func TestComposer_UserPrompt(t *testing.T) {
	c := generator.NewComposer()
	req := c.Compose("base prompt", testScenario(), testVariation(), nil, 1)

	userPrompt := c.UserPrompt(req)
	assert.Contains(t, userPrompt, "JSON array")
	assert.Contains(t, userPrompt, req.Prompt)
	assert.Contains(t, userPrompt, "Generate the conversation now:")
}
