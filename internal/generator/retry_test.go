package generator_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dialogue-generator/internal/generator"
	"dialogue-generator/internal/mocks"
	"dialogue-generator/internal/model"
	"dialogue-generator/internal/service"
)

func newController(client service.AIClient, maxAttempts, transportRetries int) *generator.Controller {
	return generator.NewController(
		client,
		generator.NewComposer(),
		generator.NewValidator(validatorConfig()),
		maxAttempts,
		transportRetries,
		time.Millisecond,
		service.GenerationParams{},
	)
}

// badConversation - валидный JSON, не проходящий валидацию: короткий,
// без тегов.
const badConversation = `[{"role": "assistant", "content": "Hello."}, {"role": "user", "content": "Bye."}]`

func TestController_AcceptedFirstAttempt(t *testing.T) {
	mockAI := mocks.NewMockAIClient(t)
	mockAI.On("GenerateConversation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(transcriptJSON(t), service.UsageInfo{TotalTokens: 100}, nil).Once()

	c := newController(mockAI, 3, 0)
	out, err := c.Run(context.Background(), "base prompt", testScenario(), testVariation())

	require.NoError(t, err)
	assert.Equal(t, generator.StateAccepted, out.State)
	assert.Equal(t, 1, out.AttemptsUsed)
	assert.True(t, out.Validation.Passed)
	assert.Equal(t, 100, out.Usage.TotalTokens)
	mockAI.AssertExpectations(t)
}

func TestController_RetryWithFeedback(t *testing.T) {
	mockAI := mocks.NewMockAIClient(t)

	// Первая попытка - диалог без тега, вторая должна получить фидбек
	mockAI.On("GenerateConversation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(badConversation, service.UsageInfo{}, nil).Once()
	mockAI.On("GenerateConversation", mock.Anything, mock.Anything, mock.Anything,
		mock.MatchedBy(func(userPrompt string) bool {
			return strings.Contains(userPrompt, "CRITICAL REQUIREMENTS FOR THIS RETRY") &&
				strings.Contains(userPrompt, "missing required tag (function_1)")
		}), mock.Anything).
		Return(transcriptJSON(t), service.UsageInfo{}, nil).Once()

	c := newController(mockAI, 3, 0)
	out, err := c.Run(context.Background(), "base prompt", testScenario(), testVariation())

	require.NoError(t, err)
	assert.Equal(t, generator.StateAccepted, out.State)
	assert.Equal(t, 2, out.AttemptsUsed)
	mockAI.AssertExpectations(t)
}

func TestController_Exhausted(t *testing.T) {
	mockAI := mocks.NewMockAIClient(t)
	mockAI.On("GenerateConversation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(badConversation, service.UsageInfo{}, nil).Times(3)

	c := newController(mockAI, 3, 0)
	out, err := c.Run(context.Background(), "base prompt", testScenario(), testVariation())

	require.NoError(t, err)
	assert.Equal(t, generator.StateExhausted, out.State)
	assert.Equal(t, 3, out.AttemptsUsed)
	assert.False(t, out.Validation.Passed)
	// Транскрипт последней попытки сохраняется для записи результата
	assert.Len(t, out.Transcript, 2)
	mockAI.AssertExpectations(t)
}

func TestController_TransportRetryDoesNotConsumeAttempt(t *testing.T) {
	mockAI := mocks.NewMockAIClient(t)

	// Транспортная ошибка, затем успех: обе в рамках одной попытки валидации
	mockAI.On("GenerateConversation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", service.UsageInfo{}, errors.New("connection reset")).Once()
	mockAI.On("GenerateConversation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(transcriptJSON(t), service.UsageInfo{}, nil).Once()

	c := newController(mockAI, 3, 1)
	out, err := c.Run(context.Background(), "base prompt", testScenario(), testVariation())

	require.NoError(t, err)
	assert.Equal(t, generator.StateAccepted, out.State)
	assert.Equal(t, 1, out.AttemptsUsed)
	mockAI.AssertExpectations(t)
}

func TestController_FinalFailureDropsStaleTranscript(t *testing.T) {
	mockAI := mocks.NewMockAIClient(t)

	// Первая попытка дает распарсенный, но отклоненный транскрипт;
	// последняя падает на транспорте. Итоговая запись не должна
	// сочетать старый транскрипт с вердиктом generation_failed.
	mockAI.On("GenerateConversation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(badConversation, service.UsageInfo{}, nil).Once()
	mockAI.On("GenerateConversation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", service.UsageInfo{}, errors.New("service unavailable")).Once()

	c := newController(mockAI, 2, 0)
	out, err := c.Run(context.Background(), "base prompt", testScenario(), testVariation())

	require.NoError(t, err)
	assert.Equal(t, generator.StateExhausted, out.State)
	assert.Empty(t, out.Transcript)
	assert.Empty(t, out.Validation.TagsFound)
	assert.Contains(t, out.Validation.Issues, model.Issue("generation_failed"))
	mockAI.AssertExpectations(t)
}

func TestController_GenerationFailure(t *testing.T) {
	mockAI := mocks.NewMockAIClient(t)
	mockAI.On("GenerateConversation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", service.UsageInfo{}, errors.New("service unavailable"))

	c := newController(mockAI, 2, 0)
	out, err := c.Run(context.Background(), "base prompt", testScenario(), testVariation())

	require.NoError(t, err)
	assert.Equal(t, generator.StateExhausted, out.State)
	assert.Equal(t, 2, out.AttemptsUsed)
	assert.Empty(t, out.Transcript)
	assert.Contains(t, out.Validation.Issues, model.Issue("generation_failed"))
}

func TestController_UnparseableResponse(t *testing.T) {
	mockAI := mocks.NewMockAIClient(t)
	mockAI.On("GenerateConversation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("I cannot produce JSON today", service.UsageInfo{}, nil).Times(2)

	c := newController(mockAI, 2, 0)
	out, err := c.Run(context.Background(), "base prompt", testScenario(), testVariation())

	require.NoError(t, err)
	assert.Equal(t, generator.StateExhausted, out.State)
	assert.False(t, out.Validation.Passed)
	mockAI.AssertExpectations(t)
}

func TestController_ContextCancelled(t *testing.T) {
	mockAI := mocks.NewMockAIClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newController(mockAI, 3, 0)
	_, err := c.Run(ctx, "base prompt", testScenario(), testVariation())

	assert.ErrorIs(t, err, context.Canceled)
	mockAI.AssertNotCalled(t, "GenerateConversation")
}
