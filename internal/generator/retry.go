package generator

import (
	"context"
	"log"
	"math"
	"math/rand"
	"time"

	"dialogue-generator/internal/model"
	"dialogue-generator/internal/service"
)

// State - состояние цикла генерации одной пары (сценарий, вариация).
type State string

const (
	StatePending    State = "PENDING"
	StateGenerating State = "GENERATING"
	StateValidating State = "VALIDATING"
	StateRetrying   State = "RETRYING"
	StateAccepted   State = "ACCEPTED"
	StateExhausted  State = "EXHAUSTED"
)

// event - событие, двигающее машину состояний.
type event string

const (
	eventStart            event = "start"
	eventGenerated        event = "generated"
	eventGenerationFailed event = "generation_failed"
	eventValidationPassed event = "validation_passed"
	eventValidationFailed event = "validation_failed"
	eventRetry            event = "retry"
)

// nextState - чистая функция переходов. attemptsLeft сообщает, остались
// ли еще попытки после текущей.
func nextState(s State, ev event, attemptsLeft bool) State {
	switch s {
	case StatePending:
		if ev == eventStart {
			return StateGenerating
		}
	case StateGenerating:
		switch ev {
		case eventGenerated:
			return StateValidating
		case eventGenerationFailed:
			if attemptsLeft {
				return StateRetrying
			}
			return StateExhausted
		}
	case StateValidating:
		switch ev {
		case eventValidationPassed:
			return StateAccepted
		case eventValidationFailed:
			if attemptsLeft {
				return StateRetrying
			}
			return StateExhausted
		}
	case StateRetrying:
		if ev == eventRetry {
			return StateGenerating
		}
	}
	// Терминальные состояния и недопустимые события не меняют состояние
	return s
}

// RetryOutcome - итог цикла попыток для одной пары (сценарий, вариация).
// Transcript и Validation относятся к последней попытке, даже если она
// неудачна: запись результата формируется всегда.
type RetryOutcome struct {
	State        State
	Transcript   model.Transcript
	Validation   model.ValidationOutcome
	AttemptsUsed int
	Usage        service.UsageInfo
}

// Controller управляет циклом генерация -> валидация -> повтор для
// одной пары (сценарий, вариация). Попытки валидации (maxAttempts)
// и транспортные повторы AI-клиента (transportRetries) - независимые
// уровни: транспортный повтор не расходует попытку валидации.
type Controller struct {
	client           service.AIClient
	composer         *Composer
	validator        *Validator
	maxAttempts      int
	transportRetries int
	baseRetryDelay   time.Duration
	params           service.GenerationParams
}

// NewController создает Controller.
func NewController(client service.AIClient, composer *Composer, validator *Validator, maxAttempts, transportRetries int, baseRetryDelay time.Duration, params service.GenerationParams) *Controller {
	return &Controller{
		client:           client,
		composer:         composer,
		validator:        validator,
		maxAttempts:      maxAttempts,
		transportRetries: transportRetries,
		baseRetryDelay:   baseRetryDelay,
		params:           params,
	}
}

// Run выполняет до maxAttempts попыток генерации. Фидбек предыдущей
// неудачной валидации попадает в промпт следующей попытки.
func (c *Controller) Run(ctx context.Context, basePrompt string, s *model.ScenarioDefinition, v model.VariationParameters) (RetryOutcome, error) {
	out := RetryOutcome{State: StatePending}

	var feedback []model.Issue
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		attemptsLeft := attempt < c.maxAttempts

		if out.State == StateRetrying {
			out.State = nextState(out.State, eventRetry, attemptsLeft)
		} else {
			out.State = nextState(out.State, eventStart, attemptsLeft)
		}
		out.AttemptsUsed = attempt

		req := c.composer.Compose(basePrompt, s, v, feedback, attempt)
		raw, usage, err := c.generateWithRetries(ctx, s.ID, req)
		out.Usage.PromptTokens += usage.PromptTokens
		out.Usage.CompletionTokens += usage.CompletionTokens
		out.Usage.TotalTokens += usage.TotalTokens
		out.Usage.EstimatedCostUSD += usage.EstimatedCostUSD

		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			log.Printf("Сценарий %s вариация %d: попытка %d не удалась: %v", s.ID, v.VariationID, attempt, err)
			feedback = []model.Issue{"generation_failed"}
			// Транскрипт и вердикт всегда описывают одну и ту же попытку
			out.Transcript = nil
			out.Validation = model.ValidationOutcome{
				Passed:      false,
				TagsMissing: append([]string{}, s.SpecialTags...),
				Issues:      feedback,
			}
			out.State = nextState(out.State, eventGenerationFailed, attemptsLeft)
			continue
		}

		transcript, parseErr := ParseTranscript(raw)
		if parseErr != nil {
			log.Printf("Сценарий %s вариация %d: ответ не распарсен: %v", s.ID, v.VariationID, parseErr)
			feedback = []model.Issue{"response was not a valid JSON conversation array"}
			out.Transcript = nil
			out.Validation = model.ValidationOutcome{
				Passed:      false,
				TagsMissing: append([]string{}, s.SpecialTags...),
				Issues:      feedback,
			}
			out.State = nextState(out.State, eventGenerationFailed, attemptsLeft)
			continue
		}

		out.Transcript = transcript
		out.State = nextState(out.State, eventGenerated, attemptsLeft)

		outcome := c.validator.Validate(transcript, s)
		out.Validation = outcome

		if outcome.Passed {
			out.State = nextState(out.State, eventValidationPassed, attemptsLeft)
			return out, nil
		}

		log.Printf("Сценарий %s вариация %d: валидация не пройдена (оценка %.2f, замечаний %d)",
			s.ID, v.VariationID, outcome.QualityScore, len(outcome.Issues))
		feedback = outcome.Issues
		out.State = nextState(out.State, eventValidationFailed, attemptsLeft)
	}

	return out, nil
}

// generateWithRetries вызывает AI-клиент с транспортными повторами
// и экспоненциальной задержкой с джиттером.
func (c *Controller) generateWithRetries(ctx context.Context, scenarioID string, req model.GenerationRequest) (string, service.UsageInfo, error) {
	var lastErr error
	var total service.UsageInfo

	for attempt := 0; attempt <= c.transportRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(c.baseRetryDelay) * math.Pow(2, float64(attempt-1)))
			jitter := time.Duration(rand.Int63n(int64(delay)/5+1)) - delay/10
			delay += jitter
			log.Printf("Повтор запроса к AI через %v (попытка %d/%d)", delay, attempt, c.transportRetries)
			select {
			case <-ctx.Done():
				return "", total, ctx.Err()
			case <-time.After(delay):
			}
		}

		raw, usage, err := c.client.GenerateConversation(ctx, scenarioID, c.composer.SystemPrompt(), c.composer.UserPrompt(req), c.params)
		total.PromptTokens += usage.PromptTokens
		total.CompletionTokens += usage.CompletionTokens
		total.TotalTokens += usage.TotalTokens
		total.EstimatedCostUSD += usage.EstimatedCostUSD
		if err == nil {
			return raw, total, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", total, ctx.Err()
		}
	}

	return "", total, lastErr
}
