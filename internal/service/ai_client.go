package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	openaigo "github.com/sashabaranov/go-openai"

	"dialogue-generator/internal/config"
)

// Цены за 1М токенов в USD для оценки стоимости прогона.
const (
	pricePerMillionInputTokensUSD  = 0.1
	pricePerMillionOutputTokensUSD = 0.4
)

// ErrGenerationFailed - ошибка при генерации диалога AI.
// Оборачивает любую транспортную или API ошибку.
var ErrGenerationFailed = errors.New("ошибка генерации диалога AI")

// GenerationParams - параметры генерации. Указатели, чтобы отличить
// 0/0.0 от отсутствия значения.
type GenerationParams struct {
	Temperature *float64
	MaxTokens   *int
	TopP        *float64
}

// UsageInfo содержит информацию об использовании токенов и стоимости.
type UsageInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	EstimatedCostUSD float64
}

// AIClient - интерфейс внешнего сервиса генерации текста.
type AIClient interface {
	// GenerateConversation отправляет составленный промпт и возвращает
	// сырой текст сгенерированного диалога.
	GenerateConversation(ctx context.Context, scenarioID, systemPrompt, userPrompt string, params GenerationParams) (string, UsageInfo, error)
}

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialogue_generator_ai_requests_total",
			Help: "Total number of requests to the AI API.",
		},
		[]string{"model", "status", "scenario"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dialogue_generator_ai_request_duration_seconds",
			Help:    "Histogram of AI API request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)
	aiPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dialogue_generator_ai_prompt_tokens",
			Help:    "Histogram of prompt token counts.",
			Buckets: prometheus.LinearBuckets(250, 250, 20),
		},
		[]string{"model"},
	)
	aiCompletionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dialogue_generator_ai_completion_tokens",
			Help:    "Histogram of completion token counts.",
			Buckets: prometheus.LinearBuckets(100, 100, 20),
		},
		[]string{"model"},
	)
	aiEstimatedCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialogue_generator_ai_estimated_cost_usd_total",
			Help: "Estimated total cost of AI requests in USD.",
		},
		[]string{"model"},
	)
)

// calculateCost рассчитывает оценочную стоимость запроса на основе токенов.
func calculateCost(promptTokens, completionTokens int) float64 {
	inputCost := float64(promptTokens) * pricePerMillionInputTokensUSD / 1_000_000.0
	outputCost := float64(completionTokens) * pricePerMillionOutputTokensUSD / 1_000_000.0
	return inputCost + outputCost
}

// estimateTokens оценивает количество токенов через tiktoken, когда API
// не вернул usage. Ошибка токенизатора не фатальна - возвращаем нули.
func estimateTokens(model, systemPrompt, userPrompt, completion string) (int, int) {
	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tke, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Printf("[WARN] Не удалось получить токенизатор для модели %s: %v", model, err)
			return 0, 0
		}
	}
	prompt := len(tke.Encode(systemPrompt, nil, nil)) + len(tke.Encode(userPrompt, nil, nil))
	return prompt, len(tke.Encode(completion, nil, nil))
}

// --- OpenAI-совместимая реализация ---

type openAIClient struct {
	client *openaigo.Client
	model  string
}

// GenerateConversation генерирует диалог через chat completions API.
func (c *openAIClient) GenerateConversation(ctx context.Context, scenarioID, systemPrompt, userPrompt string, params GenerationParams) (string, UsageInfo, error) {
	usageInfo := UsageInfo{}

	if strings.TrimSpace(systemPrompt) == "" {
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error", "scenario": scenarioID}).Inc()
		return "", usageInfo, fmt.Errorf("%w: системный промпт пуст", ErrGenerationFailed)
	}

	messages := []openaigo.ChatCompletionMessage{
		{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt},
	}
	if userPrompt != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{
			Role:    openaigo.ChatMessageRoleUser,
			Content: userPrompt,
		})
	}

	startTime := time.Now()
	log.Printf("[Scenario: %s] Отправка запроса к AI: Model=%s, SystemPrompt=%d bytes, UserPrompt=%d bytes",
		scenarioID, c.model, len(systemPrompt), len(userPrompt))

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openaigo.ChatCompletionRequest{
			Model:       c.model,
			Messages:    messages,
			Temperature: float32Val(params.Temperature),
			MaxTokens:   intVal(params.MaxTokens),
			TopP:        float32Val(params.TopP),
		},
	)

	duration := time.Since(startTime)

	if err != nil {
		log.Printf("[Scenario: %s] Ошибка от AI API за %v: %v", scenarioID, duration, err)
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error", "scenario": scenarioID}).Inc()
		return "", usageInfo, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		log.Printf("[Scenario: %s] AI API вернул пустой ответ за %v", scenarioID, duration)
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error_empty_response", "scenario": scenarioID}).Inc()
		return "", usageInfo, fmt.Errorf("%w: получен пустой ответ", ErrGenerationFailed)
	}

	aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "success", "scenario": scenarioID}).Inc()
	aiRequestDuration.With(prometheus.Labels{"model": c.model}).Observe(duration.Seconds())

	generatedText := resp.Choices[0].Message.Content
	log.Printf("[Scenario: %s] Ответ от AI API получен за %v. Длина ответа: %d символов.", scenarioID, duration, len(generatedText))

	usageInfo.PromptTokens = resp.Usage.PromptTokens
	usageInfo.CompletionTokens = resp.Usage.CompletionTokens
	usageInfo.TotalTokens = resp.Usage.TotalTokens
	if usageInfo.TotalTokens == 0 {
		// Некоторые совместимые API не возвращают usage - оцениваем сами
		usageInfo.PromptTokens, usageInfo.CompletionTokens = estimateTokens(c.model, systemPrompt, userPrompt, generatedText)
		usageInfo.TotalTokens = usageInfo.PromptTokens + usageInfo.CompletionTokens
	}
	usageInfo.EstimatedCostUSD = calculateCost(usageInfo.PromptTokens, usageInfo.CompletionTokens)

	if usageInfo.TotalTokens > 0 {
		aiPromptTokens.With(prometheus.Labels{"model": c.model}).Observe(float64(usageInfo.PromptTokens))
		aiCompletionTokens.With(prometheus.Labels{"model": c.model}).Observe(float64(usageInfo.CompletionTokens))
		if usageInfo.EstimatedCostUSD > 0 {
			aiEstimatedCostUSD.With(prometheus.Labels{"model": c.model}).Add(usageInfo.EstimatedCostUSD)
		}
	}

	return generatedText, usageInfo, nil
}

// float32Val конвертирует *float64 в float32 для OpenAI API.
func float32Val(f64 *float64) float32 {
	if f64 == nil {
		return 1.0
	}
	return float32(*f64)
}

// intVal конвертирует *int в int. 0 означает "не установлено".
func intVal(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

// --- Ollama реализация ---

type ollamaClient struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

// newOllamaClient создает новый клиент для взаимодействия с Ollama.
func newOllamaClient(cfg *config.Config) (AIClient, error) {
	httpClient := &http.Client{
		Timeout: cfg.AITimeout,
	}

	// api.NewClient требует URL без суффикса /v1
	ollamaBaseURL := strings.TrimSuffix(cfg.AIBaseURL, "/v1")
	ollamaBaseURL = strings.TrimSuffix(ollamaBaseURL, "/")

	parsedURL, err := url.Parse(ollamaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга Ollama Base URL '%s': %w", ollamaBaseURL, err)
	}

	client := api.NewClient(parsedURL, httpClient)

	log.Printf("Ollama клиент создан. BaseURL: %s, Model: %s, Timeout: %v", ollamaBaseURL, cfg.AIModel, cfg.AITimeout)

	return &ollamaClient{
		client:  client,
		model:   cfg.AIModel,
		timeout: cfg.AITimeout,
	}, nil
}

// GenerateConversation генерирует диалог через нативный Ollama API.
func (c *ollamaClient) GenerateConversation(ctx context.Context, scenarioID, systemPrompt, userPrompt string, params GenerationParams) (string, UsageInfo, error) {
	usageInfo := UsageInfo{EstimatedCostUSD: 0} // Ollama локальный, стоимость 0

	if strings.TrimSpace(systemPrompt) == "" {
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error", "scenario": scenarioID}).Inc()
		return "", usageInfo, fmt.Errorf("%w: системный промпт пуст", ErrGenerationFailed)
	}

	messages := []api.Message{
		{Role: "system", Content: systemPrompt},
	}
	if userPrompt != "" {
		messages = append(messages, api.Message{Role: "user", Content: userPrompt})
	}

	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   func(b bool) *bool { return &b }(false),
		Options: map[string]interface{}{
			"temperature": params.Temperature,
			"top_p":       params.TopP,
			"num_predict": intVal(params.MaxTokens),
		},
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	log.Printf("[Scenario: %s] Отправка запроса к Ollama: Model=%s, SystemPrompt=%d bytes, UserPrompt=%d bytes",
		scenarioID, c.model, len(systemPrompt), len(userPrompt))

	var resp api.ChatResponse
	err := c.client.Chat(requestCtx, req, func(r api.ChatResponse) error {
		resp = r // сохраняем последний (полный) ответ
		return nil
	})

	duration := time.Since(startTime)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Printf("[Scenario: %s] Таймаут (%v) от Ollama API за %v: %v", scenarioID, c.timeout, duration, err)
		} else {
			log.Printf("[Scenario: %s] Ошибка от Ollama API за %v: %v", scenarioID, duration, err)
		}
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error", "scenario": scenarioID}).Inc()
		return "", usageInfo, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	if resp.Message.Content == "" {
		log.Printf("[Scenario: %s] Ollama API вернул пустой ответ за %v", scenarioID, duration)
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error_empty_response", "scenario": scenarioID}).Inc()
		return "", usageInfo, fmt.Errorf("%w: получен пустой ответ", ErrGenerationFailed)
	}

	aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "success", "scenario": scenarioID}).Inc()
	aiRequestDuration.With(prometheus.Labels{"model": c.model}).Observe(duration.Seconds())

	generatedText := resp.Message.Content
	log.Printf("[Scenario: %s] Ответ от Ollama получен за %v. Длина ответа: %d символов.", scenarioID, duration, len(generatedText))

	usageInfo.PromptTokens = resp.PromptEvalCount
	usageInfo.CompletionTokens = resp.EvalCount
	usageInfo.TotalTokens = resp.PromptEvalCount + resp.EvalCount

	if usageInfo.TotalTokens > 0 {
		aiPromptTokens.With(prometheus.Labels{"model": c.model}).Observe(float64(usageInfo.PromptTokens))
		aiCompletionTokens.With(prometheus.Labels{"model": c.model}).Observe(float64(usageInfo.CompletionTokens))
	}

	return generatedText, usageInfo, nil
}

// --- Фабрика ---

// NewAIClient создает AI клиент в зависимости от конфигурации.
func NewAIClient(cfg *config.Config) (AIClient, error) {
	switch strings.ToLower(cfg.AIClientType) {
	case "openai":
		openaiConfig := openaigo.DefaultConfig(cfg.AIAPIKey)
		openaiConfig.BaseURL = cfg.AIBaseURL
		openaiConfig.HTTPClient = &http.Client{
			Timeout: cfg.AITimeout,
		}
		client := openaigo.NewClientWithConfig(openaiConfig)
		log.Printf("OpenAI клиент создан. BaseURL: %s, Model: %s, Timeout: %v", cfg.AIBaseURL, cfg.AIModel, cfg.AITimeout)
		return &openAIClient{
			client: client,
			model:  cfg.AIModel,
		}, nil
	case "ollama":
		return newOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("неизвестный тип AI клиента: '%s'", cfg.AIClientType)
	}
}
