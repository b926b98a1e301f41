package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"dialogue-generator/internal/model"
)

// Config содержит конфигурацию генератора диалогов.
type Config struct {
	// Параметры батч-генерации
	NumScenarios          int   `envconfig:"NUM_SCENARIOS" default:"10"`
	VariationsPerScenario int   `envconfig:"VARIATIONS_PER_SCENARIO" default:"10"`
	MaxAttempts           int   `envconfig:"MAX_ATTEMPTS" default:"3"`
	RandomSeed            int64 `envconfig:"RANDOM_SEED" default:"0"` // 0 - недетерминированный источник

	// Пулы имен и диапазоны для вариаций
	AgentNames     []string `envconfig:"AGENT_NAMES"`
	CustomerNames  []string `envconfig:"CUSTOMER_NAMES"`
	AmountMinAED   int      `envconfig:"AMOUNT_MIN_AED" default:"300"`
	AmountMaxAED   int      `envconfig:"AMOUNT_MAX_AED" default:"2000"`
	DueDateMinDays int      `envconfig:"DUE_DATE_MIN_DAYS" default:"5"`  // минимум дней просрочки
	DueDateMaxDays int      `envconfig:"DUE_DATE_MAX_DAYS" default:"45"` // максимум дней просрочки

	// Параметры валидации. QUALITY_INDICATORS задается в формате
	// "категория:фраза;фраза,категория:фраза" (фразы внутри категории
	// разделены точкой с запятой).
	QualityThreshold  float64           `envconfig:"QUALITY_THRESHOLD" default:"0.6"`
	MinTurns          int               `envconfig:"MIN_TURNS" default:"4"`
	RedFlags          []string          `envconfig:"RED_FLAGS"`
	QualityIndicators map[string]string `envconfig:"QUALITY_INDICATORS"`

	// Настройки AI
	AIClientType       string        `envconfig:"AI_CLIENT_TYPE" default:"openai"` // openai или ollama
	AIBaseURL          string        `envconfig:"AI_BASE_URL" default:"https://api.openai.com/v1"`
	AIModel            string        `envconfig:"AI_MODEL" default:"gpt-4.1-mini"`
	AIAPIKey           string        `envconfig:"AI_API_KEY"`
	AITimeout          time.Duration `envconfig:"AI_TIMEOUT" default:"120s"`
	AITransportRetries int           `envconfig:"AI_TRANSPORT_RETRIES" default:"2"`
	AIBaseRetryDelay   time.Duration `envconfig:"AI_BASE_RETRY_DELAY" default:"1s"`
	AITemperature      float64       `envconfig:"AI_TEMPERATURE" default:"0.8"`
	AIMaxTokens        int           `envconfig:"AI_MAX_TOKENS" default:"2000"`

	// Хранилище результатов: jsonl (по умолчанию) или postgres
	ResultBackend string `envconfig:"RESULT_BACKEND" default:"jsonl"`

	// Настройки PostgreSQL (используются при RESULT_BACKEND=postgres)
	DBHost        string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" default:"postgres"`
	DBPassword    string        `envconfig:"DB_PASSWORD"`
	DBName        string        `envconfig:"DB_NAME" default:"dialogues_db"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`

	// Настройки метрик (пустой URL - метрики не пушатся)
	PushgatewayURL string `envconfig:"PUSHGATEWAY_URL"`

	// Настройки логгера
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"console"`
}

// Пулы имен по умолчанию. Подставляются, если окружение их не переопределило.
var (
	defaultAgentNames = []string{
		"Salma", "Ahmed", "Fatima", "Omar", "Layla", "Hassan", "Nour", "Khalid",
		"Amira", "Youssef", "Zara", "Ali", "Maryam", "Saeed", "Lina", "Tariq",
	}
	defaultCustomerNames = []string{
		"Khalili", "Al-Rashid", "Mansour", "Al-Zahra", "Qasemi", "Al-Mahmoud",
		"Abdulla", "Al-Farisi", "Hamdan", "Al-Mansoori", "Sharif", "Al-Blooshi",
		"Nasser", "Al-Shamsi", "Rashed", "Al-Kaabi", "Salem", "Al-Dhaheri",
	}
	defaultRedFlags = []string{
		"lorem ipsum", "placeholder", "example text", "sample conversation",
		"test message", "[insert", "{{", "}}",
	}
)

// Категории индикаторов качества по умолчанию. Доля найденных фраз
// каждой категории входит в оценку качества транскрипта.
var defaultQualityIndicators = map[string][]string{
	"agent_professionalism": {
		"good morning", "good afternoon", "good evening",
		"thank you", "please", "may i", "i understand",
		"i appreciate", "professional", "courteous",
	},
	"debt_collection_terms": {
		"debt", "loan", "payment", "amount", "balance",
		"due", "overdue", "collection", "account",
	},
	"regulatory_compliance": {
		"recorded", "quality purposes", "verify", "confirm",
		"legal action", "credit bureau", "background check",
	},
	"natural_conversation": {
		"how are you", "i see", "i understand", "that's",
		"well", "actually", "really", "sure", "okay",
	},
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	if len(cfg.AgentNames) == 0 {
		cfg.AgentNames = defaultAgentNames
	}
	if len(cfg.CustomerNames) == 0 {
		cfg.CustomerNames = defaultCustomerNames
	}
	if len(cfg.RedFlags) == 0 {
		cfg.RedFlags = defaultRedFlags
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Printf("Конфигурация загружена:")
	log.Printf("  Сценариев: %d, вариаций на сценарий: %d, попыток: %d", cfg.NumScenarios, cfg.VariationsPerScenario, cfg.MaxAttempts)
	log.Printf("  AI: type=%s, model=%s, base_url=%s, timeout=%v", cfg.AIClientType, cfg.AIModel, cfg.AIBaseURL, cfg.AITimeout)
	log.Printf("  Порог качества: %.2f, минимум реплик: %d", cfg.QualityThreshold, cfg.MinTurns)
	log.Printf("  Бэкенд результатов: %s", cfg.ResultBackend)
	if cfg.ResultBackend == "postgres" {
		log.Printf("  DB DSN: %s", cfg.getMaskedDSN())
	}
	if cfg.AIAPIKey != "" {
		log.Println("  AI API Key: [ЗАГРУЖЕН]")
	}

	return &cfg, nil
}

// validate проверяет согласованность загруженных значений.
func (c *Config) validate() error {
	if c.NumScenarios < 1 || c.NumScenarios > 100 {
		return model.NewConfigurationError("NUM_SCENARIOS должен быть в диапазоне 1..100, получено %d", c.NumScenarios)
	}
	if c.VariationsPerScenario < 1 {
		return model.NewConfigurationError("VARIATIONS_PER_SCENARIO должен быть >= 1")
	}
	if c.MaxAttempts < 1 {
		return model.NewConfigurationError("MAX_ATTEMPTS должен быть >= 1")
	}
	if c.QualityThreshold < 0 || c.QualityThreshold > 1 {
		return model.NewConfigurationError("QUALITY_THRESHOLD должен быть в диапазоне [0..1]")
	}
	if len(c.QualityIndicators) > 0 && len(c.GetQualityIndicators()) == 0 {
		return model.NewConfigurationError("QUALITY_INDICATORS не содержит ни одной фразы")
	}
	if c.AmountMinAED <= 0 || c.AmountMaxAED < c.AmountMinAED {
		return model.NewConfigurationError("некорректный диапазон суммы долга: %d..%d", c.AmountMinAED, c.AmountMaxAED)
	}
	if c.DueDateMinDays < 1 || c.DueDateMaxDays < c.DueDateMinDays {
		return model.NewConfigurationError("некорректный диапазон дней просрочки: %d..%d", c.DueDateMinDays, c.DueDateMaxDays)
	}
	if c.ResultBackend != "jsonl" && c.ResultBackend != "postgres" {
		return model.NewConfigurationError("неизвестный бэкенд результатов: '%s'", c.ResultBackend)
	}
	return nil
}

// GetQualityIndicators возвращает категории индикаторов качества:
// переопределенные окружением или набор по умолчанию.
func (c *Config) GetQualityIndicators() map[string][]string {
	if len(c.QualityIndicators) == 0 {
		return defaultQualityIndicators
	}

	out := make(map[string][]string, len(c.QualityIndicators))
	for category, joined := range c.QualityIndicators {
		var phrases []string
		for _, phrase := range strings.Split(joined, ";") {
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				phrases = append(phrases, strings.ToLower(phrase))
			}
		}
		if len(phrases) > 0 {
			out[category] = phrases
		}
	}
	return out
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// getMaskedDSN возвращает DSN с замаскированным паролем для логирования.
func (c *Config) getMaskedDSN() string {
	dsn := c.GetDSN()
	parts := strings.Split(dsn, "@")
	if len(parts) != 2 {
		return "[invalid dsn format]"
	}
	userInfo := strings.Split(parts[0], ":")
	if len(userInfo) >= 2 {
		userInfo[len(userInfo)-1] = "********"
	}
	return strings.Join(userInfo, ":") + "@" + parts[1]
}
