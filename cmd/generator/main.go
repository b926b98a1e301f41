package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"dialogue-generator/internal/config"
	"dialogue-generator/internal/generator"
	"dialogue-generator/internal/logger"
	"dialogue-generator/internal/model"
	"dialogue-generator/internal/repository"
	"dialogue-generator/internal/scenario"
	"dialogue-generator/internal/service"
)

func main() {
	inputPath := flag.String("input", "input_prompts.jsonl", "путь к JSONL с системными промптами")
	outputPath := flag.String("output", "generated_conversations.jsonl", "путь к JSONL с результатами (бэкенд jsonl)")
	numScenarios := flag.Int("scenarios", 0, "число сценариев, переопределяет NUM_SCENARIOS (0 - из конфигурации)")
	createSample := flag.Bool("create-sample", false, "создать образец входного файла и выйти")
	flag.Parse()

	log.Println("Запуск генератора диалогов...")

	// .env опционален: в контейнере конфигурация приходит из окружения
	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используются переменные окружения")
	}

	if *createSample {
		if err := repository.WriteSamplePrompts(*inputPath); err != nil {
			log.Fatalf("Не удалось создать образец: %v", err)
		}
		log.Printf("Образец входного файла создан: %s", *inputPath)
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}
	if *numScenarios > 0 {
		cfg.NumScenarios = *numScenarios
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
	})
	if err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}
	defer zapLogger.Sync()

	metricsEnabled := false
	if cfg.PushgatewayURL != "" {
		if err := generator.InitMetricsPusher(cfg.PushgatewayURL); err != nil {
			zapLogger.Warn("Pushgateway недоступен, метрики отключены", zap.Error(err))
		} else {
			metricsEnabled = true
			generator.StartMetricsPusher(15 * time.Second)
			defer generator.CleanupMetrics()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aiClient, err := service.NewAIClient(cfg)
	if err != nil {
		zapLogger.Fatal("Ошибка создания AI клиента", zap.Error(err))
	}

	repo, err := buildRepository(ctx, cfg, *outputPath, zapLogger)
	if err != nil {
		zapLogger.Fatal("Ошибка инициализации хранилища результатов", zap.Error(err))
	}
	defer repo.Close()

	scenarios, err := scenario.Load(cfg.NumScenarios)
	if err != nil {
		zapLogger.Fatal("Ошибка загрузки каталога сценариев", zap.Error(err))
	}

	prompts, err := repository.ReadPrompts(*inputPath)
	if err != nil {
		zapLogger.Fatal("Ошибка чтения входных промптов", zap.Error(err))
	}
	zapLogger.Info("Входные данные загружены",
		zap.Int("prompts", len(prompts)),
		zap.Int("scenarios", len(scenarios)),
		zap.Int("variations", cfg.VariationsPerScenario))

	params := service.GenerationParams{
		Temperature: &cfg.AITemperature,
		MaxTokens:   &cfg.AIMaxTokens,
	}
	controller := generator.NewController(
		aiClient,
		generator.NewComposer(),
		generator.NewValidator(cfg),
		cfg.MaxAttempts,
		cfg.AITransportRetries,
		cfg.AIBaseRetryDelay,
		params,
	)
	runner := generator.NewRunner(
		generator.NewExpander(cfg),
		controller,
		repo,
		cfg.AIModel,
		cfg.VariationsPerScenario,
		metricsEnabled,
	)

	stats, err := runner.Run(ctx, prompts, scenarios)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			zapLogger.Warn("Прогон прерван сигналом, частичные результаты сохранены")
		} else {
			zapLogger.Error("Прогон завершился с ошибкой", zap.Error(err))
			printStatistics(stats)
			os.Exit(1)
		}
	}

	printStatistics(stats)
}

// buildRepository создает хранилище результатов согласно конфигурации.
func buildRepository(ctx context.Context, cfg *config.Config, outputPath string, zapLogger *zap.Logger) (repository.ResultRepository, error) {
	switch cfg.ResultBackend {
	case "postgres":
		if err := repository.RunMigrations(cfg.GetDSN()); err != nil {
			return nil, err
		}
		pool, err := connectPostgres(ctx, cfg, zapLogger)
		if err != nil {
			return nil, err
		}
		return repository.NewPostgresRepository(pool), nil
	default:
		return repository.NewJSONLRepository(outputPath)
	}
}

// connectPostgres создает пул соединений с повторными попытками: база
// может подниматься дольше генератора.
func connectPostgres(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MaxConnIdleTime = cfg.DBIdleTimeout

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				zapLogger.Info("Подключение к PostgreSQL установлено")
				return pool, nil
			}
			pool.Close()
		}
		zapLogger.Warn("Не удалось подключиться к PostgreSQL, повтор через 2s",
			zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return nil, err
}

// printStatistics выводит итоговую сводку прогона.
func printStatistics(stats *model.RunStats) {
	if stats == nil {
		return
	}
	log.Println("==================================================")
	log.Println("ИТОГИ ГЕНЕРАЦИИ")
	log.Println("==================================================")
	log.Printf("Всего диалогов:       %d", stats.TotalConversations)
	log.Printf("Прошли валидацию:     %d (%.1f%%)", stats.Accepted, stats.SuccessRate())
	log.Printf("Исчерпали попытки:    %d", stats.Exhausted)
	log.Printf("Среднее качество:     %.2f", stats.AverageQuality())
	log.Printf("Время прогона:        %v", stats.Duration().Round(time.Second))
	log.Println("==================================================")
}
