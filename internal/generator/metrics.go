package generator

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	jobName = "dialogue_generator"
)

var (
	// Общий реестр для всех метрик генератора
	registry = prometheus.NewRegistry()

	// promauto.With(registry), чтобы метрики регистрировались в локальном
	// реестре, а не в глобальном prometheus.DefaultRegistry
	conversationsGenerated = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "dialogue_generator_conversations_total",
			Help: "Total number of conversations generated (accepted or not).",
		},
	)
	conversationsAccepted = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "dialogue_generator_conversations_accepted_total",
			Help: "Total number of conversations that passed validation.",
		},
	)
	conversationsExhausted = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialogue_generator_conversations_exhausted_total",
			Help: "Total number of conversations that exhausted all attempts, partitioned by failure reason.",
		},
		[]string{"reason"},
	)
	attemptsTotal = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "dialogue_generator_attempts_total",
			Help: "Total number of generation attempts, including retries.",
		},
	)
	tokensUsed = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "dialogue_generator_ai_tokens_used_total",
			Help: "Total number of AI tokens used for generation.",
		},
	)

	// Pusher для отправки метрик в Pushgateway
	pusher *push.Pusher

	// Группировочные метки для Pushgateway
	groupingKey map[string]string
)

// InitMetricsPusher инициализирует клиент Pushgateway.
// pushgatewayURL: адрес Pushgateway (e.g., "http://localhost:9091")
func InitMetricsPusher(pushgatewayURL string) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
		log.Printf("[Metrics] Warning: could not get hostname: %v", err)
	}
	pid := os.Getpid()
	instanceID := fmt.Sprintf("%s-%d", hostname, pid)

	groupingKey = map[string]string{
		"instance": instanceID,
	}

	log.Printf("[Metrics] Initializing Pushgateway pusher for job '%s' with instance '%s' to %s", jobName, instanceID, pushgatewayURL)

	pusher = push.New(pushgatewayURL, jobName).Gatherer(registry).Grouping("instance", instanceID)

	// Сразу отправляем нулевые значения, чтобы проверить соединение
	if err := pusher.Push(); err != nil {
		return fmt.Errorf("could not push initial metrics to Pushgateway: %w", err)
	}
	log.Printf("[Metrics] Initial push to Pushgateway successful.")
	return nil
}

// StartMetricsPusher запускает горутину для периодической отправки метрик.
func StartMetricsPusher(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			if pusher == nil {
				ticker.Stop()
				log.Println("[Metrics] Pusher is nil, stopping periodic push.")
				return
			}
			pushMetrics()
		}
	}()
	log.Printf("[Metrics] Started periodic pusher with interval %v", interval)
}

// pushMetrics отправляет текущие метрики в Pushgateway.
func pushMetrics() error {
	if pusher == nil {
		return errors.New("pusher not initialized")
	}

	if err := pusher.Push(); err != nil {
		log.Printf("[Metrics] Error pushing metrics to Pushgateway: %v", err)
		return err
	}
	return nil
}

// MetricsRecordOutcome учитывает итог цикла попыток одной пары
// (сценарий, вариация) и отправляет метрики.
func MetricsRecordOutcome(out RetryOutcome) {
	conversationsGenerated.Inc()
	attemptsTotal.Add(float64(out.AttemptsUsed))
	tokensUsed.Add(float64(out.Usage.TotalTokens))

	switch out.State {
	case StateAccepted:
		conversationsAccepted.Inc()
	case StateExhausted:
		reason := "validation_failed"
		for _, issue := range out.Validation.Issues {
			if issue == "generation_failed" {
				reason = "generation_failed"
				break
			}
		}
		conversationsExhausted.WithLabelValues(reason).Inc()
	}
	pushMetrics()
}

// CleanupMetrics удаляет метрики этого инстанса из Pushgateway.
// Должна вызываться через defer в main.
func CleanupMetrics() {
	if pusher == nil {
		log.Println("[Metrics] Cleanup skipped: Pusher not initialized.")
		return
	}

	log.Printf("[Metrics] Deleting metrics from Pushgateway for job '%s', grouping key: %v", jobName, groupingKey)
	if err := pusher.Delete(); err != nil {
		log.Printf("[Metrics] Error deleting metrics from Pushgateway: %v", err)
	} else {
		log.Printf("[Metrics] Successfully deleted metrics from Pushgateway.")
	}
}
