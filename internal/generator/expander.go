// Package generator содержит ядро конвейера: раскрытие сценариев в
// вариации, составление промптов, валидацию транскриптов и цикл
// повторных попыток.
package generator

import (
	"hash/fnv"
	"math/rand"
	"time"

	"dialogue-generator/internal/config"
	"dialogue-generator/internal/model"
	"dialogue-generator/internal/scenario"
)

// Expander детерминированно раскрывает сценарий в параметры вариации.
// При явном seed результат воспроизводим; при seed=0 источник
// выбирается случайно один раз на весь прогон.
type Expander struct {
	agentNames    []string
	customerNames []string
	amountMin     int
	amountMax     int
	dueMinDays    int
	dueMaxDays    int
	seed          int64
	now           func() time.Time
}

// NewExpander создает Expander из конфигурации. Время берется от
// time.Now.
func NewExpander(cfg *config.Config) *Expander {
	return NewExpanderWithClock(cfg, time.Now)
}

// NewExpanderWithClock создает Expander с фиксированным источником
// времени: при одинаковом seed и одинаковых часах вариации совпадают
// полностью, включая даты просрочки.
func NewExpanderWithClock(cfg *config.Config, now func() time.Time) *Expander {
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Expander{
		agentNames:    cfg.AgentNames,
		customerNames: cfg.CustomerNames,
		amountMin:     cfg.AmountMinAED,
		amountMax:     cfg.AmountMaxAED,
		dueMinDays:    cfg.DueDateMinDays,
		dueMaxDays:    cfg.DueDateMaxDays,
		seed:          seed,
		now:           now,
	}
}

// Expand возвращает параметры вариации index (1..N) для сценария.
// Имена берутся из пулов без повторов внутри одного сценария: пул
// перемешивается детерминированно от (seed, scenario.ID) и индексируется
// номером вариации. Сценарий никогда не мутируется.
func (e *Expander) Expand(s *model.ScenarioDefinition, index int) (model.VariationParameters, error) {
	if err := scenario.Validate(s); err != nil {
		return model.VariationParameters{}, err
	}
	if index < 1 {
		return model.VariationParameters{}, model.NewConfigurationError("номер вариации должен быть >= 1, получен %d", index)
	}

	agents := e.permutedPool(e.agentNames, s.ID, "agent")
	customers := e.permutedPool(e.customerNames, s.ID, "customer")

	// Отдельный источник на каждую (сценарий, вариация) пару, чтобы
	// сумма и дата не зависели от порядка обхода вариаций.
	rng := rand.New(rand.NewSource(e.subSeed(s.ID, index)))

	amount := e.amountMin + rng.Intn(e.amountMax-e.amountMin+1)
	amount = amount / 25 * 25
	if amount < e.amountMin {
		amount = e.amountMin
	}

	daysAgo := e.dueMinDays + rng.Intn(e.dueMaxDays-e.dueMinDays+1)
	dueDate := e.now().AddDate(0, 0, -daysAgo)

	return model.VariationParameters{
		VariationID:  index,
		AgentName:    agents[(index-1)%len(agents)],
		CustomerName: customers[(index-1)%len(customers)],
		DebtAmount:   amount,
		DueDate:      dueDate,
	}, nil
}

// permutedPool возвращает копию пула имен, перемешанную детерминированно
// для данного сценария.
func (e *Expander) permutedPool(pool []string, scenarioID, kind string) []string {
	out := make([]string, len(pool))
	copy(out, pool)
	rng := rand.New(rand.NewSource(e.subSeed(scenarioID, 0) ^ int64(hashString(kind))))
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// subSeed выводит источник случайности из глобального seed, ID сценария
// и номера вариации.
func (e *Expander) subSeed(scenarioID string, index int) int64 {
	return e.seed ^ int64(hashString(scenarioID)) ^ (int64(index) << 32)
}

func hashString(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}
