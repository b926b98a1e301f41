// Package scenario содержит статический каталог сценариев разговоров
// и доступ к нему с проверкой целостности.
package scenario

import (
	"dialogue-generator/internal/model"
)

// MaxScenarios - размер полного каталога.
const MaxScenarios = 100

// Load возвращает первые n сценариев каталога (1..MaxScenarios).
// Каждая запись проверяется на полноту: неполный сценарий - это
// ошибка конфигурации, прерывающая весь прогон.
func Load(n int) ([]model.ScenarioDefinition, error) {
	if n < 1 || n > MaxScenarios {
		return nil, model.NewConfigurationError("количество сценариев должно быть в диапазоне 1..%d, получено %d", MaxScenarios, n)
	}

	out := make([]model.ScenarioDefinition, n)
	for i, s := range catalog[:n] {
		if err := Validate(&s); err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// Validate проверяет, что у сценария заполнены все обязательные поля.
func Validate(s *model.ScenarioDefinition) error {
	switch {
	case s.ID == "":
		return model.NewConfigurationError("сценарий без id")
	case s.Name == "":
		return model.NewConfigurationError("сценарий '%s': пустое имя", s.ID)
	case s.Description == "":
		return model.NewConfigurationError("сценарий '%s': пустое описание", s.ID)
	case s.CustomerBehavior == "":
		return model.NewConfigurationError("сценарий '%s': не задано поведение клиента", s.ID)
	case s.Outcome == "":
		return model.NewConfigurationError("сценарий '%s': не задан исход", s.ID)
	case len(s.SpecialTags) == 0:
		return model.NewConfigurationError("сценарий '%s': нет обязательных тегов", s.ID)
	}
	return nil
}
