package model

import "fmt"

// ConfigurationError - фатальная ошибка конфигурации или входных данных.
// Единственный класс ошибок, который прерывает весь батч-прогон.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "ошибка конфигурации: " + e.Msg
}

// NewConfigurationError создает ConfigurationError с форматированием.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}
