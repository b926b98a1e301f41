package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dialogue-generator/internal/config"
)

func TestCalculateCost(t *testing.T) {
	// 1M входных токенов = $0.1, 1M выходных = $0.4
	assert.InDelta(t, 0.1, calculateCost(1_000_000, 0), 1e-9)
	assert.InDelta(t, 0.4, calculateCost(0, 1_000_000), 1e-9)
	assert.InDelta(t, 0.0005, calculateCost(1000, 1000), 1e-9)
	assert.Zero(t, calculateCost(0, 0))
}

func TestParamDefaults(t *testing.T) {
	assert.Equal(t, float32(1.0), float32Val(nil))
	temp := 0.8
	assert.InDelta(t, float32(0.8), float32Val(&temp), 1e-6)

	assert.Equal(t, 0, intVal(nil))
	tokens := 2000
	assert.Equal(t, 2000, intVal(&tokens))
}

func TestNewAIClient(t *testing.T) {
	t.Run("OpenAI", func(t *testing.T) {
		client, err := NewAIClient(&config.Config{
			AIClientType: "openai",
			AIBaseURL:    "https://api.openai.com/v1",
			AIModel:      "gpt-4.1-mini",
		})
		require.NoError(t, err)
		assert.IsType(t, &openAIClient{}, client)
	})

	t.Run("Ollama", func(t *testing.T) {
		client, err := NewAIClient(&config.Config{
			AIClientType: "ollama",
			AIBaseURL:    "http://localhost:11434/v1",
			AIModel:      "llama3",
		})
		require.NoError(t, err)
		assert.IsType(t, &ollamaClient{}, client)
	})

	t.Run("Unknown type", func(t *testing.T) {
		_, err := NewAIClient(&config.Config{AIClientType: "magic"})
		assert.Error(t, err)
	})
}
