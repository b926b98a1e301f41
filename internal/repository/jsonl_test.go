package repository_test

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dialogue-generator/internal/model"
	"dialogue-generator/internal/repository"
)

func testRecord(scenarioID string, variationID int) *model.ResultRecord {
	return &model.ResultRecord{
		ScenarioID:  scenarioID,
		VariationID: variationID,
		Conversation: model.Transcript{
			{Role: model.RoleAssistant, Content: "Good morning, may I speak with Mr. Khalili?"},
			{Role: model.RoleUser, Content: "Speaking."},
		},
		ValidationPassed: true,
		SpecialTagsFound: []string{"(function_1)"},
		Metadata: model.RecordMetadata{
			Model:        "test-model",
			AttemptsUsed: 1,
			QualityScore: 0.85,
			BatchID:      "batch-1",
			PromptID:     "prompt_1",
			Language:     "en",
		},
	}
}

func TestJSONLRepository_SaveAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")

	repo, err := repository.NewJSONLRepository(path)
	require.NoError(t, err)

	require.NoError(t, repo.Save(context.Background(), testRecord("basic_payment_willing", 1)))
	require.NoError(t, repo.Save(context.Background(), testRecord("basic_payment_willing", 2)))
	require.NoError(t, repo.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var records []model.ResultRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record model.ResultRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		records = append(records, record)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, records, 2)
	assert.Equal(t, "basic_payment_willing", records[0].ScenarioID)
	assert.Equal(t, 2, records[1].VariationID)
	assert.Len(t, records[0].Conversation, 2)
	assert.Equal(t, 0.85, records[0].Metadata.QualityScore)
}

func TestJSONLRepository_AppendsToExistingFile(t *testing.T) {
	// Продолжение прерванного прогона не затирает прошлые результаты
	path := filepath.Join(t.TempDir(), "results.jsonl")

	repo, err := repository.NewJSONLRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), testRecord("basic_payment_willing", 1)))
	require.NoError(t, repo.Close())

	repo, err = repository.NewJSONLRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), testRecord("basic_payment_willing", 2)))
	require.NoError(t, repo.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, countLines(data))
}

func TestJSONLRepository_SaveAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")

	repo, err := repository.NewJSONLRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	err = repo.Save(context.Background(), testRecord("basic_payment_willing", 1))
	assert.ErrorIs(t, err, repository.ErrRepositoryClosed)
}

func countLines(data []byte) int {
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n
}
