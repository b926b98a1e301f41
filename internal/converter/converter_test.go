package converter_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dialogue-generator/internal/converter"
	"dialogue-generator/internal/model"
)

func writeResults(t *testing.T, records ...*model.ResultRecord) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.jsonl")

	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	encoder := json.NewEncoder(file)
	for _, record := range records {
		require.NoError(t, encoder.Encode(record))
	}
	return path
}

func passedRecord() *model.ResultRecord {
	return &model.ResultRecord{
		ScenarioID:  "basic_payment_willing",
		VariationID: 1,
		Conversation: model.Transcript{
			{Role: model.RoleAssistant, Content: "Good morning, may I speak with Mr. Khalili?"},
			{Role: model.RoleUser, Content: "Speaking, go ahead."},
			{Role: model.RoleAssistant, Content: "I am calling about your overdue payment (function_1)."},
		},
		ValidationPassed: true,
		SpecialTagsFound: []string{"(function_1)"},
		Metadata:         model.RecordMetadata{QualityScore: 0.9},
	}
}

func failedRecord() *model.ResultRecord {
	record := passedRecord()
	record.VariationID = 2
	record.ValidationPassed = false
	return record
}

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		lines = append(lines, entry)
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestConvert_ShareGPT(t *testing.T) {
	input := writeResults(t, passedRecord())
	output := filepath.Join(t.TempDir(), "out.jsonl")

	stats, err := converter.Convert(input, output, converter.Options{
		Format:       converter.FormatShareGPT,
		SystemPrompt: "You are a debt collection agent.",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Written)

	lines := readLines(t, output)
	require.Len(t, lines, 1)

	conversations := lines[0]["conversations"].([]any)
	require.Len(t, conversations, 4, "системный промпт + 3 реплики")

	first := conversations[0].(map[string]any)
	assert.Equal(t, "system", first["from"])

	second := conversations[1].(map[string]any)
	assert.Equal(t, "gpt", second["from"], "реплики агента маппятся в gpt")

	third := conversations[2].(map[string]any)
	assert.Equal(t, "human", third["from"], "реплики клиента маппятся в human")

	meta := lines[0]["metadata"].(map[string]any)
	assert.Equal(t, "basic_payment_willing", meta["scenario_id"])
}

func TestConvert_ChatML(t *testing.T) {
	input := writeResults(t, passedRecord())
	output := filepath.Join(t.TempDir(), "out.jsonl")

	_, err := converter.Convert(input, output, converter.Options{Format: converter.FormatChatML})
	require.NoError(t, err)

	lines := readLines(t, output)
	require.Len(t, lines, 1)

	messages := lines[0]["messages"].([]any)
	require.Len(t, messages, 3)
	first := messages[0].(map[string]any)
	assert.Equal(t, "assistant", first["role"])
	assert.NotEmpty(t, first["content"])
}

func TestConvert_Alpaca(t *testing.T) {
	input := writeResults(t, passedRecord())
	output := filepath.Join(t.TempDir(), "out.jsonl")

	stats, err := converter.Convert(input, output, converter.Options{Format: converter.FormatAlpaca})
	require.NoError(t, err)

	// Одна пара (реплика клиента, ответ агента)
	assert.Equal(t, 1, stats.Written)

	lines := readLines(t, output)
	require.Len(t, lines, 1)
	assert.Equal(t, "Customer: Speaking, go ahead.", lines[0]["instruction"])
	assert.Equal(t, "I am calling about your overdue payment (function_1).", lines[0]["output"])
	assert.Equal(t, "", lines[0]["input"])
}

func TestConvert_OnlyPassedFilter(t *testing.T) {
	input := writeResults(t, passedRecord(), failedRecord())
	output := filepath.Join(t.TempDir(), "out.jsonl")

	stats, err := converter.Convert(input, output, converter.Options{
		Format:     converter.FormatChatML,
		OnlyPassed: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Read)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Written)
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]converter.Format{
		"sharegpt": converter.FormatShareGPT,
		"ChatML":   converter.FormatChatML,
		"ALPACA":   converter.FormatAlpaca,
	} {
		format, err := converter.ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, want, format)
	}

	_, err := converter.ParseFormat("unknown")
	assert.Error(t, err)
}
