// Package converter преобразует JSONL с результатами генерации в
// форматы для дообучения моделей.
package converter

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"dialogue-generator/internal/model"
)

// Format - целевой формат датасета.
type Format string

const (
	FormatShareGPT Format = "sharegpt"
	FormatChatML   Format = "chatml"
	FormatAlpaca   Format = "alpaca"
)

// ParseFormat проверяет и нормализует имя формата.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(name)) {
	case FormatShareGPT:
		return FormatShareGPT, nil
	case FormatChatML:
		return FormatChatML, nil
	case FormatAlpaca:
		return FormatAlpaca, nil
	default:
		return "", fmt.Errorf("неизвестный формат %q: ожидается sharegpt, chatml или alpaca", name)
	}
}

// Options - параметры конвертации.
type Options struct {
	Format       Format
	SystemPrompt string // добавляется первым сообщением, если непустой
	OnlyPassed   bool   // пропускать записи с validation_passed=false
}

// Stats - итог конвертации.
type Stats struct {
	Read    int
	Skipped int
	Written int
}

type recordMeta struct {
	ScenarioID       string  `json:"scenario_id"`
	VariationID      int     `json:"variation_id"`
	QualityScore     float64 `json:"quality_score"`
	ValidationPassed bool    `json:"validation_passed"`
}

type shareGPTTurn struct {
	From  string `json:"from"`
	Value string `json:"value"`
}

type shareGPTEntry struct {
	Conversations []shareGPTTurn `json:"conversations"`
	Metadata      recordMeta     `json:"metadata"`
}

type chatMLMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatMLEntry struct {
	Messages []chatMLMessage `json:"messages"`
	Metadata recordMeta      `json:"metadata"`
}

type alpacaMeta struct {
	recordMeta
	TurnNumber int `json:"turn_number"`
}

type alpacaEntry struct {
	Instruction string     `json:"instruction"`
	Input       string     `json:"input"`
	Output      string     `json:"output"`
	Metadata    alpacaMeta `json:"metadata"`
}

// Convert читает результаты из inputPath и пишет датасет в outputPath.
func Convert(inputPath, outputPath string, opts Options) (*Stats, error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл результатов %s: %w", inputPath, err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать файл датасета %s: %w", outputPath, err)
	}
	defer out.Close()

	writer := bufio.NewWriter(out)
	encoder := json.NewEncoder(writer)

	stats := &Stats{}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var record model.ResultRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			log.Printf("Строка %d пропущена: некорректный JSON: %v", lineNum, err)
			stats.Skipped++
			continue
		}
		stats.Read++

		if opts.OnlyPassed && !record.ValidationPassed {
			stats.Skipped++
			continue
		}
		if len(record.Conversation) == 0 {
			stats.Skipped++
			continue
		}

		entries := convertRecord(&record, opts)
		for _, entry := range entries {
			if err := encoder.Encode(entry); err != nil {
				return stats, fmt.Errorf("не удалось записать запись датасета: %w", err)
			}
			stats.Written++
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("ошибка чтения файла результатов %s: %w", inputPath, err)
	}

	if err := writer.Flush(); err != nil {
		return stats, fmt.Errorf("не удалось сбросить буфер датасета: %w", err)
	}
	return stats, nil
}

// convertRecord превращает одну запись результата в записи датасета.
// Форматы sharegpt и chatml дают одну запись на диалог, alpaca - по
// записи на каждую пару (реплика клиента, ответ агента).
func convertRecord(record *model.ResultRecord, opts Options) []any {
	meta := recordMeta{
		ScenarioID:       record.ScenarioID,
		VariationID:      record.VariationID,
		QualityScore:     record.Metadata.QualityScore,
		ValidationPassed: record.ValidationPassed,
	}

	switch opts.Format {
	case FormatShareGPT:
		return []any{toShareGPT(record, meta, opts.SystemPrompt)}
	case FormatChatML:
		return []any{toChatML(record, meta, opts.SystemPrompt)}
	case FormatAlpaca:
		return toAlpaca(record, meta, opts.SystemPrompt)
	default:
		return nil
	}
}

func toShareGPT(record *model.ResultRecord, meta recordMeta, systemPrompt string) shareGPTEntry {
	entry := shareGPTEntry{Metadata: meta}
	if systemPrompt != "" {
		entry.Conversations = append(entry.Conversations, shareGPTTurn{From: "system", Value: systemPrompt})
	}
	for _, turn := range record.Conversation {
		from := "human"
		if turn.Role == model.RoleAssistant {
			from = "gpt"
		}
		entry.Conversations = append(entry.Conversations, shareGPTTurn{From: from, Value: turn.Content})
	}
	return entry
}

func toChatML(record *model.ResultRecord, meta recordMeta, systemPrompt string) chatMLEntry {
	entry := chatMLEntry{Metadata: meta}
	if systemPrompt != "" {
		entry.Messages = append(entry.Messages, chatMLMessage{Role: "system", Content: systemPrompt})
	}
	for _, turn := range record.Conversation {
		entry.Messages = append(entry.Messages, chatMLMessage{Role: turn.Role, Content: turn.Content})
	}
	return entry
}

// toAlpaca строит записи instruction/input/output: каждая реплика
// клиента с последующим ответом агента дает одну обучающую пару.
func toAlpaca(record *model.ResultRecord, meta recordMeta, systemPrompt string) []any {
	var entries []any
	lastUser := ""
	turnNumber := 0

	for _, turn := range record.Conversation {
		switch turn.Role {
		case model.RoleUser:
			lastUser = turn.Content
		case model.RoleAssistant:
			if lastUser == "" {
				continue
			}
			turnNumber++
			instruction := "Customer: " + lastUser
			if systemPrompt != "" {
				instruction = systemPrompt + "\n\n" + instruction
			}
			entries = append(entries, alpacaEntry{
				Instruction: instruction,
				Input:       "",
				Output:      turn.Content,
				Metadata:    alpacaMeta{recordMeta: meta, TurnNumber: turnNumber},
			})
			lastUser = ""
		}
	}
	return entries
}
