package repository

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"dialogue-generator/internal/model"
)

// Строки входного JSONL бывают длинными: системный промпт может занимать
// десятки килобайт.
const maxPromptLineBytes = 1024 * 1024

// ReadPrompts читает входной JSONL с системными промптами. Пустые строки
// пропускаются молча, некорректные - с предупреждением в лог: один
// битый промпт не должен ронять весь прогон.
func ReadPrompts(path string) ([]model.InputPrompt, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл промптов %s: %w", path, err)
	}
	defer file.Close()

	var prompts []model.InputPrompt

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxPromptLineBytes)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var raw map[string]json.RawMessage
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			log.Printf("Строка %d файла %s пропущена: некорректный JSON: %v", lineNum, path, err)
			continue
		}

		prompt := model.InputPrompt{}
		if err := json.Unmarshal([]byte(line), &prompt); err != nil {
			log.Printf("Строка %d файла %s пропущена: %v", lineNum, path, err)
			continue
		}

		// Поддерживаем альтернативный ключ "prompt"
		if prompt.SystemPrompt == "" {
			if alt, ok := raw["prompt"]; ok {
				_ = json.Unmarshal(alt, &prompt.SystemPrompt)
			}
		}
		if strings.TrimSpace(prompt.SystemPrompt) == "" {
			log.Printf("Строка %d файла %s пропущена: пустой system_prompt", lineNum, path)
			continue
		}

		if prompt.ID == "" {
			prompt.ID = fmt.Sprintf("prompt_%d", len(prompts)+1)
		}
		if prompt.Language == "" {
			prompt.Language = "en"
		}

		prompts = append(prompts, prompt)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения файла промптов %s: %w", path, err)
	}

	if len(prompts) == 0 {
		return nil, fmt.Errorf("в файле %s не найдено ни одного промпта", path)
	}
	return prompts, nil
}

// samplePrompt - демонстрационный базовый промпт с плейсхолдерами
// вариаций.
const samplePrompt = `You are Salma, a professional debt collection agent working for a financial services company in the UAE. You are calling {FirstName} {LastName} regarding an overdue payment of {amount} that was due on {DueDate}.

Your conversation rules:
1. Start by verifying you are speaking with the right person
2. Inform the customer this call may be recorded for quality purposes
3. State the purpose of the call clearly and professionally
4. Listen to the customer and adapt to their situation
5. Try to secure a payment or a specific payment date
6. Remain polite and professional at all times, even if the customer becomes difficult
7. Use special tags to mark call control actions: (disconnect), (transfer), (hold), (callback), (escalate), (function_1) for payment processing, (function_2) for account lookup

Never threaten the customer. Follow all debt collection regulations.`

// WriteSamplePrompts создает демонстрационный входной файл для быстрого
// старта.
func WriteSamplePrompts(path string) error {
	sample := model.InputPrompt{
		ID:           "sample_prompt_1",
		SystemPrompt: samplePrompt,
		Language:     "en",
		Metadata: map[string]any{
			"source": "sample",
		},
	}

	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать образец промпта: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("не удалось записать файл %s: %w", path, err)
	}
	return nil
}
