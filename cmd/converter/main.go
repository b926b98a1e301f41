package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"dialogue-generator/internal/converter"
)

func main() {
	inputPath := flag.String("input", "generated_conversations.jsonl", "путь к JSONL с результатами генерации")
	outputPath := flag.String("output", "", "путь к выходному датасету (по умолчанию <input>_<format>.jsonl)")
	formatName := flag.String("format", "sharegpt", "формат датасета: sharegpt, chatml или alpaca")
	systemPromptFile := flag.String("system-prompt-file", "", "файл с системным промптом для добавления в каждую запись")
	onlyPassed := flag.Bool("only-passed", true, "включать только диалоги, прошедшие валидацию")
	flag.Parse()

	format, err := converter.ParseFormat(*formatName)
	if err != nil {
		log.Fatalf("Ошибка: %v", err)
	}

	systemPrompt := ""
	if *systemPromptFile != "" {
		data, err := os.ReadFile(*systemPromptFile)
		if err != nil {
			log.Fatalf("Не удалось прочитать файл системного промпта: %v", err)
		}
		systemPrompt = strings.TrimSpace(string(data))
	}

	out := *outputPath
	if out == "" {
		out = strings.TrimSuffix(*inputPath, ".jsonl") + "_" + string(format) + ".jsonl"
	}

	stats, err := converter.Convert(*inputPath, out, converter.Options{
		Format:       format,
		SystemPrompt: systemPrompt,
		OnlyPassed:   *onlyPassed,
	})
	if err != nil {
		log.Fatalf("Ошибка конвертации: %v", err)
	}

	log.Printf("Конвертация завершена: прочитано %d, пропущено %d, записано %d -> %s",
		stats.Read, stats.Skipped, stats.Written, out)
}
