// csv-analyst — вопросы к CSV файлу на естественном языке.
//
// CSV грузится в in-memory SQLite, модель по схеме базы пишет SELECT,
// запрос выполняется и результат печатается таблицей. Невалидный SQL
// возвращается модели на исправление.
//
// Использование:
//   go run cmd/csv-analyst/main.go -csv data/user_data4.csv "Какая средняя зарплата?"
//   go run cmd/csv-analyst/main.go -csv data/user_data4.csv "Топ 3 профессии по числу людей"
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilkoid/praktika-ai/pkg/analyst"
	"github.com/ilkoid/praktika-ai/pkg/config"
	"github.com/ilkoid/praktika-ai/pkg/dataset"
	"github.com/ilkoid/praktika-ai/pkg/models"
	"github.com/ilkoid/praktika-ai/pkg/prompt"
)

var (
	configFlag = flag.String("config", "config.yaml", "Путь к config.yaml")
	modelFlag  = flag.String("model", "", "Алиас модели (по умолчанию default_chat)")
	csvFlag    = flag.String("csv", "", "Путь к CSV файлу (обязательно)")
	tableFlag  = flag.String("table", "", "Имя таблицы (по умолчанию имя файла)")
	sqlFlag    = flag.Bool("show-sql", true, "Печатать сгенерированный SQL")
	promptFlag = flag.String("prompt", "", "YAML файл с промптом аналитика (prompts/sql_analyst.yaml)")
)

func main() {
	flag.Parse()

	question := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if *csvFlag == "" || question == "" {
		fmt.Println("Использование: csv-analyst -csv <файл.csv> \"вопрос о данных\"")
		os.Exit(1)
	}

	// 1. Модель
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	registry, err := models.NewRegistryFromConfig(cfg)
	if err != nil {
		log.Fatalf("Ошибка создания реестра моделей: %v", err)
	}

	provider, _, resolved, err := registry.GetWithFallback(*modelFlag, cfg.Models.DefaultChat)
	if err != nil {
		log.Fatalf("Ошибка выбора модели: %v", err)
	}

	// 2. CSV → SQLite
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := dataset.Open(":memory:")
	if err != nil {
		log.Fatalf("Ошибка открытия базы: %v", err)
	}
	defer store.Close()

	table := *tableFlag
	if table == "" {
		table = strings.TrimSuffix(filepath.Base(*csvFlag), filepath.Ext(*csvFlag))
	}

	info, err := store.LoadCSV(ctx, *csvFlag, table)
	if err != nil {
		log.Fatalf("Ошибка загрузки CSV: %v", err)
	}
	fmt.Printf("📊 Загружено: таблица %s, строк: %d, колонок: %d\n", info.Name, info.RowCount, len(info.Columns))
	fmt.Printf("🤖 Модель: %s\n", resolved)
	fmt.Printf("❓ Вопрос: %s\n\n", question)

	// 3. Вопрос → SQL → результат; промпт можно подменить YAML файлом
	var opts []analyst.Option
	if *promptFlag != "" {
		opts = append(opts, analyst.WithSystemPrompt(loadSystemPrompt(*promptFlag)))
	}

	answer, err := analyst.New(store, provider, opts...).Ask(ctx, question)
	if err != nil {
		log.Fatalf("Ошибка аналитика: %v", err)
	}

	if *sqlFlag {
		fmt.Printf("🧮 SQL: %s\n", answer.SQL)
		if answer.Explanation != "" {
			fmt.Printf("💬 %s\n", answer.Explanation)
		}
		if answer.Attempts > 1 {
			fmt.Printf("🔁 Попыток: %d\n", answer.Attempts)
		}
		fmt.Println()
	}

	fmt.Println(answer.Table())
}

// loadSystemPrompt достаёт system сообщение из YAML промпта.
// Промпт аналитика обязан содержать %s — туда подставляется схема базы.
func loadSystemPrompt(path string) string {
	pf, err := prompt.Load(path)
	if err != nil {
		log.Fatalf("Ошибка загрузки промпта: %v", err)
	}
	for _, msg := range pf.Messages {
		if msg.Role == "system" {
			if !strings.Contains(msg.Content, "%s") {
				log.Fatalf("Промпт аналитика в %s должен содержать %%s для схемы базы", path)
			}
			return msg.Content
		}
	}
	log.Fatalf("В файле %s нет system сообщения", path)
	return ""
}
