// extract-demo — демонстрация structured outputs.
//
// Модель получает свободный текст и JSON schema, возвращает строго
// типизированный объект. Ответ валидируется против схемы, при
// нарушении модель получает ошибку валидации и исправляется.
//
// Использование:
//   go run cmd/extract-demo/main.go
//   go run cmd/extract-demo/main.go "Мария Новакова, 34 года, врач из Брно"
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ilkoid/praktika-ai/pkg/config"
	"github.com/ilkoid/praktika-ai/pkg/extract"
	"github.com/ilkoid/praktika-ai/pkg/models"
	"github.com/ilkoid/praktika-ai/pkg/prompt"
)

// defaultText — пример для запуска без аргументов.
const defaultText = "Вчера познакомился с Петром Свободой. Ему 28 лет, работает инженером в Остраве, увлекается горными лыжами."

var (
	configFlag = flag.String("config", "config.yaml", "Путь к config.yaml")
	modelFlag  = flag.String("model", "", "Алиас модели (по умолчанию default_chat)")
	promptFlag = flag.String("prompt", "", "YAML файл с промптом извлечения (prompts/extraction.yaml)")
)

func main() {
	flag.Parse()

	text := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if text == "" {
		text = defaultText
	}

	// 1. Конфигурация и модель
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

	fmt.Printf("🤖 Модель: %s\n", resolved)
	fmt.Printf("📄 Текст: %s\n\n", text)

	// 2. Извлекаем Person по схеме; промпт можно подменить YAML файлом
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var opts []extract.Option
	if *promptFlag != "" {
		opts = append(opts, extract.WithSystemPrompt(loadSystemPrompt(*promptFlag)))
	}

	var person extract.Person
	extractor := extract.New(provider, opts...)
	if err := extractor.Extract(ctx, text, extract.PersonSchema(), &person); err != nil {
		log.Fatalf("Ошибка извлечения: %v", err)
	}

	// 3. Печатаем результат
	pretty, _ := json.MarshalIndent(person, "", "  ")
	fmt.Printf("✅ Извлечено:\n%s\n\n", pretty)
	fmt.Printf("Имя: %s\nВозраст: %d\nПрофессия: %s\n", person.Name, person.Age, person.Occupation)
}

// loadSystemPrompt достаёт system сообщение из YAML промпта.
// Промпт извлечения обязан содержать %s — туда подставляется JSON Schema.
func loadSystemPrompt(path string) string {
	pf, err := prompt.Load(path)
	if err != nil {
		log.Fatalf("Ошибка загрузки промпта: %v", err)
	}
	for _, msg := range pf.Messages {
		if msg.Role == "system" {
			if !strings.Contains(msg.Content, "%s") {
				log.Fatalf("Промпт извлечения в %s должен содержать %%s для схемы", path)
			}
			return msg.Content
		}
	}
	log.Fatalf("В файле %s нет system сообщения", path)
	return ""
}
