// tools-demo — демонстрация function calling.
//
// Модель получает инструменты current_weather и current_time и сама
// решает когда их вызвать. Каждый вызов и результат печатается по
// событиям агентского цикла.
//
// Использование:
//   go run cmd/tools-demo/main.go "Какая погода в Праге?"
//   go run cmd/tools-demo/main.go "Который час? А в Братиславе тепло?"
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ilkoid/praktika-ai/pkg/agent"
	"github.com/ilkoid/praktika-ai/pkg/config"
	"github.com/ilkoid/praktika-ai/pkg/events"
	"github.com/ilkoid/praktika-ai/pkg/models"
	"github.com/ilkoid/praktika-ai/pkg/tools"
	"github.com/ilkoid/praktika-ai/pkg/tools/std"
)

var (
	configFlag = flag.String("config", "config.yaml", "Путь к config.yaml")
	modelFlag  = flag.String("model", "", "Алиас модели (по умолчанию default_chat)")
)

func main() {
	flag.Parse()

	query := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if query == "" {
		query = "Какая сейчас погода в Праге? И сколько времени?"
	}

	// 1. Конфигурация, модель
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

	// 2. Регистрируем инструменты
	toolsRegistry := tools.NewRegistry()
	for _, tool := range []tools.Tool{
		std.NewCurrentWeatherTool(),
		std.NewCurrentTimeTool(),
	} {
		if err := toolsRegistry.Register(tool); err != nil {
			log.Fatalf("Ошибка регистрации инструмента: %v", err)
		}
	}

	// 3. Агентский цикл с подпиской на события
	loop := agent.New(provider, toolsRegistry,
		agent.WithSystemPrompt("Ты полезный ассистент. Используй инструменты когда нужны актуальные данные. Отвечай на русском."),
		agent.WithStreaming(false),
	)
	sub := loop.Subscribe()

	go func() {
		for event := range sub.Events() {
			switch data := event.Data.(type) {
			case events.ToolCallData:
				fmt.Printf("🔧 Вызов %s(%s)\n", data.ToolName, data.Args)
			case events.ToolResultData:
				status := "✅"
				if data.IsError {
					status = "❌"
				}
				fmt.Printf("%s Результат %s за %.1fs: %s\n",
					status, data.ToolName, data.Duration.Seconds(), truncate(data.Result, 120))
			}
		}
	}()

	fmt.Printf("🤖 Модель: %s\n", resolved)
	fmt.Printf("❓ Запрос: %s\n\n", query)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	answer, _, err := loop.Run(ctx, nil, query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Ошибка: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n📝 Ответ:\n%s\n", answer)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
