// stream-demo — демонстрация потоковой генерации.
//
// Ответ модели печатается по мере поступления дельт, reasoning_content
// thinking-моделей (DeepSeek reasoner, qwen3) выводится отдельным блоком.
//
// Использование:
//   go run cmd/stream-demo/main.go "Объясни квантовую запутанность"
//   go run cmd/stream-demo/main.go -model deepseek "Сколько будет 17*23?"
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ilkoid/praktika-ai/pkg/config"
	"github.com/ilkoid/praktika-ai/pkg/llm"
	"github.com/ilkoid/praktika-ai/pkg/models"
	"github.com/ilkoid/praktika-ai/pkg/utils"
)

var (
	configFlag = flag.String("config", "config.yaml", "Путь к config.yaml")
	modelFlag  = flag.String("model", "", "Алиас модели (по умолчанию default_chat)")
)

func main() {
	flag.Parse()

	query := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if query == "" {
		fmt.Println("Использование: stream-demo [flags] \"текст запроса\"")
		os.Exit(1)
	}

	// 1. Конфигурация и реестр моделей
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	registry, err := models.NewRegistryFromConfig(cfg)
	if err != nil {
		log.Fatalf("Ошибка создания реестра моделей: %v", err)
	}

	provider, modelDef, resolved, err := registry.GetWithFallback(*modelFlag, cfg.Models.DefaultChat)
	if err != nil {
		log.Fatalf("Ошибка выбора модели: %v", err)
	}

	// 2. Проверяем что провайдер умеет стриминг
	streamer, ok := provider.(llm.StreamingProvider)
	if !ok {
		log.Fatalf("Провайдер %s не поддерживает стриминг", modelDef.Provider)
	}

	fmt.Printf("🤖 Модель: %s (%s)\n", resolved, modelDef.ModelName)
	fmt.Printf("❓ Запрос: %s\n\n", query)

	// 3. Стримим ответ, печатая дельты по мере поступления.
	// Ctrl+C обрывает стрим через отмену контекста.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	defer utils.SetupGracefulShutdown(cancel)()

	var thinkingShown bool
	start := time.Now()

	final, err := streamer.GenerateStream(ctx,
		[]llm.Message{{Role: llm.RoleUser, Content: query}},
		func(chunk llm.StreamChunk) {
			switch chunk.Type {
			case llm.ChunkThinking:
				if !thinkingShown {
					fmt.Println("💭 Рассуждения:")
					thinkingShown = true
				}
				fmt.Print(chunk.Delta)
			case llm.ChunkContent:
				if thinkingShown {
					fmt.Println("\n\n📝 Ответ:")
					thinkingShown = false
				}
				fmt.Print(chunk.Delta)
			case llm.ChunkError:
				fmt.Fprintf(os.Stderr, "\n❌ Ошибка стрима: %v\n", chunk.Error)
			}
		})
	if err != nil {
		log.Fatalf("Ошибка генерации: %v", err)
	}

	fmt.Printf("\n\n✅ Готово за %.1fs, длина ответа %d символов\n",
		time.Since(start).Seconds(), len(final.Content))
}
