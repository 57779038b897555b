// llm-ping — утилита для проверки доступности LLM провайдера.
//
// Облачные провайдеры проверяются через GET /models с API ключом,
// локальный Ollama — через /api/version. Полноценный chat запрос не
// выполняется, токены не тратятся.
//
// Использование:
//   go run cmd/llm-ping/main.go
//   go run cmd/llm-ping/main.go -model deepseek
//
// Переменные окружения:
//   OPENAI_API_KEY     - API ключ для OpenAI
//   DEEPSEEK_API_KEY   - API ключ для DeepSeek
//   OPENROUTER_API_KEY - API ключ для OpenRouter
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/ilkoid/praktika-ai/pkg/config"
	"github.com/ilkoid/praktika-ai/pkg/models"
	"github.com/ilkoid/praktika-ai/pkg/tools/std"
)

var (
	configFlag = flag.String("config", "config.yaml", "Путь к config.yaml")
	modelFlag  = flag.String("model", "", "Алиас модели (по умолчанию default_chat)")
)

func main() {
	flag.Parse()

	// 1. Загружаем конфигурацию
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load config from %s: %v", *configFlag, err)
	}

	// 2. Создаем ModelRegistry
	modelRegistry, err := models.NewRegistryFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to create model registry: %v", err)
	}

	// 3. Выбираем модель для проверки
	modelAlias := *modelFlag
	if modelAlias == "" {
		modelAlias = cfg.Models.DefaultChat
	}
	if modelAlias == "" {
		// Берем первую доступную модель
		for name := range cfg.Models.Definitions {
			modelAlias = name
			break
		}
	}

	fmt.Printf("🔍 Testing LLM Provider: %s\n\n", modelAlias)

	// 4. Выполняем ping
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	argsJSON, _ := json.Marshal(map[string]string{"model": modelAlias})

	pingTool := std.NewLLMPingTool(modelRegistry, cfg)
	result, err := pingTool.Execute(ctx, string(argsJSON))
	if err != nil {
		log.Fatalf("Failed to execute ping: %v", err)
	}

	// 5. Парсим и выводим результат
	var pingResult map[string]interface{}
	if err := json.Unmarshal([]byte(result), &pingResult); err != nil {
		fmt.Printf("Raw result: %s\n", result)
		return
	}

	printResult(pingResult)
}

// printResult выводит результат пинга в красивом формате
func printResult(result map[string]interface{}) {
	available, _ := result["available"].(bool)
	statusCode, _ := result["status_code"].(float64)
	latencyMs, _ := result["latency_ms"].(float64)
	provider, _ := result["provider"].(string)
	model, _ := result["model"].(string)

	if available {
		fmt.Printf("✅ Status: AVAILABLE\n")
		fmt.Printf("   Provider: %s\n", provider)
		fmt.Printf("   Model: %s\n", model)
		fmt.Printf("   Latency: %dms\n", int(latencyMs))
		if statusCode > 0 {
			fmt.Printf("   HTTP Code: %d\n", int(statusCode))
		}
		if msg, ok := result["message"].(string); ok {
			fmt.Printf("   Message: %s\n", msg)
		}
	} else {
		fmt.Printf("❌ Status: UNAVAILABLE\n")
		if provider != "" {
			fmt.Printf("   Provider: %s\n", provider)
		}
		if model != "" {
			fmt.Printf("   Model: %s\n", model)
		}
		if errType, ok := result["error_type"].(string); ok {
			fmt.Printf("   Error Type: %s\n", errType)
		}
		if errMsg, ok := result["error"].(string); ok {
			fmt.Printf("   Error: %s\n", errMsg)
		}
		if statusCode > 0 {
			fmt.Printf("   HTTP Code: %d\n", int(statusCode))
		}
		if latencyMs > 0 {
			fmt.Printf("   Latency: %dms\n", int(latencyMs))
		}
	}
}
