// praktika — командная утилита для работы с LLM провайдерами.
//
// Подкоманды:
//   ask    — одиночный вопрос модели из конфигурации
//   models — каталог моделей (OpenRouter + локальный Ollama)
//   ping   — проверка доступности провайдера и валидности ключа
//
// Использование:
//   praktika ask "Сколько планет в солнечной системе?"
//   praktika ask --model deepseek --temperature 0 --json "Верни {\"answer\": ...}"
//   praktika models --filter deepseek
//   praktika models --ollama
//   praktika ping --model local
//
// Переменные окружения (можно задать в .env):
//   OPENAI_API_KEY, DEEPSEEK_API_KEY, OPENROUTER_API_KEY, OLLAMA_API_KEY
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/ilkoid/praktika-ai/pkg/config"
	"github.com/ilkoid/praktika-ai/pkg/llm"
	"github.com/ilkoid/praktika-ai/pkg/llm/ollama"
	"github.com/ilkoid/praktika-ai/pkg/models"
	"github.com/ilkoid/praktika-ai/pkg/tools/std"
)

func main() {
	app := &cli.App{
		Name:  "praktika",
		Usage: "Утилиты для работы с LLM API (OpenAI, DeepSeek, Ollama, OpenRouter)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Путь к config.yaml",
				Value:   "config.yaml",
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "Путь к .env файлу с API ключами",
				Value: ".env",
			},
		},
		Before: loadEnvFile,
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Задать один вопрос модели и напечатать ответ",
				ArgsUsage: "\"текст вопроса\"",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "model",
						Aliases: []string{"m"},
						Usage:   "Алиас модели из конфигурации (по умолчанию default_chat)",
					},
					&cli.Float64Flag{
						Name:    "temperature",
						Aliases: []string{"t"},
						Usage:   "Температура сэмплирования (0 = детерминированно)",
					},
					&cli.Float64Flag{
						Name:  "top-p",
						Usage: "Nucleus sampling (менять либо temperature, либо top-p)",
					},
					&cli.IntFlag{
						Name:  "max-tokens",
						Usage: "Лимит токенов ответа (0 = по умолчанию провайдера)",
					},
					&cli.StringFlag{
						Name:    "system",
						Aliases: []string{"s"},
						Usage:   "Системный промпт",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Запросить ответ в JSON режиме (json_object)",
					},
				},
			},
			{
				Name:   "models",
				Usage:  "Показать каталог доступных моделей",
				Action: modelsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "filter",
						Aliases: []string{"f"},
						Usage:   "Подстрока для фильтра по ID или имени модели",
					},
					&cli.BoolFlag{
						Name:  "ollama",
						Usage: "Добавить локально установленные модели Ollama",
					},
				},
			},
			{
				Name:   "ping",
				Usage:  "Проверить доступность LLM провайдера",
				Action: pingCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "model",
						Aliases: []string{"m"},
						Usage:   "Алиас модели из конфигурации (по умолчанию default_chat)",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadEnvFile подхватывает .env до выполнения команд.
// Отсутствующий файл не ошибка: ключи могут быть в окружении.
func loadEnvFile(c *cli.Context) error {
	err := godotenv.Load(c.String("env"))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("нужен текст вопроса: praktika ask \"...\"")
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	registry, err := models.NewRegistryFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("create model registry: %w", err)
	}

	provider, _, resolved, err := registry.GetWithFallback(c.String("model"), cfg.Models.DefaultChat)
	if err != nil {
		return fmt.Errorf("select model: %w", err)
	}

	messages := make([]llm.Message, 0, 2)
	if system := c.String("system"); system != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})

	var args []any
	if c.IsSet("temperature") {
		args = append(args, llm.WithTemperature(c.Float64("temperature")))
	}
	if c.IsSet("top-p") {
		args = append(args, llm.WithTopP(c.Float64("top-p")))
	}
	if c.IsSet("max-tokens") {
		args = append(args, llm.WithMaxTokens(c.Int("max-tokens")))
	}
	if c.Bool("json") {
		args = append(args, llm.WithJSONMode())
	}

	fmt.Fprintf(os.Stderr, "🤖 Модель: %s\n\n", resolved)

	response, err := provider.Generate(c.Context, messages, args...)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	fmt.Println(response.Content)
	return nil
}

func modelsCommand(c *cli.Context) error {
	opts := []models.CatalogOption{
		models.WithUserAgent("praktika-cli"),
	}

	if c.Bool("ollama") {
		opts = append(opts, models.WithLocalModels(localOllamaClient(c.String("config"))))
	}

	catalog := models.NewCatalog(opts...)
	entries, err := catalog.Fetch(c.Context)
	if err != nil {
		return fmt.Errorf("fetch catalog: %w", err)
	}

	filtered := models.Filter(entries, c.String("filter"))
	fmt.Println(models.RenderTable(filtered))
	fmt.Printf("Всего моделей: %d\n", len(filtered))
	return nil
}

// localOllamaClient собирает клиент локального сервера. Конфигурация
// опциональна: без неё используется стандартный localhost:11434.
func localOllamaClient(configPath string) *ollama.Client {
	if cfg, err := config.Load(configPath); err == nil {
		for _, def := range cfg.Models.Definitions {
			if def.Provider == "ollama" {
				return ollama.NewClient(def)
			}
		}
	}
	return ollama.NewClient(config.ModelDef{Provider: "ollama"})
}

func pingCommand(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	registry, err := models.NewRegistryFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("create model registry: %w", err)
	}

	pingArgs, _ := json.Marshal(map[string]string{"model": c.String("model")})

	tool := std.NewLLMPingTool(registry, cfg)
	result, err := tool.Execute(c.Context, string(pingArgs))
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var parsed struct {
		Available bool   `json:"available"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal([]byte(result), &parsed); err != nil {
		fmt.Println(result)
		return nil
	}

	if parsed.Available {
		fmt.Printf("✅ %s\n", parsed.Message)
	} else {
		fmt.Printf("❌ %s\n", parsed.Message)
	}

	var pretty map[string]any
	if err := json.Unmarshal([]byte(result), &pretty); err == nil {
		detail, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Printf("\n%s\n", detail)
	}

	if !parsed.Available {
		return cli.Exit("", 1)
	}
	return nil
}
