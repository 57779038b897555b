// chat-tui — интерактивный TUI чат с LLM агентом.
//
// Использование:
//   go run cmd/chat-tui/main.go
//   go run cmd/chat-tui/main.go -config config.yaml -model deepseek
//
// Горячие клавиши:
//   Enter  — отправить сообщение
//   Ctrl+R — новый диалог
//   Ctrl+S — сохранить расшифровку диалога в markdown файл
//   Ctrl+C — выход
//
// Переменные окружения (можно задать в .env):
//   OPENAI_API_KEY     - API ключ для OpenAI
//   DEEPSEEK_API_KEY   - API ключ для DeepSeek
//   OPENROUTER_API_KEY - API ключ для OpenRouter
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/ilkoid/praktika-ai/internal/ui"
	"github.com/ilkoid/praktika-ai/pkg/agent"
)

var (
	configFlag = flag.String("config", "config.yaml", "Путь к config.yaml")
	modelFlag  = flag.String("model", "", "Имя модели из конфигурации (по умолчанию default_chat)")
	envFlag    = flag.String("env", ".env", "Путь к .env файлу с API ключами")
)

func main() {
	flag.Parse()

	// 1. Загружаем .env (файл опционален)
	if err := loadDotEnv(*envFlag); err != nil {
		log.Fatalf("Ошибка загрузки %s: %v", *envFlag, err)
	}

	// 2. Собираем агента из конфигурации
	client, err := agent.NewClient(context.Background(), agent.ClientConfig{
		ConfigPath: *configFlag,
		Model:      *modelFlag,
	})
	if err != nil {
		log.Fatalf("Ошибка инициализации агента: %v", err)
	}
	defer client.Close()

	// 3. Определяем фон терминала ДО старта Bubble Tea:
	// после захвата экрана OSC-запрос цвета фона уже не отработает.
	darkBG := lipgloss.HasDarkBackground()

	// 4. Запускаем TUI
	p := tea.NewProgram(
		ui.InitialModel(client, client.ModelName(), darkBG),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		log.Fatalf("Ошибка запуска TUI: %v", err)
	}
}

// loadDotEnv загружает переменные окружения из path.
// Отсутствующий файл игнорируется — .env опционален.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
