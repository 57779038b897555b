// Интерфейс Провайдера через который работает всё приложение.

package llm

import "context"

// Provider — контракт для любого AI-сервиса.
//
// Реализации: pkg/llm/openai (OpenAI, DeepSeek, OpenRouter и любые
// OpenAI-совместимые endpoints), pkg/llm/ollama (локальный REST API).
type Provider interface {
	// Generate отправляет историю сообщений и возвращает ответ модели.
	//
	// args принимает опциональные параметры в любом порядке:
	//   - []tools.ToolDefinition — инструменты для Function Calling
	//   - GenerateOption — runtime переопределения (модель, температура...)
	//
	// Провайдер не мутирует переданный slice сообщений.
	Generate(ctx context.Context, messages []Message, args ...any) (Message, error)
}
