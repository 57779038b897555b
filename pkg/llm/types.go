// Базовые типы — универсальный язык общения с моделями.
//
// Все провайдеры (OpenAI, DeepSeek, OpenRouter, Ollama) конвертируют
// эти типы в свой wire-формат и обратно. История чата хранится и
// передаётся только в этом формате.
package llm

// Role определяет роль автора сообщения в диалоге.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"

	// RoleTool — результат выполнения инструмента.
	// Сообщение с этой ролью должно содержать ToolCallID.
	RoleTool Role = "tool"
)

// Message — одно сообщение диалога.
//
// Content всегда текст. Для vision-запросов картинки передаются
// отдельно в Images (base64 data-uri или http ссылки) — провайдер сам
// собирает мультимодальный payload.
type Message struct {
	Role    Role
	Content string

	// Images — опциональные изображения для vision моделей.
	Images []string

	// ToolCalls — запросы на вызов инструментов (только assistant).
	ToolCalls []ToolCall

	// ToolCallID — ID вызова, на который отвечает это сообщение (только tool).
	ToolCallID string
}

// ToolCall — запрос модели на вызов инструмента.
//
// Args содержит сырую JSON строку аргументов как её вернула модель.
// Санитизация (markdown fences и пр.) — забота вызывающего кода.
type ToolCall struct {
	ID   string
	Name string
	Args string
}
