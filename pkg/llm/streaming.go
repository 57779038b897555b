// Package llm предоставляет типы и интерфейсы для работы с LLM провайдерами.
//
// Этот файл определяет абстракции для потоковой передачи (streaming) ответов от LLM.
package llm

import "context"

// StreamingProvider — интерфейс для LLM провайдеров с поддержкой стриминга.
//
// Отдельный интерфейс от Provider: провайдеры могут реализовать оба
// интерфейса или только Provider. Вызывающий код проверяет поддержку
// через type assertion.
//
// Все методы уважают context.Context и прерывают операцию при отмене.
type StreamingProvider interface {
	// Provider — базовый интерфейс для синхронной генерации.
	Provider

	// GenerateStream выполняет запрос к API с потоковой передачей ответа.
	//
	// Параметры:
	//   - ctx: контекст для отмены операции
	//   - messages: история сообщений
	//   - callback: функция для обработки каждого чанка
	//   - args: опциональные параметры ([]tools.ToolDefinition,
	//     GenerateOption, StreamOption)
	//
	// Возвращает финальное собранное сообщение после завершения стриминга.
	// Tool calls не стримятся по частям — они накапливаются из дельт и
	// попадают в финальное сообщение.
	//
	// Callback вызывается для каждой порции данных:
	//   - ChunkThinking: reasoning_content из thinking mode
	//   - ChunkContent: обычный контент ответа
	//   - ChunkError: ошибка стриминга
	//   - ChunkDone: завершение стриминга (ровно один раз)
	//
	// Callback вызывается из goroutine транспорта и должен быть
	// thread-safe, если трогает разделяемое состояние.
	GenerateStream(
		ctx context.Context,
		messages []Message,
		callback func(StreamChunk),
		args ...any,
	) (Message, error)
}

// StreamChunk представляет одну порцию данных из потокового ответа.
//
// Содержит как инкрементальные изменения (Delta), так и накопленное
// состояние (Content) — UI может выбрать удобный режим отрисовки.
type StreamChunk struct {
	// Type определяет тип чанка
	Type ChunkType

	// Content содержит накопленный текстовый контент на данный момент
	Content string

	// ReasoningContent содержит накопленный reasoning_content из thinking mode
	ReasoningContent string

	// Delta — инкрементальные изменения (для UI обновлений в реальном времени)
	Delta string

	// Done — флаг завершения стриминга
	Done bool

	// Error — ошибка если произошла (только когда Type == ChunkError)
	Error error
}

// ChunkType определяет тип стримингового чанка.
type ChunkType string

const (
	// ChunkThinking — reasoning_content из thinking mode
	// (DeepSeek reasoner, Ollama thinking-модели). Отправляется только
	// если модель вернула reasoning дельты.
	ChunkThinking ChunkType = "thinking"

	// ChunkContent — обычный контент ответа.
	// Накапливается по мере поступления от LLM.
	ChunkContent ChunkType = "content"

	// ChunkError — ошибка стриминга.
	// Содержит ошибку в поле Error.
	ChunkError ChunkType = "error"

	// ChunkDone — завершение стриминга.
	// Отправляется когда все данные получены.
	ChunkDone ChunkType = "done"
)

// collectStreamOptions применяет все StreamOption из смешанного списка
// аргументов поверх дефолтов. Одиночная опция не сбрасывает остальные
// поля в zero value.
func collectStreamOptions(opts ...any) StreamOptions {
	so := DefaultStreamOptions()
	for _, opt := range opts {
		if streamOpt, ok := opt.(StreamOption); ok {
			streamOpt(&so)
		}
	}
	return so
}

// IsStreamingMode проверяет, включен ли стриминг в опциях.
//
// По умолчанию возвращает true (opt-out дизайн): стриминг включён,
// если явно не выключен через WithStream(false).
//
// # Usage
//
//	opts := []any{WithStream(false)}  // выключить стриминг
//	isStreaming := IsStreamingMode(opts...) // false
func IsStreamingMode(opts ...any) bool {
	return collectStreamOptions(opts...).Enabled
}

// IsThinkingOnly проверяет, нужно ли отправлять только reasoning_content.
//
// По умолчанию возвращает false: события отправляются для всех чанков.
// WithThinkingOnly(true) ограничивает поток событиями thinking mode —
// удобно, когда UI показывает рассуждения, а финальный ответ рендерит
// целиком.
func IsThinkingOnly(opts ...any) bool {
	return collectStreamOptions(opts...).ThinkingOnly
}
