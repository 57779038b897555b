// Интерфейс Tool и структуры определений.

package tools

import "context"

// JSONSchema представляет JSON Schema для параметров инструмента.
//
// Используется вместо interface{} для типобезопасности.
// Формат соответствует JSON Schema specification для Function Calling API.
type JSONSchema map[string]any

// ToolDefinition описывает инструмент для LLM (Function Calling API format).
type ToolDefinition struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  JSONSchema `json:"parameters"` // JSON Schema объекта аргументов
}

// Tool — контракт, который должен реализовать любой инструмент.
//
// Контракт "Raw In, String Out": Execute получает сырой JSON аргументов
// от LLM и возвращает строку результата (обычно JSON). Прикладные ошибки
// (город не найден, страница недоступна) кодируются в результат, чтобы
// модель могла их прочитать; error возвращается только для системных
// сбоев.
type Tool interface {
	// Definition возвращает описание инструмента для LLM.
	Definition() ToolDefinition

	// Execute выполняет логику инструмента.
	// argsJSON — это сырой JSON с аргументами, который прислала LLM.
	Execute(ctx context.Context, argsJSON string) (string, error)
}
