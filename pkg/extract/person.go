package extract

import "github.com/ilkoid/praktika-ai/pkg/llm"

// Person — каноничный пример извлекаемой структуры.
// Используется в демо и как образец объявления собственных типов.
type Person struct {
	Name       string `json:"name"`
	Age        int    `json:"age"`
	Occupation string `json:"occupation"`
}

// PersonSchema возвращает строгую схему для Person.
//
// additionalProperties: false и полный required обязательны для
// OpenAI strict режима, локальная валидация использует те же правила.
func PersonSchema() llm.JSONSchemaSpec {
	return llm.MustSchema("person", true, map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{
				"type":        "string",
				"description": "Полное имя человека",
			},
			"age": map[string]any{
				"type":        "integer",
				"description": "Возраст в годах",
			},
			"occupation": map[string]any{
				"type":        "string",
				"description": "Род занятий или профессия",
			},
		},
		"required":             []string{"name", "age", "occupation"},
		"additionalProperties": false,
	})
}
