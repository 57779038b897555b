// Структурированный вывод (structured outputs).

package llm

import "encoding/json"

// JSONSchemaSpec описывает схему для response_format json_schema.
//
// Schema хранится как сырой JSON: схемы приходят из YAML промптов или
// собираются кодом, провайдер передаёт их в API без переинтерпретации.
type JSONSchemaSpec struct {
	// Name — имя схемы (обязательно для OpenAI json_schema формата).
	Name string

	// Strict включает строгий режим: модель обязана вернуть JSON,
	// точно соответствующий схеме. Поддерживается OpenAI, игнорируется
	// провайдерами без strict режима.
	Strict bool

	// Schema — JSON Schema объекта ответа.
	Schema json.RawMessage
}

// MustSchema собирает JSONSchemaSpec из Go-значения схемы.
//
// Паникует при немаршализуемом значении — использовать только для
// статических схем, объявленных в коде.
func MustSchema(name string, strict bool, schema any) JSONSchemaSpec {
	raw, err := json.Marshal(schema)
	if err != nil {
		panic("llm: unmarshalable schema for " + name + ": " + err.Error())
	}
	return JSONSchemaSpec{Name: name, Strict: strict, Schema: raw}
}
