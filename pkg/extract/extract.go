// Package extract извлекает структурированные данные из свободного текста.
//
// Конвейер structured outputs: текст → LLM с response_format json_schema →
// ответ валидируется против той же схемы через gojsonschema → JSON
// анмаршалится в Go структуру. Модель, вернувшая невалидный ответ,
// получает текст ошибки валидации и исправляется — до maxAttempts попыток.
//
// Basic usage:
//
//	var person extract.Person
//	ex := extract.New(provider)
//	err := ex.Extract(ctx, "Алиса, 30 лет, инженер", extract.PersonSchema(), &person)
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ilkoid/praktika-ai/pkg/llm"
	"github.com/ilkoid/praktika-ai/pkg/utils"
)

// maxAttempts — первая попытка плюс две коррекции по ошибкам валидации.
const maxAttempts = 3

// defaultExtractPrompt — системный промпт извлечения.
// %s заменяется на JSON Schema ожидаемого ответа.
const defaultExtractPrompt = `Ты извлекаешь структурированные данные из текста.

Схема ответа (JSON Schema):
%s

Правила:
1. Отвечай ТОЛЬКО JSON объектом, соответствующим схеме
2. Никакого текста до или после JSON, никаких markdown блоков
3. Значения бери строго из текста пользователя, не выдумывай
4. Если значение в тексте отсутствует и схема позволяет — используй null`

// Extractor извлекает типизированные данные через LLM.
type Extractor struct {
	provider     llm.Provider
	systemPrompt string
}

// Option настраивает Extractor.
type Option func(*Extractor)

// WithSystemPrompt переопределяет промпт извлечения.
// Промпт должен содержать %s для подстановки схемы.
func WithSystemPrompt(prompt string) Option {
	return func(e *Extractor) {
		if prompt != "" {
			e.systemPrompt = prompt
		}
	}
}

// New создаёт Extractor поверх любого llm.Provider.
func New(provider llm.Provider, opts ...Option) *Extractor {
	e := &Extractor{
		provider:     provider,
		systemPrompt: defaultExtractPrompt,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract извлекает данные из текста согласно схеме и анмаршалит их в out.
//
// Схема отправляется дважды: в системном промпте (читает модель) и в
// response_format json_schema (применяет провайдер — OpenAI включает
// strict режим, Ollama передаёт схему в format). Ответ проверяется
// локально через gojsonschema независимо от гарантий провайдера:
// json_object режимы и локальные модели схему не обещают.
//
// Ошибки валидации не фатальны до исчерпания попыток — модель видит
// список нарушений и возвращает исправленный JSON.
func (e *Extractor) Extract(ctx context.Context, text string, schema llm.JSONSchemaSpec, out any) error {
	if len(schema.Schema) == 0 {
		return fmt.Errorf("schema is empty")
	}

	schemaLoader := gojsonschema.NewBytesLoader(schema.Schema)

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(e.systemPrompt, string(schema.Schema))},
		{Role: llm.RoleUser, Content: text},
	}

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		response, err := e.provider.Generate(ctx, messages, llm.WithJSONSchema(schema))
		if err != nil {
			return fmt.Errorf("llm generation failed: %w", err)
		}

		cleaned := utils.CleanJsonBlock(response.Content)

		if err := validateAgainstSchema(schemaLoader, cleaned); err != nil {
			lastErr = err
			utils.Warn("Extract validation failed",
				"schema", schema.Name,
				"attempt", attempt,
				"error", err)
			messages = appendCorrection(messages, response.Content,
				fmt.Sprintf("Твой ответ не прошёл валидацию: %v. Верни исправленный JSON, строго соответствующий схеме.", err))
			continue
		}

		if err := json.Unmarshal([]byte(cleaned), out); err != nil {
			lastErr = fmt.Errorf("unmarshal into %T: %w", out, err)
			messages = appendCorrection(messages, response.Content,
				fmt.Sprintf("JSON не разбирается (%v). Верни корректный JSON объект по схеме.", err))
			continue
		}

		utils.Info("Extract succeeded", "schema", schema.Name, "attempts", attempt)
		return nil
	}

	return fmt.Errorf("extraction failed after %d attempts: %w", maxAttempts, lastErr)
}

// validateAgainstSchema проверяет JSON строку против схемы.
//
// Синтаксически битый JSON и нарушение схемы приводят к одинаковому
// исходу: ошибка с деталями, пригодная для отправки модели.
func validateAgainstSchema(schemaLoader gojsonschema.JSONLoader, document string) error {
	if strings.TrimSpace(document) == "" {
		return fmt.Errorf("model returned empty response")
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(document))
	if err != nil {
		// gojsonschema возвращает error и на невалидный JSON документа
		return fmt.Errorf("invalid json: %w", err)
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, resErr := range result.Errors() {
			issues = append(issues, resErr.String())
		}
		return fmt.Errorf("schema violations: %s", strings.Join(issues, "; "))
	}
	return nil
}

// appendCorrection добавляет ответ модели и указание на ошибку в диалог.
func appendCorrection(messages []llm.Message, modelReply, correction string) []llm.Message {
	messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: modelReply})
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: correction})
	return messages
}
