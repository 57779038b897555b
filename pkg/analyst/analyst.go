// Package analyst отвечает на вопросы о данных на естественном языке.
//
// Конвейер: вопрос → LLM в JSON mode генерирует SELECT по схеме базы →
// запрос выполняется через dataset.Store → результат форматируется
// таблицей. Невалидный JSON или упавший SQL не фатальны: ошибка
// отправляется модели обратно, и у неё есть одна попытка исправиться.
package analyst

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ilkoid/praktika-ai/pkg/dataset"
	"github.com/ilkoid/praktika-ai/pkg/llm"
	"github.com/ilkoid/praktika-ai/pkg/utils"
)

// maxAttempts — первая попытка плюс одна коррекция по ошибке.
const maxAttempts = 2

// defaultAnalystPrompt — системный промпт SQL аналитика.
// %s заменяется на описание схемы базы.
const defaultAnalystPrompt = `Ты SQL аналитик. Отвечаешь на вопросы о данных в SQLite базе.

Схема базы:
%s

Правила:
1. Отвечай ТОЛЬКО JSON объектом вида {"sql": "...", "explanation": "..."}
2. Только SELECT запросы. Никаких INSERT, UPDATE, DELETE, DROP
3. Используй имена таблиц и колонок из схемы как есть
4. Для потенциально больших результатов добавляй LIMIT 100
5. В explanation одним предложением объясни что делает запрос`

// Answer — результат одного вопроса.
type Answer struct {
	Question    string
	SQL         string
	Explanation string
	Result      *dataset.Result
	Attempts    int
}

// Table возвращает результат запроса как markdown таблицу.
func (a Answer) Table() string {
	if a.Result == nil {
		return ""
	}
	return a.Result.Markdown()
}

// Analyst превращает вопросы на естественном языке в SQL запросы.
type Analyst struct {
	store        *dataset.Store
	provider     llm.Provider
	systemPrompt string
}

// Option настраивает Analyst.
type Option func(*Analyst)

// WithSystemPrompt переопределяет промпт аналитика.
// Промпт должен содержать %s для подстановки схемы.
func WithSystemPrompt(prompt string) Option {
	return func(a *Analyst) {
		if prompt != "" {
			a.systemPrompt = prompt
		}
	}
}

// New создаёт Analyst поверх загруженного датасета.
func New(store *dataset.Store, provider llm.Provider, opts ...Option) *Analyst {
	a := &Analyst{
		store:        store,
		provider:     provider,
		systemPrompt: defaultAnalystPrompt,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// sqlPlan — JSON ответ модели.
type sqlPlan struct {
	SQL         string `json:"sql"`
	Explanation string `json:"explanation"`
}

// Ask отвечает на вопрос о данных.
//
// Ошибки парсинга и выполнения SQL возвращаются модели как текст:
// она видит что именно сломалось и переписывает запрос. После
// maxAttempts неудач возвращается последняя ошибка.
func (a *Analyst) Ask(ctx context.Context, question string) (Answer, error) {
	schema, err := a.store.Schema(ctx)
	if err != nil {
		return Answer{}, fmt.Errorf("describe schema: %w", err)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(a.systemPrompt, schema)},
		{Role: llm.RoleUser, Content: question},
	}

	answer := Answer{Question: question}
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		answer.Attempts = attempt

		response, err := a.provider.Generate(ctx, messages, llm.WithJSONMode())
		if err != nil {
			return answer, fmt.Errorf("llm generation failed: %w", err)
		}

		cleaned := utils.CleanJsonBlock(response.Content)

		var plan sqlPlan
		if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
			lastErr = fmt.Errorf("invalid json from model: %w", err)
			utils.Warn("Analyst got invalid JSON", "attempt", attempt, "error", err)
			messages = appendCorrection(messages, response.Content,
				fmt.Sprintf("Твой ответ не является валидным JSON (%v). Верни ТОЛЬКО JSON объект {\"sql\": \"...\", \"explanation\": \"...\"}.", err))
			continue
		}
		if plan.SQL == "" {
			lastErr = fmt.Errorf("model returned empty sql")
			messages = appendCorrection(messages, response.Content,
				"В ответе нет поля sql. Верни JSON объект {\"sql\": \"...\", \"explanation\": \"...\"}.")
			continue
		}

		result, err := a.store.Query(ctx, plan.SQL)
		if err != nil {
			lastErr = fmt.Errorf("sql failed: %w", err)
			utils.Warn("Analyst SQL failed", "attempt", attempt, "sql", plan.SQL, "error", err)
			messages = appendCorrection(messages, response.Content,
				fmt.Sprintf("Запрос завершился ошибкой: %v. Исправь SQL и верни JSON снова.", err))
			continue
		}

		answer.SQL = plan.SQL
		answer.Explanation = plan.Explanation
		answer.Result = result

		utils.Info("Analyst answered",
			"attempts", attempt,
			"rows", len(result.Rows))
		return answer, nil
	}

	return answer, fmt.Errorf("analyst failed after %d attempts: %w", maxAttempts, lastErr)
}

// appendCorrection добавляет ответ модели и указание на ошибку в диалог.
func appendCorrection(messages []llm.Message, modelReply, correction string) []llm.Message {
	messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: modelReply})
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: correction})
	return messages
}
