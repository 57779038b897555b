package std

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ilkoid/praktika-ai/pkg/tools"
)

// CurrentTimeTool — текущая дата и время.
//
// У модели нет часов: без инструмента она отвечает датой из обучающих
// данных. Классический первый инструмент для демонстрации function calling.
type CurrentTimeTool struct{}

// NewCurrentTimeTool создает инструмент времени.
func NewCurrentTimeTool() *CurrentTimeTool {
	return &CurrentTimeTool{}
}

// Definition возвращает определение инструмента для function calling.
func (t *CurrentTimeTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "current_time",
		Description: "Получить текущую дату и время. Используй когда пользователь спрашивает который час, какое сегодня число или день недели.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"timezone": map[string]interface{}{
					"type":        "string",
					"description": "IANA таймзона (например, 'Europe/Bratislava', 'UTC'). По умолчанию локальная зона сервера.",
				},
			},
			"required": []string{},
		},
	}
}

// Execute выполняет инструмент согласно контракту "Raw In, String Out".
func (t *CurrentTimeTool) Execute(_ context.Context, argsJSON string) (string, error) {
	var args struct {
		Timezone string `json:"timezone"`
	}
	// Пустые или невалидные аргументы допустимы: зона по умолчанию
	_ = json.Unmarshal([]byte(argsJSON), &args)

	loc := time.Local
	if args.Timezone != "" {
		parsed, err := time.LoadLocation(args.Timezone)
		if err != nil {
			return marshalToolError(fmt.Sprintf("неизвестная таймзона '%s'", args.Timezone), "INVALID_TIMEZONE")
		}
		loc = parsed
	}

	now := time.Now().In(loc)

	result := map[string]interface{}{
		"datetime": now.Format(time.RFC3339),
		"date":     now.Format("2006-01-02"),
		"time":     now.Format("15:04:05"),
		"weekday":  now.Weekday().String(),
		"timezone": loc.String(),
		"unix":     now.Unix(),
	}

	data, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
