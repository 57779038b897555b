package std

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ilkoid/praktika-ai/pkg/dataset"
	"github.com/ilkoid/praktika-ai/pkg/tools"
	"github.com/ilkoid/praktika-ai/pkg/utils"
)

// DatasetQueryTool — SQL запросы к загруженным CSV датасетам.
//
// Схема базы вшивается в описание инструмента при создании, чтобы
// модель сразу писала запросы по реальным таблицам. Разрешён только
// SELECT: ограничение обеспечивает pkg/dataset.
type DatasetQueryTool struct {
	store  *dataset.Store
	schema string
}

// NewDatasetQueryTool создает инструмент запросов к датасетам.
// schema — результат store.Schema(), попадает в описание инструмента.
func NewDatasetQueryTool(store *dataset.Store, schema string) *DatasetQueryTool {
	return &DatasetQueryTool{store: store, schema: schema}
}

// Definition возвращает определение инструмента для function calling.
func (t *DatasetQueryTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name: "dataset_query",
		Description: fmt.Sprintf(
			"Выполнить SELECT запрос к SQLite базе с загруженными данными и получить результат таблицей. Схема базы:\n%s",
			t.schema),
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "SQL запрос. Только SELECT (включая WITH); диалект SQLite.",
				},
			},
			"required": []string{"query"},
		},
	}
}

// Execute выполняет инструмент согласно контракту "Raw In, String Out".
//
// Ошибка SQL возвращается моделью как данные: LLM читает текст ошибки
// и переписывает запрос в следующей итерации.
func (t *DatasetQueryTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return marshalToolError(fmt.Sprintf("невалидные аргументы: %v", err), "INVALID_ARGS")
	}
	if args.Query == "" {
		return marshalToolError("параметр query обязателен", "INVALID_ARGS")
	}

	result, err := t.store.Query(ctx, args.Query)
	if err != nil {
		return marshalToolError(fmt.Sprintf("запрос не выполнен: %v", err), "QUERY_FAILED")
	}

	utils.Debug("Dataset query tool executed",
		"rows_count", len(result.Rows),
		"truncated", result.Truncated)

	data, err := json.Marshal(map[string]interface{}{
		"columns":   result.Columns,
		"rows":      result.Rows,
		"row_count": len(result.Rows),
		"truncated": result.Truncated,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
