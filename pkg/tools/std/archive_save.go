package std

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ilkoid/praktika-ai/pkg/tools"
	"github.com/ilkoid/praktika-ai/pkg/utils"
)

// ReportArchiver — срез archive.Store для сохранения отчётов.
type ReportArchiver interface {
	SaveReport(ctx context.Context, name string, data []byte) (string, error)
}

// ArchiveSaveTool сохраняет текстовый артефакт в S3 архив.
//
// Даёт модели возможность складывать результаты работы (отчёты,
// сводки) в постоянное хранилище вместо вывода в чат.
type ArchiveSaveTool struct {
	archiver ReportArchiver
}

// NewArchiveSaveTool создает инструмент сохранения в архив.
func NewArchiveSaveTool(archiver ReportArchiver) *ArchiveSaveTool {
	return &ArchiveSaveTool{archiver: archiver}
}

// Definition возвращает определение инструмента для function calling.
func (t *ArchiveSaveTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "archive_save",
		Description: "Сохранить текстовый документ (отчёт, сводку, результат анализа) в постоянный S3 архив. Возвращает ключ сохранённого объекта.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Имя файла с расширением, например 'report.md' или 'summary.txt'",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Полное содержимое документа",
				},
			},
			"required": []string{"name", "content"},
		},
	}
}

// Execute выполняет инструмент согласно контракту "Raw In, String Out".
func (t *ArchiveSaveTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return marshalToolError(fmt.Sprintf("невалидные аргументы: %v", err), "INVALID_ARGS")
	}
	if args.Name == "" || args.Content == "" {
		return marshalToolError("параметры name и content обязательны", "INVALID_ARGS")
	}

	key, err := t.archiver.SaveReport(ctx, args.Name, []byte(args.Content))
	if err != nil {
		return marshalToolError(fmt.Sprintf("сохранение не удалось: %v", err), "ARCHIVE_FAILED")
	}

	utils.Info("Archive save tool executed", "key", key, "size", len(args.Content))

	data, err := json.Marshal(map[string]interface{}{
		"key":  key,
		"size": len(args.Content),
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
