package std

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ilkoid/praktika-ai/pkg/scrape"
	"github.com/ilkoid/praktika-ai/pkg/tools"
)

// maxPageTextChars ограничивает текст страницы в результате инструмента:
// результат попадает в контекст модели целиком.
const maxPageTextChars = 6000

// WebFetchTool — загрузка веб-страницы и извлечение текста.
//
// Отдаёт модели заголовок и видимый текст без разметки. Длинные
// страницы обрезаются по maxPageTextChars.
type WebFetchTool struct {
	fetcher *scrape.Fetcher
}

// NewWebFetchTool создает инструмент загрузки страниц.
func NewWebFetchTool(fetcher *scrape.Fetcher) *WebFetchTool {
	return &WebFetchTool{fetcher: fetcher}
}

// Definition возвращает определение инструмента для function calling.
func (t *WebFetchTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "web_fetch",
		Description: "Загрузить веб-страницу и получить её текст без HTML разметки. Используй чтобы прочитать содержимое URL, который дал пользователь.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "Полный URL страницы, включая схему (https://...)",
				},
			},
			"required": []string{"url"},
		},
	}
}

// Execute выполняет инструмент согласно контракту "Raw In, String Out".
func (t *WebFetchTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return marshalToolError(fmt.Sprintf("невалидные аргументы: %v", err), "INVALID_ARGS")
	}
	if !strings.HasPrefix(args.URL, "http://") && !strings.HasPrefix(args.URL, "https://") {
		return marshalToolError(fmt.Sprintf("невалидный URL: '%s'", args.URL), "INVALID_URL")
	}

	doc, err := t.fetcher.FetchHTML(ctx, args.URL)
	if err != nil {
		return marshalToolError(fmt.Sprintf("страница недоступна: %v", err), "FETCH_FAILED")
	}

	text := scrape.ExtractText(doc)
	truncated := len(text) > maxPageTextChars
	text = scrape.TruncateText(text, maxPageTextChars)

	result := map[string]interface{}{
		"url":       args.URL,
		"title":     scrape.ExtractTitle(doc),
		"text":      text,
		"truncated": truncated,
	}

	data, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
