package std

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ilkoid/praktika-ai/pkg/scrape"
	"github.com/ilkoid/praktika-ai/pkg/tools"
)

// PageTitleTool — заголовок веб-страницы.
//
// Лёгкая версия web_fetch для случаев, когда нужен только <title>:
// дешевле по токенам и быстрее для списков URL.
type PageTitleTool struct {
	fetcher *scrape.Fetcher
}

// NewPageTitleTool создает инструмент заголовков страниц.
func NewPageTitleTool(fetcher *scrape.Fetcher) *PageTitleTool {
	return &PageTitleTool{fetcher: fetcher}
}

// Definition возвращает определение инструмента для function calling.
func (t *PageTitleTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "page_title",
		Description: "Получить заголовок (тег title) веб-страницы по URL. Используй когда нужно узнать название страницы, не читая её целиком.",
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
func (t *PageTitleTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return marshalToolError(fmt.Sprintf("невалидные аргументы: %v", err), "INVALID_ARGS")
	}
	if !strings.HasPrefix(args.URL, "http://") && !strings.HasPrefix(args.URL, "https://") {
		return marshalToolError(fmt.Sprintf("невалидный URL: '%s'", args.URL), "INVALID_URL")
	}

	title, err := t.fetcher.Title(ctx, args.URL)
	if err != nil {
		return marshalToolError(fmt.Sprintf("заголовок недоступен: %v", err), "FETCH_FAILED")
	}

	data, err := json.Marshal(map[string]string{
		"url":   args.URL,
		"title": title,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
