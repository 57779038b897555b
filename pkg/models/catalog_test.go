package models

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/ilkoid/praktika-ai/pkg/config"
	"github.com/ilkoid/praktika-ai/pkg/llm/ollama"
)

type mockHTTP struct {
	fn func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTP) Do(req *http.Request) (*http.Response, error) { return m.fn(req) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

const openRouterSample = `{
	"data": [
		{
			"id": "openai/gpt-4o-mini",
			"name": "OpenAI: GPT-4o mini",
			"context_length": 128000,
			"pricing": {"prompt": "0.00000015", "completion": "0.0000006"}
		},
		{
			"id": "deepseek/deepseek-chat",
			"name": "DeepSeek V3",
			"context_length": 64000,
			"pricing": {"prompt": "0.00000027", "completion": "0.0000011"}
		}
	]
}`

const ollamaTagsSample = `{
	"models": [
		{
			"name": "llama3.2:latest",
			"model": "llama3.2:latest",
			"size": 2019393189,
			"digest": "a80c4f17acd5",
			"details": {"format": "gguf", "family": "llama", "parameter_size": "3.2B", "quantization_level": "Q4_K_M"}
		}
	]
}`

func localClient(fn func(req *http.Request) (*http.Response, error)) *ollama.Client {
	return ollama.NewClient(
		config.ModelDef{Provider: "ollama", ModelName: "llama3.2"},
		ollama.WithHTTPClient(&mockHTTP{fn: fn}),
		ollama.WithRateLimit(60000, 100),
	)
}

// TestCatalog_FetchOpenRouter тестирует парсинг каталога OpenRouter.
func TestCatalog_FetchOpenRouter(t *testing.T) {
	cat := NewCatalog(
		WithHTTPClient(&mockHTTP{fn: func(req *http.Request) (*http.Response, error) {
			if !strings.HasSuffix(req.URL.Path, "/models") {
				t.Errorf("unexpected path: %s", req.URL.Path)
			}
			return jsonResponse(200, openRouterSample), nil
		}}),
		WithUserAgent("praktika-test/1.0"),
	)

	entries, err := cat.FetchOpenRouter(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.ID != "openai/gpt-4o-mini" || first.Source != "openrouter" {
		t.Errorf("unexpected entry: %+v", first)
	}
	if first.ContextLength != 128000 {
		t.Errorf("unexpected context length: %d", first.ContextLength)
	}
	// 0.00000015 USD за токен = 0.15 USD за 1M
	if first.PromptPrice < 0.149 || first.PromptPrice > 0.151 {
		t.Errorf("unexpected prompt price: %f", first.PromptPrice)
	}
}

// TestCatalog_FetchMerged тестирует объединение двух источников и сортировку.
func TestCatalog_FetchMerged(t *testing.T) {
	cat := NewCatalog(
		WithHTTPClient(&mockHTTP{fn: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(200, openRouterSample), nil
		}}),
		WithLocalModels(localClient(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(200, ollamaTagsSample), nil
		})),
	)

	entries, err := cat.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	// Сортировка: ollama раньше openrouter, внутри источника по ID
	if entries[0].Source != "ollama" || entries[0].ID != "llama3.2:latest" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].ID != "deepseek/deepseek-chat" {
		t.Errorf("unexpected second entry: %+v", entries[1])
	}
	if !strings.Contains(entries[0].Name, "3.2B") {
		t.Errorf("expected parameter size in local model name, got %q", entries[0].Name)
	}
}

// TestCatalog_PartialFailure тестирует частичный каталог при отказе источника.
func TestCatalog_PartialFailure(t *testing.T) {
	cat := NewCatalog(
		WithHTTPClient(&mockHTTP{fn: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(503, `{"error": "maintenance"}`), nil
		}}),
		WithLocalModels(localClient(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(200, ollamaTagsSample), nil
		})),
	)

	entries, err := cat.Fetch(context.Background())
	if err != nil {
		t.Fatalf("expected partial catalog, got error: %v", err)
	}
	if len(entries) != 1 || entries[0].Source != "ollama" {
		t.Errorf("expected only ollama entries, got %+v", entries)
	}
}

// TestCatalog_AllSourcesFail тестирует ошибку когда не ответил никто.
func TestCatalog_AllSourcesFail(t *testing.T) {
	cat := NewCatalog(
		WithHTTPClient(&mockHTTP{fn: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(500, `{}`), nil
		}}),
	)

	if _, err := cat.Fetch(context.Background()); err == nil {
		t.Fatal("expected error when every source fails")
	}
}

// TestFilter тестирует фильтрацию по подстроке.
func TestFilter(t *testing.T) {
	entries := []CatalogEntry{
		{ID: "openai/gpt-4o-mini", Name: "GPT-4o mini"},
		{ID: "deepseek/deepseek-chat", Name: "DeepSeek V3"},
		{ID: "llama3.2:latest", Name: "llama3.2"},
	}

	tests := []struct {
		name     string
		query    string
		expected int
	}{
		{"empty returns all", "", 3},
		{"by id fragment", "deepseek", 1},
		{"case insensitive name", "GPT", 1},
		{"no matches", "claude", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(entries, tt.query)
			if len(got) != tt.expected {
				t.Errorf("expected %d entries, got %d", tt.expected, len(got))
			}
		})
	}
}

// TestRenderTable тестирует наличие всех колонок и значений в таблице.
func TestRenderTable(t *testing.T) {
	out := RenderTable([]CatalogEntry{
		{ID: "openai/gpt-4o-mini", Source: "openrouter", ContextLength: 128000, PromptPrice: 0.15, CompletionPrice: 0.6},
		{ID: "llama3.2:latest", Source: "ollama"},
	})

	for _, want := range []string{"MODEL", "SOURCE", "openai/gpt-4o-mini", "128,000", "$0.15", "llama3.2:latest", "free", "-"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}

	t.Run("empty catalog", func(t *testing.T) {
		if got := RenderTable(nil); got != "no models found" {
			t.Errorf("unexpected output: %q", got)
		}
	})
}
