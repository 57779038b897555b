package std

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ilkoid/praktika-ai/pkg/config"
	"github.com/ilkoid/praktika-ai/pkg/dataset"
	"github.com/ilkoid/praktika-ai/pkg/llm"
	"github.com/ilkoid/praktika-ai/pkg/models"
	"github.com/ilkoid/praktika-ai/pkg/scrape"
	"github.com/ilkoid/praktika-ai/pkg/tools"
)

type mockHTTP struct {
	fn func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTP) Do(req *http.Request) (*http.Response, error) { return m.fn(req) }

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// decodeResult парсит JSON результат инструмента.
func decodeResult(t *testing.T, raw string) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		t.Fatalf("tool result is not valid json: %v\n%s", err, raw)
	}
	return result
}

// TestDefinitionsAreValid тестирует что все инструменты проходят валидацию реестра.
func TestDefinitionsAreValid(t *testing.T) {
	fetcher := scrape.NewFetcher(config.HTTPConfig{})

	toolset := []tools.Tool{
		NewCurrentTimeTool(),
		NewCurrentWeatherTool(),
		NewWebFetchTool(fetcher),
		NewPageTitleTool(fetcher),
		NewDatasetQueryTool(nil, "TABLE users (name TEXT) -- 0 rows"),
		NewLLMPingTool(models.NewRegistry(), &config.AppConfig{}),
		NewArchiveSaveTool(&stubArchiver{}),
	}

	registry := tools.NewRegistry()
	for _, tool := range toolset {
		if err := registry.Register(tool); err != nil {
			t.Errorf("tool %s failed validation: %v", tool.Definition().Name, err)
		}
	}

	if len(registry.Names()) != len(toolset) {
		t.Errorf("expected %d registered tools, got %v", len(toolset), registry.Names())
	}
}

// TestCurrentTime тестирует инструмент времени.
func TestCurrentTime(t *testing.T) {
	tool := NewCurrentTimeTool()

	t.Run("default timezone", func(t *testing.T) {
		raw, err := tool.Execute(context.Background(), "{}")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		result := decodeResult(t, raw)
		if result["datetime"] == "" || result["weekday"] == "" {
			t.Errorf("incomplete result: %v", result)
		}
	})

	t.Run("explicit timezone", func(t *testing.T) {
		raw, err := tool.Execute(context.Background(), `{"timezone": "UTC"}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		result := decodeResult(t, raw)
		if result["timezone"] != "UTC" {
			t.Errorf("expected UTC, got %v", result["timezone"])
		}
	})

	t.Run("unknown timezone is a data error", func(t *testing.T) {
		raw, err := tool.Execute(context.Background(), `{"timezone": "Mars/Olympus"}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		result := decodeResult(t, raw)
		if result["error_type"] != "INVALID_TIMEZONE" {
			t.Errorf("expected INVALID_TIMEZONE, got %v", result)
		}
	})
}

// TestCurrentWeather тестирует двухшаговый запрос погоды.
func TestCurrentWeather(t *testing.T) {
	tool := NewCurrentWeatherTool(
		WithWeatherHTTPClient(&mockHTTP{fn: func(req *http.Request) (*http.Response, error) {
			if strings.Contains(req.URL.Host+req.URL.Path, "geocoding") {
				if got := req.URL.Query().Get("name"); got != "Bratislava" {
					t.Errorf("unexpected geocoding query: %q", got)
				}
				return response(200, `{"results": [{"name": "Bratislava", "latitude": 48.14816, "longitude": 17.10674, "country": "Slovakia"}]}`), nil
			}
			if got := req.URL.Query().Get("latitude"); got != "48.14816" {
				t.Errorf("unexpected forecast latitude: %q", got)
			}
			return response(200, `{"current": {"time": "2025-11-20T15:00", "temperature_2m": 8.4, "relative_humidity_2m": 71, "wind_speed_10m": 12.5, "weather_code": 3}}`), nil
		}}),
	)

	raw, err := tool.Execute(context.Background(), `{"city": "Bratislava"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := decodeResult(t, raw)

	if result["city"] != "Bratislava" || result["country"] != "Slovakia" {
		t.Errorf("unexpected location: %v", result)
	}
	if result["temperature_c"].(float64) != 8.4 {
		t.Errorf("unexpected temperature: %v", result["temperature_c"])
	}
	if result["conditions"] != "overcast" {
		t.Errorf("expected overcast for code 3, got %v", result["conditions"])
	}
}

// TestCurrentWeather_CityNotFound тестирует ошибку-как-данные.
func TestCurrentWeather_CityNotFound(t *testing.T) {
	tool := NewCurrentWeatherTool(
		WithWeatherHTTPClient(&mockHTTP{fn: func(req *http.Request) (*http.Response, error) {
			return response(200, `{"results": []}`), nil
		}}),
	)

	raw, err := tool.Execute(context.Background(), `{"city": "Atlantis"}`)
	if err != nil {
		t.Fatalf("data errors must not be go errors: %v", err)
	}
	result := decodeResult(t, raw)
	if result["error_type"] != "CITY_NOT_FOUND" {
		t.Errorf("expected CITY_NOT_FOUND, got %v", result)
	}
}

// TestDescribeWeatherCode тестирует маппинг WMO кодов.
func TestDescribeWeatherCode(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{0, "clear sky"},
		{3, "overcast"},
		{61, "rain"},
		{95, "thunderstorm"},
		{42, "unknown (code 42)"},
	}

	for _, tt := range tests {
		if got := describeWeatherCode(tt.code); got != tt.expected {
			t.Errorf("code %d: expected %q, got %q", tt.code, tt.expected, got)
		}
	}
}

func webFetcher(fn func(req *http.Request) (*http.Response, error)) *scrape.Fetcher {
	return scrape.NewFetcher(
		config.HTTPConfig{},
		scrape.WithHTTPClient(&mockHTTP{fn: fn}),
		scrape.WithRateLimit(60000, 100),
	)
}

// TestWebFetch тестирует загрузку страницы инструментом.
func TestWebFetch(t *testing.T) {
	page := `<html><head><title>Go Blog</title></head><body><p>Hello readers</p></body></html>`
	tool := NewWebFetchTool(webFetcher(func(req *http.Request) (*http.Response, error) {
		return response(200, page), nil
	}))

	raw, err := tool.Execute(context.Background(), `{"url": "https://go.dev/blog/"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := decodeResult(t, raw)

	if result["title"] != "Go Blog" {
		t.Errorf("unexpected title: %v", result["title"])
	}
	if !strings.Contains(result["text"].(string), "Hello readers") {
		t.Errorf("unexpected text: %v", result["text"])
	}
	if result["truncated"].(bool) {
		t.Error("short page must not be truncated")
	}

	t.Run("rejects non-http url", func(t *testing.T) {
		raw, err := tool.Execute(context.Background(), `{"url": "ftp://example.com"}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decodeResult(t, raw)["error_type"] != "INVALID_URL" {
			t.Error("expected INVALID_URL")
		}
	})
}

// TestPageTitle тестирует инструмент заголовков.
func TestPageTitle(t *testing.T) {
	tool := NewPageTitleTool(webFetcher(func(req *http.Request) (*http.Response, error) {
		return response(200, `<html><head><title>Docs</title></head><body></body></html>`), nil
	}))

	raw, err := tool.Execute(context.Background(), `{"url": "https://example.com/docs"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decodeResult(t, raw)["title"] != "Docs" {
		t.Errorf("unexpected result: %s", raw)
	}
}

// TestDatasetQueryTool тестирует SQL инструмент поверх in-memory базы.
func TestDatasetQueryTool(t *testing.T) {
	store, err := dataset.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	csvPath := filepath.Join(t.TempDir(), "users.csv")
	if err := os.WriteFile(csvPath, []byte("name,age\nAlice,31\nBob,27\n"), 0o644); err != nil {
		t.Fatalf("failed to write csv: %v", err)
	}
	if _, err := store.LoadCSV(context.Background(), csvPath, ""); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	schema, err := store.Schema(context.Background())
	if err != nil {
		t.Fatalf("schema failed: %v", err)
	}

	tool := NewDatasetQueryTool(store, schema)

	if !strings.Contains(tool.Definition().Description, "TABLE users") {
		t.Error("schema must be embedded in tool description")
	}

	raw, err := tool.Execute(context.Background(), `{"query": "SELECT name FROM users ORDER BY age"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := decodeResult(t, raw)
	if result["row_count"].(float64) != 2 {
		t.Errorf("expected 2 rows, got %v", result["row_count"])
	}

	t.Run("sql error is a data error", func(t *testing.T) {
		raw, err := tool.Execute(context.Background(), `{"query": "SELECT missing FROM users"}`)
		if err != nil {
			t.Fatalf("sql errors must be data errors: %v", err)
		}
		if decodeResult(t, raw)["error_type"] != "QUERY_FAILED" {
			t.Errorf("expected QUERY_FAILED, got %s", raw)
		}
	})

	t.Run("write query rejected", func(t *testing.T) {
		raw, err := tool.Execute(context.Background(), `{"query": "DELETE FROM users"}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decodeResult(t, raw)["error_type"] != "QUERY_FAILED" {
			t.Errorf("expected QUERY_FAILED, got %s", raw)
		}
	})
}

// TestLLMPing тестирует проверку облачного провайдера.
func TestLLMPing(t *testing.T) {
	cfg := &config.AppConfig{
		Models: config.ModelsConfig{DefaultChat: "chat"},
	}

	registry := models.NewRegistry()
	def := config.ModelDef{Provider: "openai", ModelName: "gpt-4o-mini", APIKey: "sk-test", BaseURL: "https://api.openai.com/v1"}
	_ = registry.Register("chat", def, &pingStubProvider{})

	t.Run("available", func(t *testing.T) {
		tool := NewLLMPingTool(registry, cfg, WithPingHTTPClient(&mockHTTP{fn: func(req *http.Request) (*http.Response, error) {
			if req.URL.Path != "/v1/models" {
				t.Errorf("unexpected path: %s", req.URL.Path)
			}
			if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
				t.Errorf("unexpected auth header: %q", got)
			}
			return response(200, `{"data": []}`), nil
		}}))

		raw, err := tool.Execute(context.Background(), "{}")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		result := decodeResult(t, raw)
		if result["available"] != true || result["status"] != "OK" {
			t.Errorf("unexpected result: %v", result)
		}
	})

	t.Run("invalid key", func(t *testing.T) {
		tool := NewLLMPingTool(registry, cfg, WithPingHTTPClient(&mockHTTP{fn: func(req *http.Request) (*http.Response, error) {
			return response(401, `{"error": "invalid key"}`), nil
		}}))

		raw, err := tool.Execute(context.Background(), "{}")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		result := decodeResult(t, raw)
		if result["available"] != false || result["error_type"] != "AUTH_ERROR" {
			t.Errorf("unexpected result: %v", result)
		}
	})

	t.Run("unknown model alias", func(t *testing.T) {
		tool := NewLLMPingTool(registry, cfg)
		raw, err := tool.Execute(context.Background(), `{"model": "ghost"}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decodeResult(t, raw)["error_type"] != "MODEL_NOT_FOUND" {
			t.Errorf("expected MODEL_NOT_FOUND, got %s", raw)
		}
	})
}

type pingStubProvider struct{}

func (p *pingStubProvider) Generate(_ context.Context, _ []llm.Message, _ ...any) (llm.Message, error) {
	return llm.Message{}, nil
}

// stubArchiver запоминает последний сохранённый отчёт.
type stubArchiver struct {
	name string
	data []byte
	err  error
}

func (a *stubArchiver) SaveReport(_ context.Context, name string, data []byte) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.name = name
	a.data = data
	return "reports/2026-03-14/" + name, nil
}

// TestArchiveSave тестирует сохранение артефакта в архив.
func TestArchiveSave(t *testing.T) {
	archiver := &stubArchiver{}
	tool := NewArchiveSaveTool(archiver)

	raw, err := tool.Execute(context.Background(), `{"name": "summary.md", "content": "# Сводка"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := decodeResult(t, raw)

	if result["key"] != "reports/2026-03-14/summary.md" {
		t.Errorf("unexpected key: %v", result["key"])
	}
	if string(archiver.data) != "# Сводка" {
		t.Errorf("unexpected archived data: %q", archiver.data)
	}

	t.Run("missing args", func(t *testing.T) {
		raw, err := tool.Execute(context.Background(), `{"name": "x.md"}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decodeResult(t, raw)["error_type"] != "INVALID_ARGS" {
			t.Errorf("expected INVALID_ARGS, got %s", raw)
		}
	})

	t.Run("storage failure is a data error", func(t *testing.T) {
		failing := NewArchiveSaveTool(&stubArchiver{err: errors.New("bucket gone")})
		raw, err := failing.Execute(context.Background(), `{"name": "x.md", "content": "y"}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decodeResult(t, raw)["error_type"] != "ARCHIVE_FAILED" {
			t.Errorf("expected ARCHIVE_FAILED, got %s", raw)
		}
	})
}
