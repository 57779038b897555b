package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/ilkoid/praktika-ai/pkg/config"
	"github.com/ilkoid/praktika-ai/pkg/llm"
	"github.com/ilkoid/praktika-ai/pkg/tools"
)

// mockHTTP реализует HTTPClient поверх функции.
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

func testClient(t *testing.T, fn func(req *http.Request) (*http.Response, error)) *Client {
	t.Helper()
	return NewClient(
		config.ModelDef{Provider: "ollama", ModelName: "llama3.2"},
		WithHTTPClient(&mockHTTP{fn: fn}),
		WithRateLimit(60000, 100), // тесты не должны ждать лимитер
	)
}

// TestNewClient_Defaults тестирует дефолтные значения клиента.
func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(config.ModelDef{Provider: "ollama", ModelName: "llama3.2"})

	if c.baseURL != DefaultBaseURL {
		t.Errorf("expected default base url, got %s", c.baseURL)
	}
	if c.model != "llama3.2" {
		t.Errorf("expected model llama3.2, got %s", c.model)
	}
	if c.retryAttempts != 3 {
		t.Errorf("expected 3 retry attempts, got %d", c.retryAttempts)
	}
}

// TestGenerate тестирует нестриминговый chat запрос и маппинг ответа.
func TestGenerate(t *testing.T) {
	var captured chatRequest

	client := testClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/chat" {
			t.Errorf("expected path /api/chat, got %s", req.URL.Path)
		}
		if req.Header.Get("Authorization") != "" {
			t.Error("expected no auth header without api key")
		}
		body, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		return jsonResponse(200, `{
			"model": "llama3.2",
			"message": {"role": "assistant", "content": "Hello there"},
			"done": true,
			"eval_count": 12
		}`), nil
	})

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "You are helpful"},
		{Role: llm.RoleUser, Content: "Hi"},
	}

	result, err := client.Generate(context.Background(), messages,
		llm.WithTemperature(0), llm.WithMaxTokens(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Role != llm.RoleAssistant || result.Content != "Hello there" {
		t.Errorf("unexpected result: %+v", result)
	}

	if captured.Stream {
		t.Error("expected stream=false for Generate")
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Errorf("unexpected wire messages: %+v", captured.Messages)
	}

	// Явный 0 уходит на сервер: map не теряет zero values
	temp, ok := captured.Options["temperature"]
	if !ok {
		t.Fatal("expected temperature in options")
	}
	if temp.(float64) != 0 {
		t.Errorf("expected temperature 0, got %v", temp)
	}
	if captured.Options["num_predict"].(float64) != 100 {
		t.Errorf("expected num_predict 100, got %v", captured.Options["num_predict"])
	}
}

// TestGenerate_ToolCalls тестирует конвертацию tools и синтез id вызовов.
func TestGenerate_ToolCalls(t *testing.T) {
	var captured chatRequest

	client := testClient(t, func(req *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(body, &captured)
		return jsonResponse(200, `{
			"model": "llama3.2",
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [
					{"function": {"name": "current_weather", "arguments": {"city": "Bratislava"}}}
				]
			},
			"done": true
		}`), nil
	})

	toolDefs := []tools.ToolDefinition{
		{
			Name:        "current_weather",
			Description: "Get current weather",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"city": map[string]any{"type": "string"},
				},
				"required": []string{"city"},
			},
		},
	}

	result, err := client.Generate(context.Background(),
		[]llm.Message{{Role: llm.RoleUser, Content: "weather in Bratislava?"}}, toolDefs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(captured.Tools) != 1 || captured.Tools[0].Function.Name != "current_weather" {
		t.Errorf("unexpected wire tools: %+v", captured.Tools)
	}

	if len(result.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(result.ToolCalls))
	}
	tc := result.ToolCalls[0]
	if tc.ID != "call_1" {
		t.Errorf("expected synthesized id call_1, got %s", tc.ID)
	}
	if tc.Name != "current_weather" {
		t.Errorf("expected tool name current_weather, got %s", tc.Name)
	}
	// Аргументы-объект становятся JSON строкой
	var args map[string]string
	if err := json.Unmarshal([]byte(tc.Args), &args); err != nil {
		t.Fatalf("tool args are not valid json: %v", err)
	}
	if args["city"] != "Bratislava" {
		t.Errorf("expected city Bratislava, got %v", args)
	}
}

// TestGenerate_FormatJSON тестирует сериализацию format поля.
func TestGenerate_FormatJSON(t *testing.T) {
	var captured chatRequest

	client := testClient(t, func(req *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(body, &captured)
		return jsonResponse(200, `{"message": {"role": "assistant", "content": "{}"}, "done": true}`), nil
	})

	t.Run("json mode", func(t *testing.T) {
		_, err := client.Generate(context.Background(),
			[]llm.Message{{Role: llm.RoleUser, Content: "x"}}, llm.WithJSONMode())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(captured.Format) != `"json"` {
			t.Errorf("expected format \"json\", got %s", captured.Format)
		}
	})

	t.Run("json schema passes schema object", func(t *testing.T) {
		spec := llm.MustSchema("answer", false, map[string]any{
			"type":       "object",
			"properties": map[string]any{"answer": map[string]any{"type": "string"}},
		})
		_, err := client.Generate(context.Background(),
			[]llm.Message{{Role: llm.RoleUser, Content: "x"}}, llm.WithJSONSchema(spec))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(string(captured.Format), `"object"`) {
			t.Errorf("expected schema object in format, got %s", captured.Format)
		}
	})
}

// TestGenerateStream тестирует NDJSON стриминг и порядок чанков.
func TestGenerateStream(t *testing.T) {
	stream := strings.Join([]string{
		`{"message": {"role": "assistant", "content": "Hel"}, "done": false}`,
		`{"message": {"role": "assistant", "content": "lo"}, "done": false}`,
		`{"message": {"role": "assistant", "content": ""}, "done": true, "eval_count": 5, "done_reason": "stop"}`,
	}, "\n")

	client := testClient(t, func(req *http.Request) (*http.Response, error) {
		var captured chatRequest
		body, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(body, &captured)
		if !captured.Stream {
			t.Error("expected stream=true")
		}
		return jsonResponse(200, stream), nil
	})

	var chunks []llm.StreamChunk
	result, err := client.GenerateStream(context.Background(),
		[]llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		func(ch llm.StreamChunk) { chunks = append(chunks, ch) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Content != "Hello" {
		t.Errorf("expected assembled content Hello, got %q", result.Content)
	}

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks (2 content + done), got %d", len(chunks))
	}
	if chunks[0].Type != llm.ChunkContent || chunks[0].Delta != "Hel" {
		t.Errorf("unexpected first chunk: %+v", chunks[0])
	}
	if chunks[1].Content != "Hello" {
		t.Errorf("expected accumulated content in second chunk, got %q", chunks[1].Content)
	}
	last := chunks[len(chunks)-1]
	if last.Type != llm.ChunkDone || !last.Done {
		t.Errorf("expected done chunk last, got %+v", last)
	}
}

// TestGenerateStream_Thinking тестирует обработку thinking дельт.
func TestGenerateStream_Thinking(t *testing.T) {
	stream := strings.Join([]string{
		`{"message": {"role": "assistant", "content": "", "thinking": "hmm"}, "done": false}`,
		`{"message": {"role": "assistant", "content": "42"}, "done": false}`,
		`{"message": {"role": "assistant", "content": ""}, "done": true}`,
	}, "\n")

	client := testClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, stream), nil
	})

	var thinking, content int
	_, err := client.GenerateStream(context.Background(),
		[]llm.Message{{Role: llm.RoleUser, Content: "?"}},
		func(ch llm.StreamChunk) {
			switch ch.Type {
			case llm.ChunkThinking:
				thinking++
			case llm.ChunkContent:
				content++
			}
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if thinking != 1 || content != 1 {
		t.Errorf("expected 1 thinking and 1 content chunk, got %d/%d", thinking, content)
	}
}

// TestGenerateStream_Disabled тестирует fallback на sync режим.
func TestGenerateStream_Disabled(t *testing.T) {
	client := testClient(t, func(req *http.Request) (*http.Response, error) {
		var captured chatRequest
		body, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(body, &captured)
		if captured.Stream {
			t.Error("expected sync request when streaming disabled")
		}
		return jsonResponse(200, `{"message": {"role": "assistant", "content": "full answer"}, "done": true}`), nil
	})

	var chunks []llm.StreamChunk
	result, err := client.GenerateStream(context.Background(),
		[]llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		func(ch llm.StreamChunk) { chunks = append(chunks, ch) },
		llm.WithStream(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content != "full answer" {
		t.Errorf("unexpected content: %q", result.Content)
	}
	if len(chunks) != 2 || chunks[0].Type != llm.ChunkContent || chunks[1].Type != llm.ChunkDone {
		t.Errorf("expected content+done chunks, got %+v", chunks)
	}
}

// TestComplete тестирует /api/generate режим.
func TestComplete(t *testing.T) {
	client := testClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/generate" {
			t.Errorf("expected path /api/generate, got %s", req.URL.Path)
		}
		return jsonResponse(200, `{"model": "llama3.2", "response": "four", "done": true, "eval_count": 2}`), nil
	})

	result, err := client.Complete(context.Background(), "2+2?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "four" {
		t.Errorf("expected response four, got %q", result)
	}
}

// TestTags тестирует парсинг списка моделей.
func TestTags(t *testing.T) {
	client := testClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/tags" {
			t.Errorf("expected path /api/tags, got %s", req.URL.Path)
		}
		if req.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", req.Method)
		}
		return jsonResponse(200, `{
			"models": [
				{
					"name": "llama3.2:latest",
					"model": "llama3.2:latest",
					"modified_at": "2025-11-20T14:56:49.277302595+01:00",
					"size": 2019393189,
					"digest": "a80c4f17acd5",
					"details": {"format": "gguf", "family": "llama", "parameter_size": "3.2B", "quantization_level": "Q4_K_M"}
				}
			]
		}`), nil
	})

	models, err := client.Tags(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 1 {
		t.Fatalf("expected 1 model, got %d", len(models))
	}
	if models[0].Name != "llama3.2:latest" {
		t.Errorf("unexpected model name: %s", models[0].Name)
	}
	if models[0].Details.Family != "llama" {
		t.Errorf("unexpected family: %s", models[0].Details.Family)
	}
}

// TestDoJSON_RetryOn5xx тестирует retry на серверных ошибках.
func TestDoJSON_RetryOn5xx(t *testing.T) {
	attempts := 0
	client := testClient(t, func(req *http.Request) (*http.Response, error) {
		attempts++
		if attempts < 3 {
			return jsonResponse(500, `{"error": "loading model"}`), nil
		}
		return jsonResponse(200, `{"version": "0.5.4"}`), nil
	})

	version, err := client.Version(context.Background())
	if err != nil {
		t.Fatalf("unexpected error after retries: %v", err)
	}
	if version != "0.5.4" {
		t.Errorf("expected version 0.5.4, got %s", version)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

// TestDoJSON_ClientErrorNotRetried тестирует что 4xx не ретраится.
func TestDoJSON_ClientErrorNotRetried(t *testing.T) {
	attempts := 0
	client := testClient(t, func(req *http.Request) (*http.Response, error) {
		attempts++
		return jsonResponse(404, `{"error": "model 'ghost' not found"}`), nil
	})

	_, err := client.Tags(context.Background())
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if attempts != 1 {
		t.Errorf("expected single attempt for 4xx, got %d", attempts)
	}
	if client.ClassifyError(err) != ErrModelNotFound {
		t.Errorf("expected model_not_found classification, got %s", client.ClassifyError(err))
	}
}

// TestAuthHeader тестирует Bearer заголовок при заданном ключе.
func TestAuthHeader(t *testing.T) {
	client := NewClient(
		config.ModelDef{Provider: "ollama", ModelName: "llama3.2", APIKey: "secret"},
		WithHTTPClient(&mockHTTP{fn: func(req *http.Request) (*http.Response, error) {
			if got := req.Header.Get("Authorization"); got != "Bearer secret" {
				t.Errorf("expected bearer header, got %q", got)
			}
			return jsonResponse(200, `{"version": "0.5.4"}`), nil
		}}),
		WithRateLimit(60000, 100),
	)

	if _, err := client.Version(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestClassifyError тестирует классификацию ошибок по тексту.
func TestClassifyError(t *testing.T) {
	client := NewClient(config.ModelDef{Provider: "ollama", ModelName: "m"})

	tests := []struct {
		name     string
		err      error
		expected ErrorType
	}{
		{"nil error", nil, ErrUnknown},
		{"auth 401", errors.New("ollama api error: status 401, body: unauthorized"), ErrAuthFailed},
		{"timeout", errors.New("context deadline exceeded"), ErrTimeout},
		{"connection refused", fmt.Errorf("Post \"http://localhost:11434/api/chat\": dial tcp: connection refused"), ErrNetwork},
		{"rate limit", errors.New("status 429 Too Many Requests"), ErrRateLimit},
		{"model not found", errors.New("ollama api error: status 404, body: model not found"), ErrModelNotFound},
		{"other", errors.New("something odd"), ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := client.ClassifyError(tt.err); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

// TestStripDataURI тестирует очистку data-uri префикса.
func TestStripDataURI(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"data uri", "data:image/jpeg;base64,AAAA", "AAAA"},
		{"raw base64", "AAAA", "AAAA"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripDataURI(tt.input); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
