// Реализация llm.Provider / llm.StreamingProvider через POST /api/chat.
//
// Нативный протокол отличается от OpenAI-совместимого:
//   - стриминг это NDJSON (один JSON объект на строку), не SSE
//   - format передаётся как JSON значение: строка "json" или объект схемы
//   - tool calls приходят без id, arguments — это JSON объект, не строка
//   - картинки передаются голым base64 без data-uri префикса

package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ilkoid/praktika-ai/pkg/llm"
	"github.com/ilkoid/praktika-ai/pkg/tools"
	"github.com/ilkoid/praktika-ai/pkg/utils"
)

// Wire-формат /api/chat.

type chatRequest struct {
	Model    string          `json:"model"`
	Messages []chatMessage   `json:"messages"`
	Tools    []chatTool      `json:"tools,omitempty"`
	Format   json.RawMessage `json:"format,omitempty"`
	Options  map[string]any  `json:"options,omitempty"`
	Stream   bool            `json:"stream"`
}

type chatMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Thinking  string         `json:"thinking,omitempty"`
	Images    []string       `json:"images,omitempty"`
	ToolCalls []chatToolCall `json:"tool_calls,omitempty"`
}

type chatToolCall struct {
	Function chatFunctionCall `json:"function"`
}

type chatFunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatToolFunc `json:"function"`
}

type chatToolFunc struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	CreatedAt       string      `json:"created_at"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	DoneReason      string      `json:"done_reason,omitempty"`
	TotalDuration   int64       `json:"total_duration,omitempty"`
	PromptEvalCount int         `json:"prompt_eval_count,omitempty"`
	EvalCount       int         `json:"eval_count,omitempty"`
}

// Generate выполняет нестриминговый запрос к /api/chat.
//
// args принимает в любом порядке:
//   - []tools.ToolDefinition — инструменты для Function Calling
//   - llm.GenerateOption — runtime переопределения параметров
func (c *Client) Generate(ctx context.Context, messages []llm.Message, args ...any) (llm.Message, error) {
	startTime := time.Now()

	req, err := c.buildChatRequest(messages, args, false)
	if err != nil {
		return llm.Message{}, err
	}

	utils.Debug("Ollama request started",
		"model", req.Model,
		"messages_count", len(messages),
		"tools_count", len(req.Tools))

	var resp chatResponse
	if err := c.doJSON(ctx, "chat", http.MethodPost, "/api/chat", req, &resp); err != nil {
		utils.Error("Ollama API request failed",
			"error", err,
			"model", req.Model,
			"duration_ms", time.Since(startTime).Milliseconds())
		return llm.Message{}, fmt.Errorf("ollama api error: %w", err)
	}

	result := mapFromOllama(resp.Message)

	utils.Info("Ollama response received",
		"model", req.Model,
		"tool_calls_count", len(result.ToolCalls),
		"content_length", len(result.Content),
		"eval_count", resp.EvalCount,
		"duration_ms", time.Since(startTime).Milliseconds())

	return result, nil
}

// GenerateStream выполняет запрос с потоковой передачей ответа.
//
// Тело ответа — NDJSON: объект на строку, терминальный объект несёт
// done=true и счётчики eval. Стриминговый запрос не ретраится: после
// первых полученных дельт повтор дал бы дубли в callback.
func (c *Client) GenerateStream(ctx context.Context, messages []llm.Message, callback func(llm.StreamChunk), args ...any) (llm.Message, error) {
	if callback == nil {
		callback = func(llm.StreamChunk) {}
	}

	// Fallback на синхронный режим если стриминг выключен опцией
	if !llm.IsStreamingMode(args...) {
		msg, err := c.Generate(ctx, messages, args...)
		if err != nil {
			callback(llm.StreamChunk{Type: llm.ChunkError, Error: err})
			return llm.Message{}, err
		}
		callback(llm.StreamChunk{Type: llm.ChunkContent, Content: msg.Content, Delta: msg.Content})
		callback(llm.StreamChunk{Type: llm.ChunkDone, Content: msg.Content, Done: true})
		return msg, nil
	}

	startTime := time.Now()
	thinkingOnly := llm.IsThinkingOnly(args...)

	req, err := c.buildChatRequest(messages, args, true)
	if err != nil {
		return llm.Message{}, err
	}

	utils.Debug("Ollama stream started",
		"model", req.Model,
		"messages_count", len(messages),
		"thinking_only", thinkingOnly)

	body, err := json.Marshal(req)
	if err != nil {
		return llm.Message{}, fmt.Errorf("marshal body: %w", err)
	}

	limiter := c.getOrCreateLimiter("chat")
	if err := limiter.Wait(ctx); err != nil {
		return llm.Message{}, fmt.Errorf("rate limiter wait: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, "/api/chat", body)
	if err != nil {
		callback(llm.StreamChunk{Type: llm.ChunkError, Error: err})
		return llm.Message{}, fmt.Errorf("ollama stream error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := readCapped(resp.Body, 4096)
		err := fmt.Errorf("ollama api error: status %d, body: %s", resp.StatusCode, errBody)
		callback(llm.StreamChunk{Type: llm.ChunkError, Error: err})
		return llm.Message{}, err
	}

	var (
		content    strings.Builder
		reasoning  strings.Builder
		toolCalls  []llm.ToolCall
		evalCount  int
		doneReason string
	)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var chunk chatResponse
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			parseErr := fmt.Errorf("parse stream line: %w", err)
			callback(llm.StreamChunk{Type: llm.ChunkError, Error: parseErr})
			return llm.Message{}, parseErr
		}

		if chunk.Message.Thinking != "" {
			reasoning.WriteString(chunk.Message.Thinking)
			callback(llm.StreamChunk{
				Type:             llm.ChunkThinking,
				ReasoningContent: reasoning.String(),
				Delta:            chunk.Message.Thinking,
			})
		}

		if chunk.Message.Content != "" {
			content.WriteString(chunk.Message.Content)
			if !thinkingOnly {
				callback(llm.StreamChunk{
					Type:    llm.ChunkContent,
					Content: content.String(),
					Delta:   chunk.Message.Content,
				})
			}
		}

		// Tool calls сервер отдаёт целиком, обычно в одном чанке
		for _, tc := range chunk.Message.ToolCalls {
			toolCalls = append(toolCalls, llm.ToolCall{
				ID:   fmt.Sprintf("call_%d", len(toolCalls)+1),
				Name: tc.Function.Name,
				Args: string(tc.Function.Arguments),
			})
		}

		if chunk.Done {
			evalCount = chunk.EvalCount
			doneReason = chunk.DoneReason
			break
		}
	}

	if err := scanner.Err(); err != nil {
		scanErr := fmt.Errorf("read stream: %w", err)
		callback(llm.StreamChunk{Type: llm.ChunkError, Error: scanErr})
		return llm.Message{}, scanErr
	}

	result := llm.Message{
		Role:      llm.RoleAssistant,
		Content:   content.String(),
		ToolCalls: toolCalls,
	}

	callback(llm.StreamChunk{
		Type:             llm.ChunkDone,
		Content:          result.Content,
		ReasoningContent: reasoning.String(),
		Done:             true,
	})

	utils.Info("Ollama stream completed",
		"model", req.Model,
		"content_length", len(result.Content),
		"tool_calls_count", len(result.ToolCalls),
		"eval_count", evalCount,
		"done_reason", doneReason,
		"duration_ms", time.Since(startTime).Milliseconds())

	return result, nil
}

// buildChatRequest собирает запрос из сообщений, дефолтов модели и опций.
func (c *Client) buildChatRequest(messages []llm.Message, args []any, stream bool) (chatRequest, error) {
	req := chatRequest{
		Model:    c.model,
		Messages: mapToOllama(messages),
		Stream:   stream,
	}

	opts := llm.BuildOptions(args...)
	if opts.Model != "" {
		req.Model = opts.Model
	}

	options := c.samplingOptions(opts)
	if len(options) > 0 {
		req.Options = options
	}

	switch opts.Format {
	case "":
		// plain text
	case llm.FormatJSON:
		req.Format = json.RawMessage(`"json"`)
	case llm.FormatJSONSchema:
		if opts.JSONSchema == nil {
			return chatRequest{}, fmt.Errorf("format json_schema requires a schema (use llm.WithJSONSchema)")
		}
		// Нативный format принимает схему напрямую, без обёртки с именем
		req.Format = opts.JSONSchema.Schema
	default:
		return chatRequest{}, fmt.Errorf("unknown response format: %q", opts.Format)
	}

	for _, arg := range args {
		switch v := arg.(type) {
		case []tools.ToolDefinition:
			req.Tools = convertTools(v)
		case llm.GenerateOption, llm.StreamOption:
			// уже обработано в BuildOptions / IsStreamingMode
		default:
			return chatRequest{}, fmt.Errorf("invalid tools type: expected []tools.ToolDefinition, got %T", arg)
		}
	}

	return req, nil
}

// samplingOptions собирает options секцию запроса.
//
// Map вместо структуры: в отличие от SDK с omitempty здесь явный 0
// честно уходит на сервер (temperature: 0 даёт детерминированный вывод).
func (c *Client) samplingOptions(opts llm.GenerateOptions) map[string]any {
	options := make(map[string]any)

	if c.def.Temperature > 0 {
		options["temperature"] = c.def.Temperature
	}
	if c.def.TopP > 0 {
		options["top_p"] = c.def.TopP
	}
	if c.def.MaxTokens > 0 {
		options["num_predict"] = c.def.MaxTokens
	}

	if opts.Temperature != nil {
		options["temperature"] = *opts.Temperature
	}
	if opts.TopP != nil {
		options["top_p"] = *opts.TopP
	}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	if len(opts.Stop) > 0 {
		options["stop"] = opts.Stop
	}

	return options
}

// mapToOllama конвертирует историю во wire-формат.
func mapToOllama(messages []llm.Message) []chatMessage {
	result := make([]chatMessage, len(messages))
	for i, m := range messages {
		msg := chatMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}

		for _, img := range m.Images {
			msg.Images = append(msg.Images, stripDataURI(img))
		}

		// Нативный формат не использует tool_call_id: ответ инструмента
		// это просто сообщение с ролью tool
		for _, tc := range m.ToolCalls {
			argsJSON := json.RawMessage(tc.Args)
			if len(argsJSON) == 0 {
				argsJSON = json.RawMessage(`{}`)
			}
			msg.ToolCalls = append(msg.ToolCalls, chatToolCall{
				Function: chatFunctionCall{
					Name:      tc.Name,
					Arguments: argsJSON,
				},
			})
		}

		result[i] = msg
	}
	return result
}

// mapFromOllama конвертирует ответ сервера в наш формат.
//
// Сервер не присылает id вызовов — синтезируем их, чтобы агентский цикл
// мог сопоставить результаты инструментов с вызовами.
func mapFromOllama(msg chatMessage) llm.Message {
	result := llm.Message{
		Role:    llm.Role(msg.Role),
		Content: msg.Content,
	}
	if result.Role == "" {
		result.Role = llm.RoleAssistant
	}

	for i, tc := range msg.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, llm.ToolCall{
			ID:   fmt.Sprintf("call_%d", i+1),
			Name: tc.Function.Name,
			Args: string(tc.Function.Arguments),
		})
	}

	return result
}

// convertTools конвертирует определения инструментов во wire-формат.
func convertTools(defs []tools.ToolDefinition) []chatTool {
	result := make([]chatTool, len(defs))
	for i, def := range defs {
		result[i] = chatTool{
			Type: "function",
			Function: chatToolFunc{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		}
	}
	return result
}

// stripDataURI убирает data-uri префикс, оставляя голый base64.
// Нативный API принимает только base64 без префикса.
func stripDataURI(s string) string {
	if strings.HasPrefix(s, "data:") {
		if idx := strings.Index(s, ","); idx >= 0 {
			return s[idx+1:]
		}
	}
	return s
}

// Compile-time проверки интерфейсов.
var (
	_ llm.Provider          = (*Client)(nil)
	_ llm.StreamingProvider = (*Client)(nil)
)
