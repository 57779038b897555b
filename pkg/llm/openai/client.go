// Package openai реализует адаптер LLM провайдера для OpenAI-совместимых API.
//
// Один и тот же клиент обслуживает OpenAI, DeepSeek, OpenRouter и любой
// другой endpoint с совместимым /chat/completions — различие только в
// BaseURL и API ключе из конфигурации.
//
// Поддерживает Function Calling (tools), vision запросы, streaming и
// structured outputs (response_format json_object / json_schema).
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/ilkoid/praktika-ai/pkg/config"
	"github.com/ilkoid/praktika-ai/pkg/llm"
	"github.com/ilkoid/praktika-ai/pkg/tools"
	"github.com/ilkoid/praktika-ai/pkg/utils"
	openai "github.com/sashabaranov/go-openai"
)

// Атрибуция для OpenRouter рейтингов (опциональные заголовки из их документации).
const (
	openRouterReferer = "https://github.com/ilkoid/praktika-ai"
	openRouterTitle   = "praktika"
)

// Client реализует интерфейсы llm.Provider и llm.StreamingProvider
// для OpenAI-совместимых API.
type Client struct {
	api   *openai.Client
	model string
	def   config.ModelDef
}

// NewClient создает клиент на основе конфигурации модели.
//
// Принимает ModelDef напрямую для упрощения создания клиентов через factory.
// Использует APIKey из конфигурации для аутентификации. Параметры
// temperature/top_p/max_tokens из ModelDef служат дефолтами и могут быть
// переопределены runtime опциями.
func NewClient(modelDef config.ModelDef) *Client {
	// Поддержка custom BaseURL для non-OpenAI провайдеров (DeepSeek, OpenRouter и т.д.)
	cfg := openai.DefaultConfig(modelDef.APIKey)
	if modelDef.BaseURL != "" {
		cfg.BaseURL = modelDef.BaseURL
	}

	// OpenRouter учитывает атрибуцию приложения через дополнительные
	// заголовки. SDK не даёт per-request заголовков, поэтому заворачиваем
	// транспорт.
	if strings.Contains(cfg.BaseURL, "openrouter.ai") {
		cfg.HTTPClient = &http.Client{
			Transport: &headerTransport{
				base: http.DefaultTransport,
				headers: map[string]string{
					"HTTP-Referer": openRouterReferer,
					"X-Title":      openRouterTitle,
				},
			},
		}
	}

	client := openai.NewClientWithConfig(cfg)

	return &Client{
		api:   client,
		model: modelDef.ModelName,
		def:   modelDef,
	}
}

// headerTransport добавляет статические заголовки к каждому запросу.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}

// Generate выполняет запрос к API и возвращает ответ модели.
//
// args принимает в любом порядке:
//   - []tools.ToolDefinition — инструменты для Function Calling
//   - llm.GenerateOption — runtime переопределения параметров
//
// Алгоритм:
//  1. Конвертирует внутренние сообщения в формат OpenAI SDK
//  2. Применяет опции поверх дефолтов из ModelDef
//  3. Если переданы tools — добавляет их в запрос (ToolChoice auto)
//  4. Вызывает API
//  5. Конвертирует ответ обратно в наш формат, извлекая ToolCalls
func (c *Client) Generate(ctx context.Context, messages []llm.Message, args ...any) (llm.Message, error) {
	startTime := time.Now()

	req, err := c.buildRequest(messages, args)
	if err != nil {
		return llm.Message{}, err
	}

	utils.Debug("LLM request started",
		"model", req.Model,
		"messages_count", len(messages),
		"tools_count", len(req.Tools))

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		utils.Error("LLM API request failed",
			"error", err,
			"model", req.Model,
			"duration_ms", time.Since(startTime).Milliseconds())
		return llm.Message{}, fmt.Errorf("openai api error: %w", err)
	}

	// Проверяем что есть хотя бы один выбор
	if len(resp.Choices) == 0 {
		return llm.Message{}, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0].Message

	result := llm.Message{
		Role:    llm.Role(choice.Role),
		Content: choice.Content,
	}

	// Извлекаем ToolCalls если модель решила вызвать функции
	if len(choice.ToolCalls) > 0 {
		result.ToolCalls = make([]llm.ToolCall, len(choice.ToolCalls))
		for i, tc := range choice.ToolCalls {
			result.ToolCalls[i] = llm.ToolCall{
				ID:   tc.ID,
				Name: tc.Function.Name,
				Args: tc.Function.Arguments,
			}
		}
	}

	utils.Info("LLM response received",
		"model", req.Model,
		"tool_calls_count", len(result.ToolCalls),
		"content_length", len(result.Content),
		"duration_ms", time.Since(startTime).Milliseconds())

	return result, nil
}

// GenerateStream выполняет запрос с потоковой передачей ответа.
//
// Дельты контента приходят в callback по мере генерации; tool calls
// накапливаются из фрагментов и возвращаются в финальном сообщении.
// DeepSeek reasoner отдаёт reasoning_content — такие дельты приходят
// чанками ChunkThinking.
//
// При WithStream(false) выполняется обычный Generate, а callback
// получает весь контент одним чанком перед ChunkDone.
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

	req, err := c.buildRequest(messages, args)
	if err != nil {
		return llm.Message{}, err
	}
	req.Stream = true

	utils.Debug("LLM stream started",
		"model", req.Model,
		"messages_count", len(messages),
		"thinking_only", thinkingOnly)

	stream, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		callback(llm.StreamChunk{Type: llm.ChunkError, Error: err})
		utils.Error("LLM stream request failed", "error", err, "model", req.Model)
		return llm.Message{}, fmt.Errorf("openai stream error: %w", err)
	}
	defer stream.Close()

	var (
		content   strings.Builder
		reasoning strings.Builder
		toolAcc   = newToolCallAccumulator()
	)

	for {
		resp, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			callback(llm.StreamChunk{Type: llm.ChunkError, Error: recvErr})
			utils.Error("LLM stream receive failed",
				"error", recvErr,
				"model", req.Model,
				"duration_ms", time.Since(startTime).Milliseconds())
			return llm.Message{}, fmt.Errorf("openai stream error: %w", recvErr)
		}

		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta

		if delta.ReasoningContent != "" {
			reasoning.WriteString(delta.ReasoningContent)
			callback(llm.StreamChunk{
				Type:             llm.ChunkThinking,
				ReasoningContent: reasoning.String(),
				Delta:            delta.ReasoningContent,
			})
		}

		if delta.Content != "" {
			content.WriteString(delta.Content)
			if !thinkingOnly {
				callback(llm.StreamChunk{
					Type:    llm.ChunkContent,
					Content: content.String(),
					Delta:   delta.Content,
				})
			}
		}

		for _, tc := range delta.ToolCalls {
			toolAcc.add(tc)
		}
	}

	result := llm.Message{
		Role:      llm.RoleAssistant,
		Content:   content.String(),
		ToolCalls: toolAcc.finish(),
	}

	callback(llm.StreamChunk{
		Type:             llm.ChunkDone,
		Content:          result.Content,
		ReasoningContent: reasoning.String(),
		Done:             true,
	})

	utils.Info("LLM stream completed",
		"model", req.Model,
		"content_length", len(result.Content),
		"reasoning_length", reasoning.Len(),
		"tool_calls_count", len(result.ToolCalls),
		"duration_ms", time.Since(startTime).Milliseconds())

	return result, nil
}

// buildRequest собирает ChatCompletionRequest из сообщений, дефолтов
// модели и runtime опций. Общая часть Generate и GenerateStream.
func (c *Client) buildRequest(messages []llm.Message, args []any) (openai.ChatCompletionRequest, error) {
	openaiMsgs := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		openaiMsgs[i] = mapToOpenAI(m)
	}

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: openaiMsgs,
	}

	// Дефолты из конфигурации модели
	if c.def.Temperature > 0 {
		req.Temperature = float32(c.def.Temperature)
	}
	if c.def.TopP > 0 {
		req.TopP = float32(c.def.TopP)
	}
	if c.def.MaxTokens > 0 {
		req.MaxTokens = c.def.MaxTokens
	}

	// Runtime опции поверх дефолтов
	opts := llm.BuildOptions(args...)
	if opts.Model != "" {
		req.Model = opts.Model
	}
	if opts.Temperature != nil {
		req.Temperature = nonZeroFloat32(*opts.Temperature)
	}
	if opts.TopP != nil {
		req.TopP = nonZeroFloat32(*opts.TopP)
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if len(opts.Stop) > 0 {
		req.Stop = opts.Stop
	}

	switch opts.Format {
	case "":
		// plain text
	case llm.FormatJSON:
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	case llm.FormatJSONSchema:
		if opts.JSONSchema == nil {
			return openai.ChatCompletionRequest{}, fmt.Errorf("format json_schema requires a schema (use llm.WithJSONSchema)")
		}
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   opts.JSONSchema.Name,
				Schema: opts.JSONSchema.Schema,
				Strict: opts.JSONSchema.Strict,
			},
		}
	default:
		return openai.ChatCompletionRequest{}, fmt.Errorf("unknown response format: %q", opts.Format)
	}

	// Tools если переданы: ожидаем []tools.ToolDefinition среди args
	for _, arg := range args {
		switch v := arg.(type) {
		case []tools.ToolDefinition:
			req.Tools = convertToolsToOpenAI(v)
			// Автоматический режим — LLM сама решает когда вызывать tools
			req.ToolChoice = "auto"
		case llm.GenerateOption, llm.StreamOption:
			// уже обработано в BuildOptions / IsStreamingMode
		default:
			return openai.ChatCompletionRequest{}, fmt.Errorf("invalid tools type: expected []tools.ToolDefinition, got %T", arg)
		}
	}

	return req, nil
}

// nonZeroFloat32 конвертирует параметр сэмплирования для SDK.
//
// SDK сериализует числовые поля с omitempty: честный 0 пропал бы из
// запроса и сервер применил бы свой дефолт. Минимальный ненулевой
// float32 сохраняет детерминированное поведение temperature=0.
func nonZeroFloat32(v float64) float32 {
	if v == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(v)
}

// toolCallAccumulator собирает tool calls из стриминговых фрагментов.
//
// API присылает аргументы функции кусками: каждый фрагмент несёт Index
// вызова, имя и ID приходят в первом фрагменте, аргументы дописываются.
type toolCallAccumulator struct {
	order []int
	calls map[int]*llm.ToolCall
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{calls: make(map[int]*llm.ToolCall)}
}

func (a *toolCallAccumulator) add(tc openai.ToolCall) {
	idx := 0
	if tc.Index != nil {
		idx = *tc.Index
	}
	call, ok := a.calls[idx]
	if !ok {
		call = &llm.ToolCall{}
		a.calls[idx] = call
		a.order = append(a.order, idx)
	}
	if tc.ID != "" {
		call.ID = tc.ID
	}
	if tc.Function.Name != "" {
		call.Name = tc.Function.Name
	}
	call.Args += tc.Function.Arguments
}

func (a *toolCallAccumulator) finish() []llm.ToolCall {
	if len(a.order) == 0 {
		return nil
	}
	result := make([]llm.ToolCall, 0, len(a.order))
	for _, idx := range a.order {
		result = append(result, *a.calls[idx])
	}
	return result
}

// mapToOpenAI конвертирует наше внутреннее сообщение в формат SDK.
// Здесь происходит магия Vision: если есть картинки, создаем MultiContent.
func mapToOpenAI(m llm.Message) openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{
		Role: string(m.Role),
	}

	// Ответ инструмента ссылается на вызов через tool_call_id
	if m.Role == llm.RoleTool {
		msg.Content = m.Content
		msg.ToolCallID = m.ToolCallID
		return msg
	}

	// Assistant сообщение с вызовами инструментов: история должна
	// сохранять tool_calls, иначе API отклонит следующий запрос
	if len(m.ToolCalls) > 0 {
		msg.ToolCalls = make([]openai.ToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			msg.ToolCalls[i] = openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Args,
				},
			}
		}
	}

	// Если картинок нет, отправляем просто текст
	if len(m.Images) == 0 {
		msg.Content = m.Content
		return msg
	}

	// Если есть картинки (Vision запрос)
	parts := []openai.ChatMessagePart{
		{
			Type: openai.ChatMessagePartTypeText,
			Text: m.Content,
		},
	}

	for _, imgURL := range m.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    imgURL, // Ожидается base64 data-uri или http ссылка
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	msg.MultiContent = parts
	return msg
}

// convertToolsToOpenAI конвертирует определения инструментов во внутреннем формате
// в формат OpenAI Function Calling.
//
// Поскольку ToolDefinition.Parameters уже является JSON Schema объектом
// (map[string]interface{}), он напрямую передаётся в OpenAI SDK.
func convertToolsToOpenAI(defs []tools.ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, len(defs))

	for i, def := range defs {
		result[i] = openai.Tool{
			Type: "function",
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		}
	}

	return result
}
