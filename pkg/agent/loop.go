// Package agent реализует tool-calling цикл поверх llm.Provider.
//
// Цикл повторяет протокол function calling:
//  1. LLM получает историю и определения инструментов (Reasoning)
//  2. Если LLM вернул tool calls — инструменты выполняются через Registry (Acting)
//  3. Результаты добавляются в историю как RoleTool сообщения и цикл повторяется
//  4. Ответ без tool calls — финальный
//
// Loop stateless: история диалога принадлежит вызывающему коду и передаётся
// в Run. Это делает конкурентные запуски безопасными без блокировок и
// упрощает UI, которому всё равно нужна своя копия истории для отрисовки.
//
// Basic usage:
//
//	loop := agent.New(provider, registry, agent.WithSystemPrompt(prompt))
//	answer, history, err := loop.Run(ctx, nil, "Какая погода в Праге?")
//	answer, history, err = loop.Run(ctx, history, "А завтра?")
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ilkoid/praktika-ai/pkg/events"
	"github.com/ilkoid/praktika-ai/pkg/llm"
	"github.com/ilkoid/praktika-ai/pkg/tools"
	"github.com/ilkoid/praktika-ai/pkg/utils"
)

const (
	// DefaultMaxIterations — лимит итераций цикла.
	// Защита от моделей, зациклившихся на вызовах инструментов.
	DefaultMaxIterations = 6

	// DefaultToolTimeout — защитный timeout на выполнение одного инструмента.
	DefaultToolTimeout = 30 * time.Second
)

// Loop — tool-calling цикл.
//
// Thread-safe: конфигурация immutable после New, emitter защищён mutex,
// runtime состояние живёт в стеке Run.
type Loop struct {
	provider      llm.Provider
	tools         *tools.Registry
	systemPrompt  string
	maxIterations int
	toolTimeout   time.Duration
	streaming     bool

	emitterMu sync.RWMutex
	emitter   events.Emitter
}

// Option настраивает Loop.
type Option func(*Loop)

// WithSystemPrompt устанавливает системный промпт.
// Добавляется первым сообщением, если история не начинается с system.
func WithSystemPrompt(prompt string) Option {
	return func(l *Loop) { l.systemPrompt = prompt }
}

// WithMaxIterations меняет лимит итераций цикла.
func WithMaxIterations(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxIterations = n
		}
	}
}

// WithToolTimeout меняет timeout выполнения одного инструмента.
func WithToolTimeout(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.toolTimeout = d
		}
	}
}

// WithStreaming включает потоковый режим.
// Работает только если провайдер реализует llm.StreamingProvider,
// иначе молча используется синхронный Generate.
func WithStreaming(enabled bool) Option {
	return func(l *Loop) { l.streaming = enabled }
}

// WithEmitter устанавливает emitter для событий цикла.
func WithEmitter(emitter events.Emitter) Option {
	return func(l *Loop) { l.emitter = emitter }
}

// New создаёт Loop с дефолтными лимитами.
func New(provider llm.Provider, toolsRegistry *tools.Registry, opts ...Option) *Loop {
	l := &Loop{
		provider:      provider,
		tools:         toolsRegistry,
		maxIterations: DefaultMaxIterations,
		toolTimeout:   DefaultToolTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetEmitter устанавливает emitter для отправки событий.
//
// Port & Adapter: Loop зависит от абстракции events.Emitter,
// а не от конкретного UI.
//
// Thread-safe.
func (l *Loop) SetEmitter(emitter events.Emitter) {
	l.emitterMu.Lock()
	defer l.emitterMu.Unlock()
	l.emitter = emitter
}

// Subscribe возвращает Subscriber для чтения событий.
//
// Если emitter не установлен, создаёт ChanEmitter с буфером 100.
//
// Thread-safe.
func (l *Loop) Subscribe() events.Subscriber {
	l.emitterMu.Lock()
	defer l.emitterMu.Unlock()
	if l.emitter == nil {
		l.emitter = events.NewChanEmitter(100)
	}
	if ce, ok := l.emitter.(*events.ChanEmitter); ok {
		return ce.Subscribe()
	}
	return nil
}

// Run выполняет запрос пользователя через tool-calling цикл.
//
// history — предыдущие сообщения диалога (nil для нового диалога).
// Возвращает финальный ответ и обновлённую историю. Входной слайс
// не модифицируется.
//
// Ошибки инструментов (не найден, timeout, Go error) становятся
// содержимым RoleTool сообщения: модель читает их и исправляет вызов.
// Ошибки LLM и отмена контекста прерывают цикл.
func (l *Loop) Run(ctx context.Context, history []llm.Message, query string) (string, []llm.Message, error) {
	runID := uuid.NewString()[:8]

	l.emit(ctx, events.Event{
		Type:      events.EventThinking,
		Data:      events.ThinkingData{Query: query},
		Timestamp: time.Now(),
	})

	// Копируем историю: caller может переиспользовать свой слайс
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: query})

	utils.Info("Agent run started", "run_id", runID, "query_length", len(query), "history_length", len(history))

	toolDefs := l.tools.GetDefinitions()

	for iteration := 1; iteration <= l.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return "", messages, l.fail(ctx, fmt.Errorf("agent run cancelled: %w", err))
		}

		response, err := l.invoke(ctx, l.buildContext(messages), toolDefs)
		if err != nil {
			return "", messages, l.fail(ctx, fmt.Errorf("llm generation failed on iteration %d: %w", iteration, err))
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		})

		if len(response.ToolCalls) == 0 {
			// Финальный ответ
			l.emit(ctx, events.Event{
				Type:      events.EventMessage,
				Data:      events.MessageData{Content: response.Content},
				Timestamp: time.Now(),
			})
			l.emit(ctx, events.Event{
				Type:      events.EventDone,
				Data:      events.MessageData{Content: response.Content},
				Timestamp: time.Now(),
			})
			utils.Info("Agent run completed", "run_id", runID, "iterations", iteration, "answer_length", len(response.Content))
			return response.Content, messages, nil
		}

		for _, tc := range response.ToolCalls {
			l.emit(ctx, events.Event{
				Type:      events.EventToolCall,
				Data:      events.ToolCallData{ToolName: tc.Name, Args: tc.Args},
				Timestamp: time.Now(),
			})

			result, isError, duration := l.executeToolCall(ctx, tc)

			l.emit(ctx, events.Event{
				Type: events.EventToolResult,
				Data: events.ToolResultData{
					ToolName: tc.Name,
					Result:   result,
					IsError:  isError,
					Duration: duration,
				},
				Timestamp: time.Now(),
			})

			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: tc.ID,
				Content:    result,
			})
		}
	}

	err := fmt.Errorf("max iterations (%d) reached without final answer", l.maxIterations)
	utils.Warn("Agent run aborted", "run_id", runID, "max_iterations", l.maxIterations)
	return "", messages, l.fail(ctx, err)
}

// buildContext собирает сообщения для LLM, добавляя системный промпт
// если его нет в начале истории.
func (l *Loop) buildContext(messages []llm.Message) []llm.Message {
	if l.systemPrompt == "" {
		return messages
	}
	if len(messages) > 0 && messages[0].Role == llm.RoleSystem {
		return messages
	}
	result := make([]llm.Message, 0, len(messages)+1)
	result = append(result, llm.Message{Role: llm.RoleSystem, Content: l.systemPrompt})
	result = append(result, messages...)
	return result
}

// invoke вызывает LLM: потоково если включено и провайдер умеет,
// иначе синхронно.
func (l *Loop) invoke(ctx context.Context, messages []llm.Message, toolDefs []tools.ToolDefinition) (llm.Message, error) {
	args := make([]any, 0, 1)
	if len(toolDefs) > 0 {
		args = append(args, toolDefs)
	}

	if l.streaming {
		if sp, ok := l.provider.(llm.StreamingProvider); ok {
			return sp.GenerateStream(ctx, messages, l.streamCallback(ctx), args...)
		}
	}
	return l.provider.Generate(ctx, messages, args...)
}

// streamCallback транслирует чанки стриминга в события для UI.
func (l *Loop) streamCallback(ctx context.Context) func(llm.StreamChunk) {
	return func(chunk llm.StreamChunk) {
		select {
		case <-ctx.Done():
			return
		default:
		}

		switch chunk.Type {
		case llm.ChunkThinking:
			l.emit(ctx, events.Event{
				Type: events.EventThinkingChunk,
				Data: events.ThinkingChunkData{
					Chunk:       chunk.Delta,
					Accumulated: chunk.ReasoningContent,
				},
				Timestamp: time.Now(),
			})
		case llm.ChunkContent:
			l.emit(ctx, events.Event{
				Type: events.EventContentChunk,
				Data: events.ContentChunkData{
					Chunk:       chunk.Delta,
					Accumulated: chunk.Content,
				},
				Timestamp: time.Now(),
			})
		case llm.ChunkError:
			if chunk.Error != nil {
				l.emit(ctx, events.Event{
					Type:      events.EventError,
					Data:      events.ErrorData{Err: chunk.Error},
					Timestamp: time.Now(),
				})
			}
		case llm.ChunkDone:
			// Финальное сообщение вернёт GenerateStream
		}
	}
}

// executeToolCall выполняет один tool call с защитным timeout.
//
// Инструмент запускается в отдельной goroutine: зависший Execute не
// блокирует цикл, результат после timeout отбрасывается.
//
// Возвращает (результат, флаг ошибки, длительность). Любая ошибка
// превращается в текст для модели, цикл не прерывается.
func (l *Loop) executeToolCall(ctx context.Context, tc llm.ToolCall) (string, bool, time.Duration) {
	start := time.Now()

	// Модели оборачивают JSON в markdown fence — чистим перед парсингом
	cleanArgs := utils.CleanJsonBlock(tc.Args)

	tool, err := l.tools.Get(tc.Name)
	if err != nil {
		utils.Warn("Tool not found", "tool", tc.Name)
		return fmt.Sprintf("Error: tool not found: %s", tc.Name), true, time.Since(start)
	}

	toolCtx, cancel := context.WithTimeout(ctx, l.toolTimeout)
	defer cancel()

	type execResult struct {
		output string
		err    error
	}
	resultChan := make(chan execResult, 1)

	go func() {
		output, execErr := tool.Execute(toolCtx, cleanArgs)
		resultChan <- execResult{output, execErr}
	}()

	select {
	case <-toolCtx.Done():
		duration := time.Since(start)
		if errors.Is(toolCtx.Err(), context.DeadlineExceeded) {
			utils.Warn("Tool execution timeout", "tool", tc.Name, "timeout", l.toolTimeout)
			return fmt.Sprintf("Error: tool %q exceeded timeout of %v", tc.Name, l.toolTimeout), true, duration
		}
		return "Error: tool execution was cancelled", true, duration

	case res := <-resultChan:
		duration := time.Since(start)
		if res.err != nil {
			utils.Warn("Tool execution failed", "tool", tc.Name, "error", res.err)
			return fmt.Sprintf("Error: %v", res.err), true, duration
		}
		utils.Debug("Tool executed", "tool", tc.Name, "duration_ms", duration.Milliseconds())
		return res.output, false, duration
	}
}

// fail отправляет EventError и возвращает ошибку.
func (l *Loop) fail(ctx context.Context, err error) error {
	l.emit(ctx, events.Event{
		Type:      events.EventError,
		Data:      events.ErrorData{Err: err},
		Timestamp: time.Now(),
	})
	return err
}

// emit отправляет событие если emitter установлен.
//
// Thread-safe.
func (l *Loop) emit(ctx context.Context, event events.Event) {
	l.emitterMu.RLock()
	defer l.emitterMu.RUnlock()
	if l.emitter == nil {
		return
	}
	l.emitter.Emit(ctx, event)
}
