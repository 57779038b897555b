// Package ui тесты чата: обработка клавиш, событий агента и рендеринг.
package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ilkoid/praktika-ai/pkg/events"
	"github.com/ilkoid/praktika-ai/pkg/llm"
	"github.com/ilkoid/praktika-ai/pkg/tui"
)

// stubAgent — управляемый агент для тестов UI.
type stubAgent struct {
	answer  string
	err     error
	queries []string
	history []llm.Message
	emitter *events.ChanEmitter
	resets  int
}

func newStubAgent() *stubAgent {
	return &stubAgent{emitter: events.NewChanEmitter(10)}
}

func (a *stubAgent) Run(_ context.Context, query string) (string, error) {
	a.queries = append(a.queries, query)
	if a.err != nil {
		return "", a.err
	}
	return a.answer, nil
}

func (a *stubAgent) Subscribe() events.Subscriber { return a.emitter.Subscribe() }

func (a *stubAgent) GetHistory() []llm.Message { return a.history }

func (a *stubAgent) ResetHistory() { a.resets++ }

// readyModel возвращает модель после первого WindowSizeMsg.
func readyModel(t *testing.T, agent *stubAgent) ChatModel {
	t.Helper()
	m := InitialModel(agent, "test-model", true)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(ChatModel)
}

// TestSubmitStartsProcessing тестирует отправку запроса по Enter.
func TestSubmitStartsProcessing(t *testing.T) {
	agent := newStubAgent()
	m := readyModel(t, agent)

	m.textarea.SetValue("какая погода?")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(ChatModel)

	if !m.processing {
		t.Error("model must be processing after submit")
	}
	if cmd == nil {
		t.Error("submit must produce a command")
	}
	if m.textarea.Value() != "" {
		t.Error("textarea must be cleared after submit")
	}
	if !strings.Contains(m.viewport.View(), "какая погода?") {
		t.Error("user message must appear in the log")
	}
}

// TestSubmitIgnoredWhileProcessing тестирует блокировку ввода во время работы.
func TestSubmitIgnoredWhileProcessing(t *testing.T) {
	agent := newStubAgent()
	m := readyModel(t, agent)
	m.processing = true

	m.textarea.SetValue("второй запрос")
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(ChatModel)

	if strings.Contains(m.viewport.View(), "второй запрос") {
		t.Error("input must be ignored while processing")
	}
}

// TestRunAgentCmd тестирует асинхронную команду запроса.
func TestRunAgentCmd(t *testing.T) {
	agent := newStubAgent()
	agent.answer = "сегодня солнечно"

	msg := runAgentCmd(agent, "какая погода?")()
	answer, ok := msg.(answerMsg)
	if !ok {
		t.Fatalf("expected answerMsg, got %T", msg)
	}
	if answer.text != "сегодня солнечно" {
		t.Errorf("unexpected answer: %q", answer.text)
	}
	if len(agent.queries) != 1 || agent.queries[0] != "какая погода?" {
		t.Errorf("query not passed to agent: %v", agent.queries)
	}

	agent.err = errors.New("provider down")
	if _, ok := runAgentCmd(agent, "ещё")().(answerFailedMsg); !ok {
		t.Error("agent error must produce answerFailedMsg")
	}
}

// TestAnswerRendered тестирует отображение финального ответа.
func TestAnswerRendered(t *testing.T) {
	agent := newStubAgent()
	m := readyModel(t, agent)
	m.processing = true
	m.partial = "черновик"

	updated, _ := m.Update(answerMsg{text: "Сегодня **солнечно**."})
	m = updated.(ChatModel)

	if m.processing {
		t.Error("processing must stop after answer")
	}
	if m.partial != "" {
		t.Error("streaming partial must be cleared")
	}
	view := m.viewport.View()
	if !strings.Contains(view, "Ассистент") || !strings.Contains(view, "солнечно") {
		t.Errorf("answer missing from log:\n%s", view)
	}
}

// TestErrorRendered тестирует отображение ошибки агента.
func TestErrorRendered(t *testing.T) {
	agent := newStubAgent()
	m := readyModel(t, agent)
	m.processing = true

	updated, _ := m.Update(answerFailedMsg{err: errors.New("connection refused")})
	m = updated.(ChatModel)

	if m.processing {
		t.Error("processing must stop after error")
	}
	if !strings.Contains(m.viewport.View(), "connection refused") {
		t.Error("error must appear in the log")
	}
}

// TestToolEvents тестирует отображение вызовов инструментов.
func TestToolEvents(t *testing.T) {
	agent := newStubAgent()
	m := readyModel(t, agent)

	updated, cmd := m.Update(tui.EventMsg(events.Event{
		Type:      events.EventToolCall,
		Data:      events.ToolCallData{ToolName: "current_weather", Args: `{"city": "Praha"}`},
		Timestamp: time.Now(),
	}))
	m = updated.(ChatModel)

	if cmd == nil {
		t.Error("event handler must re-arm event waiting")
	}
	if !strings.Contains(m.viewport.View(), "current_weather") {
		t.Error("tool call must appear in the log")
	}

	updated, _ = m.Update(tui.EventMsg(events.Event{
		Type: events.EventToolResult,
		Data: events.ToolResultData{
			ToolName: "current_weather",
			Result:   `{"temperature_c": 8}`,
			Duration: 1200 * time.Millisecond,
		},
		Timestamp: time.Now(),
	}))
	m = updated.(ChatModel)

	if !strings.Contains(m.viewport.View(), "✅ current_weather") {
		t.Errorf("tool result must appear in the log:\n%s", m.viewport.View())
	}
}

// TestStreamingChunks тестирует отображение потоковых фрагментов.
func TestStreamingChunks(t *testing.T) {
	agent := newStubAgent()
	m := readyModel(t, agent)
	m.processing = true

	updated, _ := m.Update(tui.EventMsg(events.Event{
		Type:      events.EventContentChunk,
		Data:      events.ContentChunkData{Chunk: "Сегодня", Accumulated: "Сегодня"},
		Timestamp: time.Now(),
	}))
	m = updated.(ChatModel)

	if !strings.Contains(m.viewport.View(), "Сегодня") {
		t.Error("streaming content must appear immediately")
	}

	updated, _ = m.Update(tui.EventMsg(events.Event{
		Type:      events.EventContentChunk,
		Data:      events.ContentChunkData{Chunk: " тепло", Accumulated: "Сегодня тепло"},
		Timestamp: time.Now(),
	}))
	m = updated.(ChatModel)

	if !strings.Contains(m.viewport.View(), "Сегодня тепло") {
		t.Error("accumulated content must replace previous partial")
	}
}

// TestClearChat тестирует сброс диалога по Ctrl+R.
func TestClearChat(t *testing.T) {
	agent := newStubAgent()
	m := readyModel(t, agent)
	m.appendEntry("старое сообщение")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	m = updated.(ChatModel)

	if agent.resets != 1 {
		t.Errorf("agent history must be reset, got %d resets", agent.resets)
	}
	if strings.Contains(m.viewport.View(), "старое сообщение") {
		t.Error("log must be cleared")
	}
}

// TestSaveTranscriptEmptyHistory тестирует Ctrl+S без истории.
func TestSaveTranscriptEmptyHistory(t *testing.T) {
	agent := newStubAgent()
	m := readyModel(t, agent)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m = updated.(ChatModel)

	if cmd != nil {
		t.Error("empty history must not start a save command")
	}
	if m.status == "" {
		t.Error("user must see why nothing was saved")
	}
}

// TestRenderHistoryMarkdown тестирует формат расшифровки.
func TestRenderHistoryMarkdown(t *testing.T) {
	history := []llm.Message{
		{Role: llm.RoleUser, Content: "Который час?"},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "1", Name: "current_time", Args: "{}"}}},
		{Role: llm.RoleTool, Content: "14:05", ToolCallID: "1"},
		{Role: llm.RoleAssistant, Content: "Сейчас 14:05."},
	}

	text := string(renderHistoryMarkdown(history))
	for _, want := range []string{"## Пользователь", "## Ассистент", "## Инструмент", "current_time", "Сейчас 14:05."} {
		if !strings.Contains(text, want) {
			t.Errorf("transcript missing %q:\n%s", want, text)
		}
	}
}

// TestViewNotReady тестирует рендер до первого WindowSizeMsg.
func TestViewNotReady(t *testing.T) {
	m := InitialModel(newStubAgent(), "m", true)
	if !strings.Contains(m.View(), "Initializing") {
		t.Error("not-ready view must show initialization message")
	}
}

// TestTruncateLine тестирует укорачивание строк для лога.
func TestTruncateLine(t *testing.T) {
	if got := truncateLine("многострочный\nтекст", 100); strings.Contains(got, "\n") {
		t.Errorf("newlines must be collapsed: %q", got)
	}
	if got := truncateLine("привет мир", 6); got != "привет..." {
		t.Errorf("unexpected truncation: %q", got)
	}
	if got := truncateLine("короткий", 100); got != "короткий" {
		t.Errorf("short strings must pass through: %q", got)
	}
}

// TestMarkdownRenderer тестирует что рендер не теряет контент.
func TestMarkdownRenderer(t *testing.T) {
	r := NewMarkdownRenderer(true)
	r.SetWidth(60)

	out := r.Render("# Заголовок\n\nтекст с **акцентом**")
	if !strings.Contains(out, "Заголовок") || !strings.Contains(out, "акцентом") {
		t.Errorf("rendered markdown lost content:\n%s", out)
	}
}
