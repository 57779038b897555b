// Логика: клавиши, события агента, асинхронные команды.

package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wrap"

	"github.com/ilkoid/praktika-ai/pkg/agent"
	"github.com/ilkoid/praktika-ai/pkg/events"
	"github.com/ilkoid/praktika-ai/pkg/llm"
	"github.com/ilkoid/praktika-ai/pkg/tui"
)

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	switch msg := msg.(type) {

	// 1. Изменение размера окна терминала
	case tea.WindowSizeMsg:
		headerHeight := 1
		footerHeight := m.textarea.Height() + 2 // + граница

		vpHeight := msg.Height - headerHeight - footerHeight
		if vpHeight < 0 {
			vpHeight = 0
		}

		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
		m.textarea.SetWidth(msg.Width)
		m.width = msg.Width
		m.markdown.SetWidth(msg.Width - 2)
		m.ready = true
		m.refreshLog()

	// 2. Клавиши
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.ConfirmInput):
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" || m.processing {
				return m, nil
			}

			m.textarea.Reset()
			m.appendEntry(userMsgStyle("Вы: ") + input)

			m.processing = true
			m.status = "Думаю..."
			return m, tea.Batch(m.spinner.Tick, runAgentCmd(m.agent, input))

		case key.Matches(msg, m.keys.ClearChat):
			if m.processing {
				return m, nil
			}
			m.agent.ResetHistory()
			m.entries = nil
			m.appendEntry(systemMsgStyle("🗑 Новый диалог"))
			m.status = ""

		case key.Matches(msg, m.keys.SaveToFile):
			history := m.agent.GetHistory()
			if len(history) == 0 {
				m.status = "История пуста, сохранять нечего"
				return m, nil
			}
			return m, saveTranscriptCmd(history)
		}

	// 3. События агента (tool calls, streaming чанки)
	case tui.EventMsg:
		m.handleEvent(events.Event(msg))
		// Продолжаем читать события и крутить спиннер
		if m.processing {
			m.spinner, spCmd = m.spinner.Update(msg)
		}
		return m, tea.Batch(tiCmd, vpCmd, spCmd, m.waitEvent())

	// 4. Финальный ответ агента
	case answerMsg:
		m.processing = false
		m.thinking = ""
		m.partial = ""
		m.status = ""
		m.appendEntry(aiMsgStyle("Ассистент:") + "\n" + m.markdown.Render(msg.text))
		m.textarea.Focus()

	case answerFailedMsg:
		m.processing = false
		m.thinking = ""
		m.partial = ""
		m.status = ""
		m.appendEntry(errorMsgStyle("❌ Ошибка: ") + msg.err.Error())
		m.textarea.Focus()

	case transcriptSavedMsg:
		m.status = "💾 Сохранено: " + msg.path

	case transcriptFailedMsg:
		m.appendEntry(errorMsgStyle("❌ Не удалось сохранить: ") + msg.err.Error())
	}

	if m.processing {
		m.spinner, spCmd = m.spinner.Update(msg)
		return m, tea.Batch(tiCmd, vpCmd, spCmd)
	}

	return m, tea.Batch(tiCmd, vpCmd)
}

// handleEvent обновляет лог по событию агента.
func (m *ChatModel) handleEvent(event events.Event) {
	switch event.Type {
	case events.EventThinkingChunk:
		if data, ok := event.Data.(events.ThinkingChunkData); ok {
			m.thinking = data.Accumulated
			m.refreshLog()
		}

	case events.EventContentChunk:
		if data, ok := event.Data.(events.ContentChunkData); ok {
			m.partial = data.Accumulated
			m.refreshLog()
		}

	case events.EventToolCall:
		if data, ok := event.Data.(events.ToolCallData); ok {
			m.appendEntry(systemMsgStyle(fmt.Sprintf("🔧 %s %s", data.ToolName, truncateLine(data.Args, 80))))
		}

	case events.EventToolResult:
		if data, ok := event.Data.(events.ToolResultData); ok {
			mark := "✅"
			if data.IsError {
				mark = "❌"
			}
			m.appendEntry(systemMsgStyle(fmt.Sprintf("%s %s (%.1fs)", mark, data.ToolName, data.Duration.Seconds())))
		}

	case events.EventThinking, events.EventMessage, events.EventDone, events.EventError:
		// Финальный ответ и ошибки приходят через answerMsg/answerFailedMsg
	}
}

// appendEntry добавляет завершённый блок в лог.
func (m *ChatModel) appendEntry(entry string) {
	m.entries = append(m.entries, entry)
	m.refreshLog()
}

// refreshLog пересобирает контент viewport из блоков и потоковых фрагментов.
func (m *ChatModel) refreshLog() {
	var b strings.Builder
	b.WriteString(strings.Join(m.entries, "\n\n"))

	if m.thinking != "" {
		b.WriteString("\n\n")
		b.WriteString(thinkingStyle("💭 " + m.thinking))
	}
	if m.partial != "" {
		b.WriteString("\n\n")
		b.WriteString(aiMsgStyle("Ассистент:") + "\n" + m.partial)
	}

	// Жёсткий перенос до ширины viewport: потоковые фрагменты и длинные
	// URL не должны уезжать за край экрана. wrap не ломает ANSI стили.
	content := b.String()
	if m.viewport.Width > 0 {
		content = wrap.String(content, m.viewport.Width)
	}
	tui.AppendToViewport(&m.viewport, content)
}

// runAgentCmd выполняет запрос к агенту асинхронно.
//
// Без общего timeout: лимиты держат HTTP клиент провайдера и
// per-tool timeout цикла, а долгий многошаговый запрос — это норма.
func runAgentCmd(agentClient agent.Agent, query string) tea.Cmd {
	return func() tea.Msg {
		answer, err := agentClient.Run(context.Background(), query)
		if err != nil {
			return answerFailedMsg{err: err}
		}
		return answerMsg{text: answer}
	}
}

// saveTranscriptCmd записывает историю диалога в markdown файл.
func saveTranscriptCmd(history []llm.Message) tea.Cmd {
	return func() tea.Msg {
		path := fmt.Sprintf("chat-%s.md", time.Now().Format("2006-01-02-15-04-05"))
		if err := os.WriteFile(path, renderHistoryMarkdown(history), 0o644); err != nil {
			return transcriptFailedMsg{err: err}
		}
		return transcriptSavedMsg{path: path}
	}
}

// renderHistoryMarkdown превращает историю в markdown документ.
func renderHistoryMarkdown(history []llm.Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# Диалог %s\n", time.Now().Format("2006-01-02 15:04"))

	for _, msg := range history {
		var label string
		switch msg.Role {
		case llm.RoleUser:
			label = "Пользователь"
		case llm.RoleAssistant:
			label = "Ассистент"
		case llm.RoleTool:
			label = "Инструмент"
		default:
			label = string(msg.Role)
		}
		fmt.Fprintf(&b, "\n## %s\n\n", label)

		for _, call := range msg.ToolCalls {
			fmt.Fprintf(&b, "- вызов `%s`: `%s`\n", call.Name, truncateLine(call.Args, 200))
		}
		if content := strings.TrimSpace(msg.Content); content != "" {
			b.WriteString(content)
			b.WriteString("\n")
		}
	}
	return []byte(b.String())
}

// truncateLine схлопывает перевод строки и укорачивает до maxLen рун.
func truncateLine(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
