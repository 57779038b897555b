// Package ui реализует Bubble Tea чат с AI агентом.
//
// Модель собирает лог диалога из завершённых блоков (entries) и
// текущих потоковых фрагментов (thinking/partial). События агента
// приходят через events.Subscriber и конвертируются в tea.Msg
// адаптером pkg/tui (Port & Adapter).
package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ilkoid/praktika-ai/pkg/agent"
	"github.com/ilkoid/praktika-ai/pkg/events"
	"github.com/ilkoid/praktika-ai/pkg/tui"
)

// Сообщения асинхронных команд.
type (
	// answerMsg — финальный ответ агента.
	answerMsg struct{ text string }

	// answerFailedMsg — запрос завершился ошибкой.
	answerFailedMsg struct{ err error }

	// transcriptSavedMsg — расшифровка записана в файл.
	transcriptSavedMsg struct{ path string }

	// transcriptFailedMsg — сохранение не удалось.
	transcriptFailedMsg struct{ err error }
)

// ChatModel — главная модель чата (Bubble Tea Model).
//
// Компоненты:
//   - viewport: лог диалога (только для чтения)
//   - textarea: поле ввода пользователя
//   - spinner: индикатор работы агента
//   - markdown: glamour renderer для ответов ассистента
type ChatModel struct {
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	keys     tui.KeyMap

	agent     agent.Agent
	modelName string
	eventSub  events.Subscriber
	markdown  *MarkdownRenderer

	// Завершённые блоки лога (уже стилизованные)
	entries []string

	// Потоковые фрагменты текущего запроса
	thinking string
	partial  string

	processing bool
	status     string
	ready      bool
	width      int
}

// InitialModel создает начальное состояние чата.
//
// agentClient — собранный фасад агента, modelName — алиас модели для
// статусной строки, darkBG — фон терминала (определяется до старта
// Bubble Tea, см. MarkdownRenderer).
func InitialModel(agentClient agent.Agent, modelName string, darkBG bool) ChatModel {
	ta := textarea.New()
	ta.Placeholder = "Введите ваше сообщение..."
	ta.Focus()
	ta.Prompt = "┃ "
	ta.SetHeight(3)
	ta.CharLimit = 2000
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false) // Enter отправляет, не переносит строку

	// Размеры (0,0) обновятся при первом WindowSizeMsg
	vp := viewport.New(0, 0)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := ChatModel{
		textarea:  ta,
		viewport:  vp,
		spinner:   sp,
		keys:      tui.DefaultKeyMap(),
		agent:     agentClient,
		modelName: modelName,
		eventSub:  agentClient.Subscribe(),
		markdown:  NewMarkdownRenderer(darkBG),
	}

	m.entries = append(m.entries,
		systemMsgStyle(fmt.Sprintf("🤖 Praktika Chat. Модель: %s", modelName)),
		systemMsgStyle("Enter — отправить, Ctrl+R — новый диалог, Ctrl+S — сохранить, Ctrl+C — выход"),
	)
	return m
}

// Init запускается один раз при старте Bubble Tea программы.
//
// Запускает мигание курсора и чтение событий агента.
func (m ChatModel) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.waitEvent(),
	)
}

// waitEvent возвращает Cmd ожидания следующего события агента.
func (m ChatModel) waitEvent() tea.Cmd {
	return tui.ReceiveEventCmd(m.eventSub, func(event events.Event) tea.Msg {
		return tui.EventMsg(event)
	})
}
