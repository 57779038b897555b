// Package tui предоставляет reusable helpers для подключения Bubble Tea TUI к агенту.
//
// Это НЕ готовый TUI (он остаётся в internal/ui/), а переиспользуемые
// адаптеры: конвертация событий агента в Bubble Tea сообщения, цветовые
// схемы, умная прокрутка viewport.
//
// Port & Adapter паттерн:
//   - pkg/events.* — Port (интерфейсы)
//   - pkg/tui.* — Adapter helpers (переиспользуемые утилиты)
//   - internal/ui.* — Конкретная реализация TUI (app-specific)
//
// # Basic Usage
//
//	client, _ := agent.NewClient(ctx, agent.ClientConfig{})
//	sub := client.Subscribe()
//
//	// Конвертируем события агента в Bubble Tea сообщения
//	cmd := tui.ReceiveEventCmd(sub, func(event events.Event) tea.Msg {
//	    return tui.EventMsg(event)
//	})
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ilkoid/praktika-ai/pkg/events"
)

// EventMsg конвертирует events.Event в Bubble Tea сообщение.
//
// Используется в Bubble Tea Update() для обработки событий агента.
type EventMsg events.Event

// ReceiveEventCmd возвращает Bubble Tea Cmd для чтения событий из Subscriber.
//
// Функция-конвертер вызывается для каждого полученного события и должна
// возвращать Bubble Tea сообщение. Закрытие подписки завершает программу.
//
// Пример использования в Bubble Tea Model:
//
//	func (m model) Init() tea.Cmd {
//	    return tui.ReceiveEventCmd(subscriber, func(evt events.Event) tea.Msg {
//	        return tui.EventMsg(evt)
//	    })
//	}
func ReceiveEventCmd(sub events.Subscriber, converter func(events.Event) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub.Events()
		if !ok {
			return tea.QuitMsg{}
		}
		return converter(event)
	}
}

// WaitForEvent возвращает Cmd который ждёт следующего события.
//
// Используется в Update() для продолжения чтения событий:
//
//	case tui.EventMsg:
//	    // ... обработка события
//	    return m, tui.WaitForEvent(sub, converter)
func WaitForEvent(sub events.Subscriber, converter func(events.Event) tea.Msg) tea.Cmd {
	return ReceiveEventCmd(sub, converter)
}
