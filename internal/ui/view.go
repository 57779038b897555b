// Рендер
package ui

import (
	"fmt"
	"strings"
)

func (m ChatModel) View() string {
	if !m.ready {
		return "Initializing UI..."
	}

	// Формируем строку статуса (Header)
	status := fmt.Sprintf(" PRAKTIKA CHAT | MODEL: %s ", m.modelName)

	// Растягиваем хедер на всю ширину
	header := headerStyle.
		Width(m.viewport.Width).
		Render(status)

	// Разделительная линия
	borderWidth := m.viewport.Width
	if borderWidth < 10 {
		borderWidth = 10
	}
	border := borderStyle.Render(strings.Repeat("─", borderWidth))

	// Собираем всё вместе: Header + Viewport + Border + Input
	view := fmt.Sprintf("%s\n%s\n%s\n%s",
		header,
		m.viewport.View(),
		border,
		m.textarea.View(),
	)

	// Статусная строка: спиннер во время работы, иначе подсказка
	if m.processing {
		view += "\n" + m.spinner.View() + " " + m.status
	} else if m.status != "" {
		view += "\n" + systemMsgStyle(m.status)
	}

	return view
}
