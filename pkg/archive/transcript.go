package archive

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilkoid/praktika-ai/pkg/llm"
)

// renderTranscript превращает историю диалога в markdown документ.
// Tool calls и вложенные изображения отражаются пометками, сами данные
// изображений в расшифровку не попадают.
func renderTranscript(sessionID string, history []llm.Message, now time.Time) []byte {
	var b strings.Builder

	if sessionID == "" {
		sessionID = "session"
	}
	fmt.Fprintf(&b, "# Диалог %s\n\n", sessionID)
	fmt.Fprintf(&b, "_Сохранено: %s, сообщений: %d_\n", now.Format("2006-01-02 15:04:05"), len(history))

	for i, msg := range history {
		fmt.Fprintf(&b, "\n## %d. %s\n\n", i+1, roleLabel(msg.Role))

		if len(msg.Images) > 0 {
			fmt.Fprintf(&b, "_вложено изображений: %d_\n\n", len(msg.Images))
		}

		for _, call := range msg.ToolCalls {
			fmt.Fprintf(&b, "- вызов инструмента `%s`: `%s`\n", call.Name, strings.TrimSpace(call.Args))
		}
		if len(msg.ToolCalls) > 0 && msg.Content != "" {
			b.WriteString("\n")
		}

		if content := strings.TrimSpace(msg.Content); content != "" {
			b.WriteString(content)
			b.WriteString("\n")
		}
	}

	return []byte(b.String())
}

func roleLabel(role llm.Role) string {
	switch role {
	case llm.RoleSystem:
		return "Система"
	case llm.RoleUser:
		return "Пользователь"
	case llm.RoleAssistant:
		return "Ассистент"
	case llm.RoleTool:
		return "Инструмент"
	default:
		return string(role)
	}
}
