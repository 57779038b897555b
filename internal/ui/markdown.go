package ui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	glamourstyles "github.com/charmbracelet/glamour/styles"
)

// MarkdownRenderer рендерит markdown ответы агента в терминальный вывод.
//
// Glamour renderer пересоздаётся при изменении ширины окна.
// WithAutoStyle здесь использовать нельзя: он опрашивает терминал
// (OSC 11), что гонится с обработкой ввода Bubble Tea и просачивает
// escape последовательности в textarea. Стиль фиксируется заранее.
type MarkdownRenderer struct {
	mu       sync.Mutex
	renderer *glamour.TermRenderer
	width    int
	darkBG   bool
}

// NewMarkdownRenderer создаёт renderer под тёмный или светлый фон.
func NewMarkdownRenderer(darkBG bool) *MarkdownRenderer {
	r := &MarkdownRenderer{darkBG: darkBG}
	r.init(100)
	return r
}

// SetWidth пересоздаёт renderer под новую ширину.
func (r *MarkdownRenderer) SetWidth(width int) {
	if width <= 0 {
		width = 100
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if width == r.width && r.renderer != nil {
		return
	}
	r.initLocked(width)
}

// Render конвертирует markdown в терминальный вывод.
// При любой ошибке возвращает исходный текст.
func (r *MarkdownRenderer) Render(text string) string {
	r.mu.Lock()
	renderer := r.renderer
	r.mu.Unlock()

	if renderer == nil {
		return text
	}
	out, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func (r *MarkdownRenderer) init(width int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initLocked(width)
}

func (r *MarkdownRenderer) initLocked(width int) {
	style := glamourstyles.LightStyleConfig
	if r.darkBG {
		style = glamourstyles.DarkStyleConfig
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return
	}
	r.renderer = renderer
	r.width = width
}
