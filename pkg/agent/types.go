package agent

import (
	"context"

	"github.com/ilkoid/praktika-ai/pkg/events"
	"github.com/ilkoid/praktika-ai/pkg/llm"
)

// Agent — контракт агента для UI слоёв.
//
// Интерфейс покрывает минимум, нужный интерактивным интерфейсам:
// выполнить запрос, подписаться на события, прочитать историю.
// Client реализует его полностью; в тестах UI подменяется моком.
type Agent interface {
	// Run выполняет запрос и возвращает финальный ответ.
	Run(ctx context.Context, query string) (string, error)

	// Subscribe возвращает подписку на события выполнения.
	Subscribe() events.Subscriber

	// GetHistory возвращает копию истории диалога.
	GetHistory() []llm.Message

	// ResetHistory начинает новый диалог.
	ResetHistory()
}
