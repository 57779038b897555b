package factory

import (
	"fmt"

	"github.com/ilkoid/praktika-ai/pkg/config"
	"github.com/ilkoid/praktika-ai/pkg/llm"
	"github.com/ilkoid/praktika-ai/pkg/llm/ollama"
	"github.com/ilkoid/praktika-ai/pkg/llm/openai"
)

// Дефолтные base_url для провайдеров с OpenAI-совместимым API.
// Указанный в конфиге base_url всегда имеет приоритет.
const (
	deepseekBaseURL   = "https://api.deepseek.com/v1"
	openRouterBaseURL = "https://openrouter.ai/api/v1"
)

// NewLLMProvider создает провайдера на основе конфигурации модели.
//
// Провайдеры "openai", "deepseek", "openrouter" и "compat" говорят на
// OpenAI-совместимом chat completions API и обслуживаются одним
// адаптером. "ollama" использует нативный REST API локального сервера
// (/api/chat, /api/generate) и требует отдельного клиента.
func NewLLMProvider(modelDef config.ModelDef) (llm.Provider, error) {
	switch modelDef.Provider {
	case "openai", "compat":
		return openai.NewClient(modelDef), nil

	case "deepseek":
		if modelDef.BaseURL == "" {
			modelDef.BaseURL = deepseekBaseURL
		}
		return openai.NewClient(modelDef), nil

	case "openrouter":
		if modelDef.BaseURL == "" {
			modelDef.BaseURL = openRouterBaseURL
		}
		return openai.NewClient(modelDef), nil

	case "ollama":
		return ollama.NewClient(modelDef), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s", modelDef.Provider)
	}
}

// NewStreamingProvider создает провайдера и проверяет поддержку стриминга.
// Оба встроенных провайдера стриминг поддерживают; проверка защищает
// вызывающий код от будущих провайдеров без него.
func NewStreamingProvider(modelDef config.ModelDef) (llm.StreamingProvider, error) {
	provider, err := NewLLMProvider(modelDef)
	if err != nil {
		return nil, err
	}
	sp, ok := provider.(llm.StreamingProvider)
	if !ok {
		return nil, fmt.Errorf("provider %s does not support streaming", modelDef.Provider)
	}
	return sp, nil
}
