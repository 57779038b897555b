package std

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ilkoid/praktika-ai/pkg/config"
	"github.com/ilkoid/praktika-ai/pkg/llm/ollama"
	"github.com/ilkoid/praktika-ai/pkg/models"
	"github.com/ilkoid/praktika-ai/pkg/tools"
)

// Дефолтные base_url для проверки доступности провайдеров.
var providerBaseURLs = map[string]string{
	"openai":     "https://api.openai.com/v1",
	"deepseek":   "https://api.deepseek.com/v1",
	"openrouter": "https://openrouter.ai/api/v1",
}

// LLMPingTool — инструмент для проверки доступности LLM провайдера.
//
// Позволяет агенту проверить, доступен ли провайдер и валиден ли API
// ключ, не тратя токены на полноценный chat запрос. Облачные провайдеры
// проверяются через GET /models, локальный Ollama — через /api/version.
type LLMPingTool struct {
	modelRegistry *models.Registry
	cfg           *config.AppConfig // Для получения default_chat
	httpClient    HTTPClient
}

// PingOption настраивает LLMPingTool.
type PingOption func(*LLMPingTool)

// WithPingHTTPClient подставляет HTTP клиент (для тестов).
func WithPingHTTPClient(hc HTTPClient) PingOption {
	return func(t *LLMPingTool) { t.httpClient = hc }
}

// NewLLMPingTool создает инструмент проверки доступности провайдера.
func NewLLMPingTool(registry *models.Registry, cfg *config.AppConfig, opts ...PingOption) *LLMPingTool {
	t := &LLMPingTool{
		modelRegistry: registry,
		cfg:           cfg,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Definition возвращает определение инструмента для function calling.
func (t *LLMPingTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "ping_llm_provider",
		Description: "Проверить доступность LLM провайдера и валидность API ключа. Используй когда пользователь жалуется что модель не отвечает.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"model": map[string]interface{}{
					"type":        "string",
					"description": "Алиас модели из конфигурации (например, 'chat', 'local'). Если не указан, используется default_chat модель.",
				},
			},
			"required": []string{}, // model - опциональный параметр
		},
	}
}

// Execute выполняет инструмент согласно контракту "Raw In, String Out".
func (t *LLMPingTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		// Пустой JSON допустим: модель будет выбрана по умолчанию
		args.Model = ""
	}

	modelAlias := args.Model
	if modelAlias == "" {
		modelAlias = t.cfg.Models.DefaultChat
		if modelAlias == "" {
			return t.marshalErrorResult("default_chat модель не настроена в конфигурации", "CONFIG_ERROR")
		}
	}

	_, modelDef, err := t.modelRegistry.Get(modelAlias)
	if err != nil {
		return t.marshalErrorResult(fmt.Sprintf("модель '%s' не найдена в реестре: %v", modelAlias, err), "MODEL_NOT_FOUND")
	}

	var result map[string]interface{}
	if modelDef.Provider == "ollama" {
		result = t.pingOllama(ctx, modelAlias, modelDef)
	} else {
		result = t.pingAPI(ctx, modelAlias, modelDef)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// pingOllama проверяет локальный сервер через нативный клиент.
func (t *LLMPingTool) pingOllama(ctx context.Context, modelAlias string, modelDef config.ModelDef) map[string]interface{} {
	client := ollama.NewClient(modelDef)

	startTime := time.Now()
	version, err := client.Version(ctx)
	latency := time.Since(startTime)

	if err != nil {
		errType := client.ClassifyError(err)
		return map[string]interface{}{
			"available":  false,
			"provider":   "ollama",
			"model":      modelDef.ModelName,
			"error":      err.Error(),
			"error_type": errType.String(),
			"message":    errType.HumanMessage(),
		}
	}

	return map[string]interface{}{
		"available":  true,
		"provider":   "ollama",
		"model":      modelDef.ModelName,
		"version":    version,
		"latency_ms": latency.Milliseconds(),
		"status":     "OK",
		"message":    fmt.Sprintf("Ollama сервер доступен (версия %s). Модель '%s' настроена.", version, modelAlias),
	}
}

// pingAPI выполняет тестовый запрос к OpenAI-совместимому API.
func (t *LLMPingTool) pingAPI(ctx context.Context, modelAlias string, modelDef config.ModelDef) map[string]interface{} {
	baseURL := modelDef.BaseURL
	if baseURL == "" {
		baseURL = providerBaseURLs[modelDef.Provider]
	}
	if baseURL == "" {
		return t.buildErrorResult(fmt.Sprintf("модель '%s' не имеет base_url в конфигурации", modelAlias), "CONFIG_ERROR")
	}
	if modelDef.APIKey == "" {
		return t.buildErrorResult(fmt.Sprintf("API ключ для модели '%s' не настроен", modelAlias), "API_KEY_MISSING")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/models", nil)
	if err != nil {
		return t.buildErrorResult(fmt.Sprintf("ошибка создания запроса: %v", err), "REQUEST_ERROR")
	}
	req.Header.Set("Authorization", "Bearer "+modelDef.APIKey)
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := t.httpClient.Do(req)
	latency := time.Since(startTime)

	if err != nil {
		return t.buildErrorResult(fmt.Sprintf("ошибка подключения: %v", err), "CONNECTION_ERROR")
	}
	defer resp.Body.Close()

	result := map[string]interface{}{
		"available":   true,
		"provider":    modelDef.Provider,
		"model":       modelDef.ModelName,
		"base_url":    baseURL,
		"status_code": resp.StatusCode,
		"latency_ms":  latency.Milliseconds(),
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		result["status"] = "OK"
		result["message"] = fmt.Sprintf("%s API доступен. Модель '%s' (%s) работает корректно.", modelDef.Provider, modelAlias, modelDef.ModelName)
	case resp.StatusCode == http.StatusUnauthorized:
		result["available"] = false
		result["error"] = "недействительный API ключ"
		result["error_type"] = "AUTH_ERROR"
		result["message"] = fmt.Sprintf("API ключ для модели '%s' недействителен. Проверьте переменную окружения.", modelAlias)
	case resp.StatusCode == http.StatusTooManyRequests:
		result["available"] = false
		result["error"] = "превышен лимит запросов"
		result["error_type"] = "RATE_LIMIT_ERROR"
		result["message"] = fmt.Sprintf("Превышен лимит запросов к %s API. Попробуйте позже.", modelDef.Provider)
	default:
		result["available"] = false
		result["error"] = fmt.Sprintf("HTTP %d", resp.StatusCode)
		result["error_type"] = "HTTP_ERROR"
		result["message"] = fmt.Sprintf("%s API вернул статус %d. Проверьте конфигурацию.", modelDef.Provider, resp.StatusCode)
	}

	return result
}

// buildErrorResult создает результат ошибки в формате map.
func (t *LLMPingTool) buildErrorResult(message, errType string) map[string]interface{} {
	return map[string]interface{}{
		"available":  false,
		"error":      message,
		"error_type": errType,
		"message":    message,
	}
}

// marshalErrorResult создает результат ошибки и маршалит его в JSON строку.
func (t *LLMPingTool) marshalErrorResult(message, errType string) (string, error) {
	result := t.buildErrorResult(message, errType)
	data, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
