// Package ollama реализует нативный клиент локального Ollama REST API.
//
// Architecture:
//
// Это **API SDK** поверх localhost:11434, а не обёртка вокруг чужого SDK:
//   - HTTP клиент с retry, rate limiting и классификацией ошибок
//   - Реализация llm.Provider / llm.StreamingProvider через POST /api/chat
//   - Completion режим через POST /api/generate
//   - Список установленных моделей через GET /api/tags
//
// Сравнение с pkg/llm/openai:
//   - openai адаптер работает через официальный SDK и покрывает облачных
//     провайдеров (OpenAI, DeepSeek, OpenRouter)
//   - ollama клиент говорит с локальным сервером его родным протоколом:
//     NDJSON стриминг, format как JSON значение, tool calls без id
//
// Ollama сам по себе не требует авторизации; OLLAMA_API_KEY отправляется
// Bearer заголовком только если задан (удалённые деплойменты за прокси).
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ilkoid/praktika-ai/pkg/config"
	"golang.org/x/time/rate"
)

// DefaultBaseURL — адрес локального сервера Ollama.
const DefaultBaseURL = "http://localhost:11434"

// ErrorType представляет тип ошибки при работе с Ollama API.
type ErrorType int

const (
	ErrUnknown ErrorType = iota
	ErrAuthFailed
	ErrTimeout
	ErrNetwork
	ErrRateLimit
	ErrModelNotFound
)

// String возвращает строковое представление типа ошибки.
func (e ErrorType) String() string {
	switch e {
	case ErrAuthFailed:
		return "authentication_failed"
	case ErrTimeout:
		return "timeout"
	case ErrNetwork:
		return "network_error"
	case ErrRateLimit:
		return "rate_limit"
	case ErrModelNotFound:
		return "model_not_found"
	default:
		return "unknown"
	}
}

// HumanMessage возвращает человекочитаемое сообщение для типа ошибки.
func (e ErrorType) HumanMessage() string {
	switch e {
	case ErrAuthFailed:
		return "Сервер отклонил авторизацию. Проверьте OLLAMA_API_KEY в конфигурации."
	case ErrTimeout:
		return "Превышено время ожидания. Модель грузится дольше timeout или сервер завис."
	case ErrNetwork:
		return "Сервер Ollama недоступен. Запустите 'ollama serve' и проверьте адрес."
	case ErrRateLimit:
		return "Превышен лимит запросов. Подождите перед следующей попыткой."
	case ErrModelNotFound:
		return "Модель не установлена. Выполните 'ollama pull <model>' и повторите."
	default:
		return "Неизвестная ошибка при подключении к Ollama API."
	}
}

// HTTPClient интерфейс для выполнения HTTP запросов.
//
// Позволяет мокировать HTTP клиент в тестах.
// Стандартный *http.Client реализует этот интерфейс.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client — клиент Ollama API. Реализует llm.Provider и llm.StreamingProvider.
type Client struct {
	baseURL       string
	apiKey        string
	model         string
	def           config.ModelDef
	httpClient    HTTPClient
	retryAttempts int
	rateLimit     int // запросов в минуту
	burst         int

	mu       sync.RWMutex
	limiters map[string]*rate.Limiter // endpoint → limiter
}

// Option настраивает клиент при создании.
type Option func(*Client)

// WithHTTPClient подменяет HTTP клиент (для тестов).
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryAttempts задаёт количество retry попыток.
func WithRetryAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.retryAttempts = n
		}
	}
}

// WithRateLimit задаёт лимит запросов в минуту и burst.
func WithRateLimit(perMinute, burst int) Option {
	return func(c *Client) {
		if perMinute > 0 {
			c.rateLimit = perMinute
		}
		if burst > 0 {
			c.burst = burst
		}
	}
}

// NewClient создает клиент на основе конфигурации модели.
//
// BaseURL по умолчанию http://localhost:11434; APIKey опционален.
func NewClient(modelDef config.ModelDef, opts ...Option) *Client {
	baseURL := modelDef.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	// Таймаут покрывает весь ответ, включая чтение стрима: холодный
	// старт грузит веса в память, генерация на CPU медленная.
	timeout := modelDef.Timeout.Std()
	if timeout == 0 {
		timeout = 5 * time.Minute
	}

	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        modelDef.APIKey,
		model:         modelDef.ModelName,
		def:           modelDef,
		retryAttempts: 3,
		rateLimit:     300, // локальный сервер, лимит защитный
		burst:         5,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiters: make(map[string]*rate.Limiter),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ClassifyError классифицирует ошибку по типу для лучшей диагностики.
//
// Анализирует текст ошибки и возвращает соответствующий тип:
//   - ErrAuthFailed: ошибки 401, unauthorized, Forbidden
//   - ErrTimeout: timeout, deadline exceeded
//   - ErrNetwork: connection refused, no such host
//   - ErrRateLimit: ошибки 429, Too Many Requests
//   - ErrModelNotFound: 404 с текстом "not found" (модель не установлена)
//   - ErrUnknown: все остальные ошибки
func (c *Client) ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrUnknown
	}

	errMsg := err.Error()
	errMsgLower := strings.ToLower(errMsg)

	if strings.Contains(errMsg, "401") ||
		strings.Contains(errMsgLower, "unauthorized") ||
		strings.Contains(errMsg, "Forbidden") {
		return ErrAuthFailed
	}

	if strings.Contains(errMsgLower, "timeout") ||
		strings.Contains(errMsg, "deadline exceeded") {
		return ErrTimeout
	}

	if strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "no such host") {
		return ErrNetwork
	}

	if strings.Contains(errMsg, "429") ||
		strings.Contains(errMsg, "Too Many Requests") {
		return ErrRateLimit
	}

	if strings.Contains(errMsg, "404") && strings.Contains(errMsgLower, "not found") {
		return ErrModelNotFound
	}

	return ErrUnknown
}

// doJSON выполняет запрос с retry логикой и rate limiting, декодируя
// JSON ответ в dest. Общий путь для нестриминговых вызовов.
func (c *Client) doJSON(ctx context.Context, endpointID, method, path string, payload any, dest any) error {
	limiter := c.getOrCreateLimiter(endpointID)

	var bodyBytes []byte
	if payload != nil {
		var err error
		bodyBytes, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
	}

	var lastErr error

	// Retry loop
	for i := 0; i < c.retryAttempts; i++ {
		// Ждем разрешения от лимитера
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := c.send(ctx, method, path, bodyBytes)
		if err != nil {
			lastErr = err
			continue // Сетевая ошибка, пробуем еще
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read body: %w", readErr)
			continue
		}

		// Обработка 429 (Too Many Requests)
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := 1 * time.Second // Дефолт
			if s := resp.Header.Get("Retry-After"); s != "" {
				if sec, aerr := strconv.Atoi(s); aerr == nil {
					retryAfter = time.Duration(sec) * time.Second
				}
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryAfter):
				continue
			}
		}

		// 5xx ретраим, остальные не-OK статусы фатальны
		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("ollama api error: status %d, body: %s", resp.StatusCode, string(body))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("ollama api error: status %d, body: %s", resp.StatusCode, string(body))
		}

		if dest != nil {
			if err := json.Unmarshal(body, dest); err != nil {
				return fmt.Errorf("unmarshal error: %w", err)
			}
		}

		return nil // Успех
	}

	return fmt.Errorf("max retries exceeded, last error: %w", lastErr)
}

// send собирает и выполняет один HTTP запрос.
func (c *Client) send(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	return c.httpClient.Do(httpReq)
}

// readCapped читает не больше limit байт из r. Для текстов ошибок в логах.
func readCapped(r io.Reader, limit int64) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit))
	return string(b), err
}

// getOrCreateLimiter возвращает существующий limiter для endpoint или создаёт новый.
func (c *Client) getOrCreateLimiter(endpointID string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limiter, exists := c.limiters[endpointID]; exists {
		return limiter
	}

	// rateLimit в запросах/минуту → rate.Limit в запросах/секунду
	ratePerSec := float64(c.rateLimit) / 60.0
	limiter := rate.NewLimiter(rate.Limit(ratePerSec), c.burst)
	c.limiters[endpointID] = limiter

	return limiter
}
