// Package scrape предоставляет HTTP fetcher для веб-страниц с
// rate limiting, retry логикой и извлечением контента из HTML.
//
// Fetcher — вежливый клиент: на каждый хост свой rate limiter, User-Agent
// представляется явно, тело ответа ограничено по размеру. Поверх него
// работают инструменты web_fetch / page_title и конвейер pkg/digest.
package scrape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/ilkoid/praktika-ai/pkg/config"
	"github.com/ilkoid/praktika-ai/pkg/utils"
)

// HTTPClient абстрагирует HTTP клиент для тестирования.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher загружает веб-страницы с соблюдением лимитов.
type Fetcher struct {
	httpClient    HTTPClient
	userAgent     string
	maxBodyBytes  int64
	retryAttempts int

	rateLimit int // запросов в минуту на хост
	burst     int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Option настраивает Fetcher.
type Option func(*Fetcher)

// WithHTTPClient подставляет HTTP клиент (для тестов).
func WithHTTPClient(hc HTTPClient) Option {
	return func(f *Fetcher) { f.httpClient = hc }
}

// WithRateLimit переопределяет лимит запросов на хост.
func WithRateLimit(perMinute, burst int) Option {
	return func(f *Fetcher) {
		f.rateLimit = perMinute
		f.burst = burst
	}
}

// NewFetcher создает Fetcher из HTTP секции конфигурации.
func NewFetcher(cfg config.HTTPConfig, opts ...Option) *Fetcher {
	cfg = cfg.GetDefaults()

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout.Std(),
		},
		userAgent:     cfg.UserAgent,
		maxBodyBytes:  cfg.MaxBodyBytes,
		retryAttempts: cfg.RetryAttempts,
		rateLimit:     cfg.RateLimit,
		burst:         3,
		limiters:      make(map[string]*rate.Limiter),
	}

	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch загружает страницу и возвращает тело ответа.
//
// Retry: сетевые ошибки и 5xx ретраятся, 429 ждёт Retry-After,
// остальные не-OK статусы фатальны. Тело ограничено max_body_bytes.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	body, _, err := f.fetch(ctx, pageURL)
	return body, err
}

// fetch выполняет запрос и возвращает тело вместе с Content-Type ответа.
func (f *Fetcher) fetch(ctx context.Context, pageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*")

	limiter := f.getOrCreateLimiter(req.URL.Host)

	var lastErr error
	startTime := time.Now()

	for i := 0; i < f.retryAttempts; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, "", fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := f.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read body: %w", readErr)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := 1 * time.Second
			if s := resp.Header.Get("Retry-After"); s != "" {
				if sec, aerr := strconv.Atoi(s); aerr == nil {
					retryAfter = time.Duration(sec) * time.Second
				}
			}

			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(retryAfter):
				continue
			}
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("fetch error: status %d for %s", resp.StatusCode, pageURL)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, "", fmt.Errorf("fetch error: status %d for %s", resp.StatusCode, pageURL)
		}

		utils.Debug("Page fetched",
			"url", pageURL,
			"size_bytes", len(body),
			"duration_ms", time.Since(startTime).Milliseconds())

		return body, resp.Header.Get("Content-Type"), nil
	}

	return nil, "", fmt.Errorf("max retries exceeded for %s, last error: %w", pageURL, lastErr)
}

// FetchHTML загружает страницу и парсит её в DOM дерево.
//
// Не-HTML ответы (PDF, JSON, картинки) отклоняются по Content-Type.
// Пустой Content-Type пропускается: часть серверов его не ставит.
// html.Parse терпим к невалидной разметке и ошибку почти не возвращает.
func (f *Fetcher) FetchHTML(ctx context.Context, pageURL string) (*html.Node, error) {
	body, contentType, err := f.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	if contentType != "" && !isHTMLContentType(contentType) {
		return nil, fmt.Errorf("not an html page: %s returned %q", pageURL, contentType)
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// isHTMLContentType проверяет что Content-Type описывает HTML документ.
func isHTMLContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.HasPrefix(mediaType, "text/html") ||
		strings.HasPrefix(mediaType, "application/xhtml")
}

// Title загружает страницу и возвращает содержимое тега <title>.
func (f *Fetcher) Title(ctx context.Context, pageURL string) (string, error) {
	doc, err := f.FetchHTML(ctx, pageURL)
	if err != nil {
		return "", err
	}

	title := ExtractTitle(doc)
	if title == "" {
		return "", fmt.Errorf("no title found at %s", pageURL)
	}
	return title, nil
}

// Text загружает страницу и возвращает видимый текст без разметки.
func (f *Fetcher) Text(ctx context.Context, pageURL string) (string, error) {
	doc, err := f.FetchHTML(ctx, pageURL)
	if err != nil {
		return "", err
	}
	return ExtractText(doc), nil
}

// getOrCreateLimiter возвращает limiter для хоста, создавая при необходимости.
func (f *Fetcher) getOrCreateLimiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	if l, ok := f.limiters[host]; ok {
		return l
	}

	// Конвертируем запросы-в-минуту в rate.Limit (запросы-в-секунду)
	l := rate.NewLimiter(rate.Limit(float64(f.rateLimit)/60.0), f.burst)
	f.limiters[host] = l
	return l
}
