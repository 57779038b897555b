package models

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/ilkoid/praktika-ai/pkg/llm/ollama"
	"github.com/ilkoid/praktika-ai/pkg/utils"
)

// openRouterModelsURL — публичный эндпоинт каталога, ключ не требуется.
const openRouterModelsURL = "https://openrouter.ai/api/v1/models"

// CatalogEntry — одна модель в объединённом каталоге.
type CatalogEntry struct {
	// ID — идентификатор для API вызовов ("openai/gpt-4o-mini", "llama3.2:latest")
	ID string

	// Name — человекочитаемое имя из источника
	Name string

	// Source — откуда модель: "openrouter" или "ollama"
	Source string

	// ContextLength — размер контекстного окна в токенах (0 = неизвестно)
	ContextLength int

	// PromptPrice и CompletionPrice — цена в USD за 1M токенов (0 = бесплатно)
	PromptPrice     float64
	CompletionPrice float64
}

// HTTPClient абстрагирует HTTP клиент для тестирования.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Catalog собирает список доступных моделей из внешних источников.
//
// Источники независимы: падение одного не валит весь каталог, результат
// в этом случае частичный. Ошибка возвращается только когда не ответил
// ни один источник.
type Catalog struct {
	httpClient HTTPClient
	userAgent  string
	baseURL    string
	local      *ollama.Client
}

// CatalogOption настраивает каталог.
type CatalogOption func(*Catalog)

// WithHTTPClient подставляет HTTP клиент (для тестов).
func WithHTTPClient(hc HTTPClient) CatalogOption {
	return func(c *Catalog) { c.httpClient = hc }
}

// WithUserAgent задаёт User-Agent для запросов к OpenRouter.
func WithUserAgent(ua string) CatalogOption {
	return func(c *Catalog) { c.userAgent = ua }
}

// WithBaseURL переопределяет URL каталога OpenRouter (для тестов).
func WithBaseURL(url string) CatalogOption {
	return func(c *Catalog) { c.baseURL = url }
}

// WithLocalModels добавляет локальный Ollama сервер как источник.
func WithLocalModels(client *ollama.Client) CatalogOption {
	return func(c *Catalog) { c.local = client }
}

// NewCatalog создаёт каталог моделей.
func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{
		httpClient: &http.Client{},
		baseURL:    openRouterModelsURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch собирает каталог из всех настроенных источников.
//
// Модели отсортированы по источнику, затем по ID. При отказе одного
// источника возвращается частичный список и пишется warning в лог.
func (c *Catalog) Fetch(ctx context.Context) ([]CatalogEntry, error) {
	var entries []CatalogEntry
	var failures []error

	remote, err := c.FetchOpenRouter(ctx)
	if err != nil {
		utils.Warn("OpenRouter catalog unavailable", "error", err.Error())
		failures = append(failures, fmt.Errorf("openrouter: %w", err))
	} else {
		entries = append(entries, remote...)
	}

	if c.local != nil {
		localModels, err := c.FetchOllama(ctx)
		if err != nil {
			utils.Warn("Ollama catalog unavailable", "error", err.Error())
			failures = append(failures, fmt.Errorf("ollama: %w", err))
		} else {
			entries = append(entries, localModels...)
		}
	}

	if len(entries) == 0 && len(failures) > 0 {
		return nil, fmt.Errorf("no catalog source available: %v", failures)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Source != entries[j].Source {
			return entries[i].Source < entries[j].Source
		}
		return entries[i].ID < entries[j].ID
	})

	return entries, nil
}

// openRouterModel — элемент ответа GET /api/v1/models.
// Цены приходят строками в USD за один токен.
type openRouterModel struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContextLength int    `json:"context_length"`
	Pricing       struct {
		Prompt     string `json:"prompt"`
		Completion string `json:"completion"`
	} `json:"pricing"`
}

type openRouterModelsResponse struct {
	Data []openRouterModel `json:"data"`
}

// FetchOpenRouter запрашивает публичный каталог OpenRouter.
func (c *Catalog) FetchOpenRouter(ctx context.Context) ([]CatalogEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("openrouter api error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var parsed openRouterModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode models response: %w", err)
	}

	entries := make([]CatalogEntry, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		entries = append(entries, CatalogEntry{
			ID:              m.ID,
			Name:            m.Name,
			Source:          "openrouter",
			ContextLength:   m.ContextLength,
			PromptPrice:     pricePerMillion(m.Pricing.Prompt),
			CompletionPrice: pricePerMillion(m.Pricing.Completion),
		})
	}

	utils.Debug("OpenRouter catalog fetched", "models_count", len(entries))
	return entries, nil
}

// FetchOllama запрашивает список локально установленных моделей.
func (c *Catalog) FetchOllama(ctx context.Context) ([]CatalogEntry, error) {
	if c.local == nil {
		return nil, fmt.Errorf("ollama source is not configured")
	}

	tags, err := c.local.Tags(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]CatalogEntry, 0, len(tags))
	for _, m := range tags {
		entries = append(entries, CatalogEntry{
			ID:     m.Name,
			Name:   describeLocalModel(m),
			Source: "ollama",
		})
	}

	utils.Debug("Ollama catalog fetched", "models_count", len(entries))
	return entries, nil
}

// Filter возвращает модели, ID или имя которых содержит подстроку query.
// Сравнение без учёта регистра. Пустой query возвращает всё как есть.
func Filter(entries []CatalogEntry, query string) []CatalogEntry {
	if query == "" {
		return entries
	}

	q := strings.ToLower(query)
	filtered := make([]CatalogEntry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.ID), q) || strings.Contains(strings.ToLower(e.Name), q) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// RenderTable форматирует каталог в выровненную таблицу для терминала.
func RenderTable(entries []CatalogEntry) string {
	if len(entries) == 0 {
		return "no models found"
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("MODEL", "SOURCE", "CONTEXT", "PROMPT $/1M", "COMPLETION $/1M")

	for _, e := range entries {
		t.Row(e.ID, e.Source, formatContext(e.ContextLength),
			formatPrice(e.PromptPrice), formatPrice(e.CompletionPrice))
	}

	return t.String()
}

// pricePerMillion переводит строковую цену за токен в USD за 1M токенов.
func pricePerMillion(perToken string) float64 {
	v, err := strconv.ParseFloat(perToken, 64)
	if err != nil {
		return 0
	}
	return v * 1_000_000
}

func formatContext(tokens int) string {
	if tokens == 0 {
		return "-"
	}
	return humanize.Comma(int64(tokens))
}

func formatPrice(perMillion float64) string {
	if perMillion == 0 {
		return "free"
	}
	return fmt.Sprintf("$%.2f", perMillion)
}

// describeLocalModel собирает короткое описание из деталей модели.
func describeLocalModel(m ollama.ModelInfo) string {
	parts := make([]string, 0, 3)
	if m.Details.ParameterSize != "" {
		parts = append(parts, m.Details.ParameterSize)
	}
	if m.Details.QuantizationLevel != "" {
		parts = append(parts, m.Details.QuantizationLevel)
	}
	if m.Size > 0 {
		parts = append(parts, humanize.IBytes(uint64(m.Size)))
	}
	if len(parts) == 0 {
		return m.Name
	}
	return fmt.Sprintf("%s (%s)", m.Name, strings.Join(parts, ", "))
}
