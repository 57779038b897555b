// Package digest реализует конкурентную обработку списков URL:
// параллельная загрузка страниц с суммаризацией через LLM или без неё.
//
// Фан-аут работает на worker pool (ants): каждый URL обрабатывается
// в своей задаче, результаты пишутся в слот по индексу, поэтому порядок
// результатов всегда совпадает с порядком входных URL независимо от
// того, кто закончил первым.
//
// Ошибка одного URL не роняет остальные: она записывается в Result.Err.
package digest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/ilkoid/praktika-ai/pkg/llm"
	"github.com/ilkoid/praktika-ai/pkg/scrape"
	"github.com/ilkoid/praktika-ai/pkg/utils"
)

const (
	// DefaultWorkers — размер пула по умолчанию.
	// Загрузка страниц I/O-bound, но вежливость к сайтам важнее скорости.
	DefaultWorkers = 4

	// maxInputChars — лимит текста страницы, отправляемого в LLM.
	maxInputChars = 6000
)

// defaultSummaryPrompt используется когда промпт не переопределён.
const defaultSummaryPrompt = `Ты суммаризатор веб-страниц.
Суммаризируй текст страницы в 2-3 предложениях на русском языке.
Только факты из текста, без вступлений и выводов.`

// Result — итог обработки одного URL.
type Result struct {
	URL     string
	Title   string
	Summary string
	Err     error
}

// Summarizer выполняет конкурентную загрузку и суммаризацию URL.
type Summarizer struct {
	fetcher      *scrape.Fetcher
	provider     llm.Provider
	workers      int
	systemPrompt string
}

// Option настраивает Summarizer.
type Option func(*Summarizer)

// WithWorkers задаёт размер worker pool.
func WithWorkers(n int) Option {
	return func(s *Summarizer) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithSystemPrompt переопределяет промпт суммаризации.
func WithSystemPrompt(prompt string) Option {
	return func(s *Summarizer) {
		if prompt != "" {
			s.systemPrompt = prompt
		}
	}
}

// NewSummarizer создаёт Summarizer.
//
// provider может быть nil если нужны только заголовки (FetchTitles).
func NewSummarizer(fetcher *scrape.Fetcher, provider llm.Provider, opts ...Option) *Summarizer {
	s := &Summarizer{
		fetcher:      fetcher,
		provider:     provider,
		workers:      DefaultWorkers,
		systemPrompt: defaultSummaryPrompt,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SummarizeURLs загружает все URL параллельно и суммаризирует каждый через LLM.
//
// Результаты возвращаются в порядке входных URL. Ошибки отдельных URL
// записываются в Result.Err. Отмена контекста останавливает постановку
// новых задач, уже запущенные дорабатывают.
func (s *Summarizer) SummarizeURLs(ctx context.Context, urls []string) ([]Result, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("llm provider is not set")
	}
	return s.fanOut(ctx, urls, s.summarizeOne)
}

// FetchTitles загружает все URL параллельно и извлекает <title> каждого.
//
// Та же схема что SummarizeURLs, но без LLM.
func (s *Summarizer) FetchTitles(ctx context.Context, urls []string) ([]Result, error) {
	return s.fanOut(ctx, urls, s.titleOne)
}

// fanOut раздаёт URL задачам пула и собирает результаты по индексам.
func (s *Summarizer) fanOut(ctx context.Context, urls []string, job func(context.Context, string) Result) ([]Result, error) {
	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	start := time.Now()
	utils.Info("URL fan-out started", "urls", len(urls), "workers", s.workers)

	results := make([]Result, len(urls))
	var wg sync.WaitGroup

	for i, pageURL := range urls {
		if ctxErr := ctx.Err(); ctxErr != nil {
			// Контекст отменён: оставшиеся URL помечаем, не запуская
			for j := i; j < len(urls); j++ {
				results[j] = Result{URL: urls[j], Err: fmt.Errorf("cancelled: %w", ctxErr)}
			}
			break
		}

		i, pageURL := i, pageURL
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			results[i] = job(ctx, pageURL)
		})
		if submitErr != nil {
			wg.Done()
			results[i] = Result{URL: pageURL, Err: fmt.Errorf("failed to submit job: %w", submitErr)}
		}
	}

	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	utils.Info("URL fan-out completed",
		"urls", len(urls),
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds())

	return results, nil
}

// summarizeOne обрабатывает один URL: страница → текст → LLM.
func (s *Summarizer) summarizeOne(ctx context.Context, pageURL string) Result {
	result := Result{URL: pageURL}

	doc, err := s.fetcher.FetchHTML(ctx, pageURL)
	if err != nil {
		result.Err = err
		return result
	}

	result.Title = scrape.ExtractTitle(doc)
	text := scrape.TruncateText(scrape.ExtractText(doc), maxInputChars)
	if text == "" {
		result.Err = fmt.Errorf("no text content at %s", pageURL)
		return result
	}

	response, err := s.provider.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: s.systemPrompt},
		{Role: llm.RoleUser, Content: text},
	})
	if err != nil {
		result.Err = fmt.Errorf("summarize %s: %w", pageURL, err)
		return result
	}

	result.Summary = utils.SanitizeLLMOutput(response.Content)
	utils.Debug("URL summarized", "url", pageURL, "summary_length", len(result.Summary))
	return result
}

// titleOne обрабатывает один URL: только заголовок страницы.
func (s *Summarizer) titleOne(ctx context.Context, pageURL string) Result {
	result := Result{URL: pageURL}
	title, err := s.fetcher.Title(ctx, pageURL)
	if err != nil {
		result.Err = err
		return result
	}
	result.Title = title
	return result
}
