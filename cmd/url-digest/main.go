// url-digest — конкурентная суммаризация списка веб-страниц.
//
// Все URL загружаются параллельно через worker pool, текст каждой
// страницы суммаризируется LLM. Результаты печатаются в порядке
// входных URL независимо от того, какая страница загрузилась первой.
//
// Использование:
//   go run cmd/url-digest/main.go https://go.dev https://ollama.com
//   go run cmd/url-digest/main.go -workers 8 -prompt prompts/summarizer.yaml <url...>
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilkoid/praktika-ai/pkg/config"
	"github.com/ilkoid/praktika-ai/pkg/digest"
	"github.com/ilkoid/praktika-ai/pkg/models"
	"github.com/ilkoid/praktika-ai/pkg/prompt"
	"github.com/ilkoid/praktika-ai/pkg/scrape"
	"github.com/ilkoid/praktika-ai/pkg/utils"
)

var (
	configFlag  = flag.String("config", "config.yaml", "Путь к config.yaml")
	modelFlag   = flag.String("model", "", "Алиас модели (по умолчанию default_chat)")
	workersFlag = flag.Int("workers", digest.DefaultWorkers, "Размер worker pool")
	promptFlag  = flag.String("prompt", "", "YAML файл с промптом суммаризации")
)

func main() {
	flag.Parse()

	urls := flag.Args()
	if len(urls) == 0 {
		fmt.Println("Использование: url-digest [flags] <url> [url...]")
		os.Exit(1)
	}

	// 1. Конфигурация, модель, fetcher
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	registry, err := models.NewRegistryFromConfig(cfg)
	if err != nil {
		log.Fatalf("Ошибка создания реестра моделей: %v", err)
	}

	provider, _, resolved, err := registry.GetWithFallback(*modelFlag, cfg.Models.DefaultChat)
	if err != nil {
		log.Fatalf("Ошибка выбора модели: %v", err)
	}

	fetcher := scrape.NewFetcher(cfg.HTTP)

	// 2. Суммаризатор; промпт можно подменить YAML файлом
	opts := []digest.Option{digest.WithWorkers(*workersFlag)}
	if *promptFlag != "" {
		opts = append(opts, digest.WithSystemPrompt(loadSystemPrompt(*promptFlag)))
	}
	summarizer := digest.NewSummarizer(fetcher, provider, opts...)

	fmt.Printf("🤖 Модель: %s, воркеров: %d, страниц: %d\n\n", resolved, *workersFlag, len(urls))

	// 3. Фан-аут; Ctrl+C отменяет недогруженные страницы
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	defer utils.SetupGracefulShutdown(cancel)()

	start := time.Now()
	results, err := summarizer.SummarizeURLs(ctx, urls)
	if err != nil {
		log.Fatalf("Ошибка суммаризации: %v", err)
	}

	// 4. Результаты в порядке входных URL
	failed := 0
	for i, r := range results {
		fmt.Printf("%d. %s\n", i+1, r.URL)
		if r.Err != nil {
			failed++
			fmt.Printf("   ❌ %v\n\n", r.Err)
			continue
		}
		if r.Title != "" {
			fmt.Printf("   📰 %s\n", r.Title)
		}
		fmt.Printf("   %s\n\n", r.Summary)
	}

	fmt.Printf("✅ Обработано %d страниц (%d с ошибками) за %.1fs\n",
		len(results), failed, time.Since(start).Seconds())
}

// loadSystemPrompt достаёт system сообщение из YAML промпта.
func loadSystemPrompt(path string) string {
	pf, err := prompt.Load(path)
	if err != nil {
		log.Fatalf("Ошибка загрузки промпта: %v", err)
	}
	for _, msg := range pf.Messages {
		if msg.Role == "system" {
			return msg.Content
		}
	}
	log.Fatalf("В файле %s нет system сообщения", path)
	return ""
}
