// page-titles — параллельное извлечение <title> со списка страниц.
//
// Та же конкурентная схема что в url-digest, но без LLM: только
// загрузка и разбор HTML. Удобно для проверки fetcher'а и быстрых
// обходов списков ссылок.
//
// Использование:
//   go run cmd/page-titles/main.go https://go.dev https://news.ycombinator.com
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
	"github.com/ilkoid/praktika-ai/pkg/scrape"
)

var (
	configFlag  = flag.String("config", "config.yaml", "Путь к config.yaml")
	workersFlag = flag.Int("workers", digest.DefaultWorkers, "Размер worker pool")
)

func main() {
	flag.Parse()

	urls := flag.Args()
	if len(urls) == 0 {
		fmt.Println("Использование: page-titles [flags] <url> [url...]")
		os.Exit(1)
	}

	// Конфигурация нужна только для HTTP настроек; без файла — дефолты
	var httpCfg config.HTTPConfig
	if cfg, err := config.Load(*configFlag); err == nil {
		httpCfg = cfg.HTTP
	}

	fetcher := scrape.NewFetcher(httpCfg)
	summarizer := digest.NewSummarizer(fetcher, nil, digest.WithWorkers(*workersFlag))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	results, err := summarizer.FetchTitles(ctx, urls)
	if err != nil {
		log.Fatalf("Ошибка загрузки: %v", err)
	}

	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("❌ %s — %v\n", r.URL, r.Err)
			continue
		}
		fmt.Printf("✅ %s — %s\n", r.URL, r.Title)
	}

	fmt.Printf("\nГотово за %.1fs\n", time.Since(start).Seconds())
}
