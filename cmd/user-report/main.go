// user-report — фиксированный аналитический отчёт по таблице пользователей.
//
// Читает CSV с колонками salary, occupation, email, считает агрегаты
// (мин/макс/среднее/медиана зарплаты, топ профессий, домены email)
// и пишет markdown отчёт. При настроенном S3 хранилище копия отчёта
// уходит в архив.
//
// Использование:
//   go run cmd/user-report/main.go -csv data/user_data4.csv
//   go run cmd/user-report/main.go -csv data/user_data4.csv -out report.md
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilkoid/praktika-ai/pkg/analyst"
	"github.com/ilkoid/praktika-ai/pkg/archive"
	"github.com/ilkoid/praktika-ai/pkg/config"
	"github.com/ilkoid/praktika-ai/pkg/dataset"
)

var (
	configFlag = flag.String("config", "config.yaml", "Путь к config.yaml")
	csvFlag    = flag.String("csv", "", "Путь к CSV файлу (обязательно)")
	outFlag    = flag.String("out", "user_analysis.md", "Файл отчёта")
)

func main() {
	flag.Parse()

	if *csvFlag == "" {
		fmt.Println("Использование: user-report -csv <файл.csv> [-out user_analysis.md]")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// 1. CSV → SQLite
	store, err := dataset.Open(":memory:")
	if err != nil {
		log.Fatalf("Ошибка открытия базы: %v", err)
	}
	defer store.Close()

	table := strings.TrimSuffix(filepath.Base(*csvFlag), filepath.Ext(*csvFlag))
	info, err := store.LoadCSV(ctx, *csvFlag, table)
	if err != nil {
		log.Fatalf("Ошибка загрузки CSV: %v", err)
	}
	fmt.Printf("📊 Загружено: %d строк из %s\n", info.RowCount, *csvFlag)

	// 2. Отчёт
	if err := analyst.WriteUserReport(ctx, store, table, *outFlag); err != nil {
		log.Fatalf("Ошибка построения отчёта: %v", err)
	}
	fmt.Printf("✅ Отчёт записан в %s\n", *outFlag)

	// 3. Копия в S3 архив, если хранилище настроено
	archiveReport(ctx, *configFlag, *outFlag)
}

// archiveReport отправляет отчёт в S3. Любая проблема здесь не фатальна:
// локальный отчёт уже записан.
func archiveReport(ctx context.Context, configPath, reportPath string) {
	cfg, err := config.Load(configPath)
	if err != nil || !cfg.S3.Enabled() {
		return
	}

	s3store, err := archive.New(cfg.S3)
	if err != nil {
		fmt.Printf("⚠️  Архив недоступен: %v\n", err)
		return
	}
	if err := s3store.EnsureBucket(ctx); err != nil {
		fmt.Printf("⚠️  Архив недоступен: %v\n", err)
		return
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		fmt.Printf("⚠️  Не удалось прочитать отчёт для архива: %v\n", err)
		return
	}

	key, err := s3store.SaveReport(ctx, filepath.Base(reportPath), data)
	if err != nil {
		fmt.Printf("⚠️  Не удалось сохранить в архив: %v\n", err)
		return
	}
	fmt.Printf("💾 Копия в архиве: %s\n", key)
}
