// Фиксированный аналитический отчёт по таблице пользователей.
//
// Go версия классической pandas связки: агрегаты считаются SQL запросами
// где SQLite умеет (MIN/MAX/AVG/GROUP BY), и в Go где не умеет
// (median, разбор email доменов).

package analyst

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ilkoid/praktika-ai/pkg/dataset"
	"github.com/ilkoid/praktika-ai/pkg/utils"
)

// UserStats — агрегаты по таблице пользователей.
type UserStats struct {
	MinSalary    float64
	MaxSalary    float64
	AvgSalary    float64
	MedianSalary float64

	// TopOccupations — до трёх самых частых профессий, по убыванию.
	TopOccupations []NameCount

	// EmailDomains — пользователи по доменам email, по убыванию.
	EmailDomains []NameCount
}

// NameCount — пара значение/количество для частотных срезов.
type NameCount struct {
	Name  string
	Count int
}

// BuildUserReport считает статистику по таблице и возвращает markdown отчёт.
//
// Таблица должна содержать колонки salary, occupation и email.
func BuildUserReport(ctx context.Context, store *dataset.Store, table string) (string, error) {
	stats, err := CollectUserStats(ctx, store, table)
	if err != nil {
		return "", err
	}
	return renderUserReport(stats), nil
}

// WriteUserReport строит отчёт и сохраняет его в файл.
func WriteUserReport(ctx context.Context, store *dataset.Store, table, path string) error {
	report, err := BuildUserReport(ctx, store, table)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	utils.Info("User report written", "path", path, "size_bytes", len(report))
	return nil
}

// CollectUserStats выполняет все агрегации по таблице.
func CollectUserStats(ctx context.Context, store *dataset.Store, table string) (UserStats, error) {
	var stats UserStats

	salaries, err := numericColumn(ctx, store, table, "salary")
	if err != nil {
		return stats, err
	}
	if len(salaries) == 0 {
		return stats, fmt.Errorf("table %s has no salary data", table)
	}

	stats.MinSalary = salaries[0] // колонка уже отсортирована запросом
	stats.MaxSalary = salaries[len(salaries)-1]
	stats.AvgSalary = mean(salaries)
	stats.MedianSalary = medianOfSorted(salaries)

	stats.TopOccupations, err = topOccupations(ctx, store, table)
	if err != nil {
		return stats, err
	}

	stats.EmailDomains, err = emailDomains(ctx, store, table)
	if err != nil {
		return stats, err
	}

	return stats, nil
}

// renderUserReport форматирует статистику в markdown.
func renderUserReport(stats UserStats) string {
	var sb strings.Builder

	sb.WriteString("# User Data Analysis Report\n\n")

	sb.WriteString("## Salary Analysis\n\n")
	fmt.Fprintf(&sb, "**Minimum Salary:** %s\n\n", formatNumber(stats.MinSalary))
	fmt.Fprintf(&sb, "**Maximum Salary:** %s\n\n", formatNumber(stats.MaxSalary))
	fmt.Fprintf(&sb, "**Average Salary:** %.2f\n\n", stats.AvgSalary)
	fmt.Fprintf(&sb, "**Median Salary:** %s\n\n", formatNumber(stats.MedianSalary))

	sb.WriteString("## Additional Insights\n\n")

	sb.WriteString("### Top 3 Most Common Occupations\n\n")
	for i, oc := range stats.TopOccupations {
		fmt.Fprintf(&sb, "%d. %s: %d user(s)\n", i+1, oc.Name, oc.Count)
	}
	sb.WriteString("\n")

	sb.WriteString("### Count of Users by Email Domain\n\n")
	for _, dom := range stats.EmailDomains {
		fmt.Fprintf(&sb, "- %s: %d user(s)\n", dom.Name, dom.Count)
	}

	return sb.String()
}

// numericColumn читает числовую колонку отсортированной.
func numericColumn(ctx context.Context, store *dataset.Store, table, column string) ([]float64, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL AND %s != '' ORDER BY %s",
		column, table, column, column, column)
	result, err := store.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read column %s: %w", column, err)
	}

	values := make([]float64, 0, len(result.Rows))
	for _, row := range result.Rows {
		v, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, fmt.Errorf("column %s is not numeric: %q", column, row[0])
		}
		values = append(values, v)
	}
	return values, nil
}

// topOccupations возвращает до трёх самых частых профессий.
// При равенстве частот порядок алфавитный, чтобы отчёт был детерминирован.
func topOccupations(ctx context.Context, store *dataset.Store, table string) ([]NameCount, error) {
	query := fmt.Sprintf(
		"SELECT occupation, COUNT(*) AS cnt FROM %s GROUP BY occupation ORDER BY cnt DESC, occupation ASC LIMIT 3",
		table)
	result, err := store.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count occupations: %w", err)
	}

	counts := make([]NameCount, 0, len(result.Rows))
	for _, row := range result.Rows {
		n, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("bad occupation count %q: %w", row[1], err)
		}
		counts = append(counts, NameCount{Name: row[0], Count: n})
	}
	return counts, nil
}

// emailDomains считает пользователей по домену email.
// Разбор домена делается в Go: SQLite без расширений не умеет split.
func emailDomains(ctx context.Context, store *dataset.Store, table string) ([]NameCount, error) {
	result, err := store.Query(ctx, fmt.Sprintf("SELECT email FROM %s", table))
	if err != nil {
		return nil, fmt.Errorf("read emails: %w", err)
	}

	byDomain := make(map[string]int)
	for _, row := range result.Rows {
		_, domain, found := strings.Cut(row[0], "@")
		if !found || domain == "" {
			continue
		}
		byDomain[domain]++
	}

	domains := make([]NameCount, 0, len(byDomain))
	for name, count := range byDomain {
		domains = append(domains, NameCount{Name: name, Count: count})
	}
	sort.Slice(domains, func(i, j int) bool {
		if domains[i].Count != domains[j].Count {
			return domains[i].Count > domains[j].Count
		}
		return domains[i].Name < domains[j].Name
	})
	return domains, nil
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// medianOfSorted — медиана уже отсортированного слайса.
func medianOfSorted(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// formatNumber печатает целые значения без дробной части.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
