// Читающие запросы к загруженным датасетам.

package dataset

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ilkoid/praktika-ai/pkg/utils"
)

// maxQueryRows ограничивает размер результата: он попадает в контекст
// LLM и в терминал, миллион строк не нужен ни там, ни там.
const maxQueryRows = 1000

// Result — результат SELECT запроса в удобном для вывода виде.
type Result struct {
	Columns   []string
	Rows      [][]string
	Truncated bool // true если результат обрезан по maxQueryRows
}

// forbiddenSQL ловит пишущие и DDL операторы в любом месте запроса,
// включая спрятанные в CTE ("WITH x AS (...) DELETE ...").
var forbiddenSQL = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|DROP|ALTER|CREATE|REPLACE|ATTACH|DETACH|PRAGMA|VACUUM|REINDEX)\b`)

// ensureReadOnly проверяет что запрос только читает данные.
func ensureReadOnly(query string) error {
	q := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(query), ";"))
	if q == "" {
		return fmt.Errorf("query is empty")
	}
	if strings.Contains(q, ";") {
		return fmt.Errorf("multiple statements are not allowed")
	}

	upper := strings.ToUpper(q)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return fmt.Errorf("only SELECT queries are allowed, got: %.40s", query)
	}

	if match := forbiddenSQL.FindString(q); match != "" {
		return fmt.Errorf("forbidden SQL keyword: %s", strings.ToUpper(match))
	}

	return nil
}

// Query выполняет SELECT запрос и возвращает строковую таблицу.
//
// Запросы, меняющие данные или схему, отклоняются до выполнения.
// Результат обрезается до maxQueryRows строк (Result.Truncated = true).
func (s *Store) Query(ctx context.Context, query string) (*Result, error) {
	if err := ensureReadOnly(query); err != nil {
		return nil, err
	}

	startTime := time.Now()

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	result := &Result{Columns: columns}

	for rows.Next() {
		if len(result.Rows) >= maxQueryRows {
			result.Truncated = true
			break
		}

		raw := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make([]string, len(columns))
		for i, v := range raw {
			row[i] = formatValue(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	utils.Debug("Dataset query executed",
		"rows_count", len(result.Rows),
		"truncated", result.Truncated,
		"duration_ms", time.Since(startTime).Milliseconds())

	return result, nil
}

// QueryValue выполняет запрос, ожидая ровно одно значение (агрегаты).
func (s *Store) QueryValue(ctx context.Context, query string) (string, error) {
	result, err := s.Query(ctx, query)
	if err != nil {
		return "", err
	}
	if len(result.Rows) == 0 || len(result.Rows[0]) == 0 {
		return "", fmt.Errorf("query returned no value")
	}
	return result.Rows[0][0], nil
}

// formatValue приводит значение из sqlite к строке для вывода.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Markdown форматирует результат как markdown таблицу.
func (r *Result) Markdown() string {
	if len(r.Columns) == 0 {
		return ""
	}

	var sb strings.Builder

	sb.WriteString("| " + strings.Join(r.Columns, " | ") + " |\n")

	sep := make([]string, len(r.Columns))
	for i := range sep {
		sep[i] = "---"
	}
	sb.WriteString("| " + strings.Join(sep, " | ") + " |\n")

	for _, row := range r.Rows {
		cells := make([]string, len(r.Columns))
		for i := range r.Columns {
			if i < len(row) {
				// Вертикальная черта внутри значения сломала бы таблицу
				cells[i] = strings.ReplaceAll(row[i], "|", "\\|")
			}
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}

	if r.Truncated {
		fmt.Fprintf(&sb, "\n(результат обрезан до %d строк)\n", maxQueryRows)
	}

	return sb.String()
}
