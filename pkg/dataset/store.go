// Package dataset загружает CSV файлы в SQLite и выполняет SELECT запросы.
//
// Пайплайн "таблица как контекст для LLM": LoadCSV выводит типы колонок
// из данных и заливает файл в таблицу, Schema отдаёт текстовое описание
// базы для промпта, Query выполняет только читающие запросы — результат
// безопасно показывать модели и пользователю.
//
// База задаётся DSN из config.yaml (data.sqlite): путь к файлу или
// ":memory:" для одноразовых сессий.
package dataset

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ilkoid/praktika-ai/pkg/utils"
)

// Store — SQLite база с загруженными датасетами.
type Store struct {
	db *sql.DB
}

// Column — колонка таблицы с выведенным типом.
type Column struct {
	Name string
	Type string // INTEGER, REAL или TEXT
}

// TableInfo — метаданные загруженной таблицы.
type TableInfo struct {
	Name     string
	Columns  []Column
	RowCount int
}

// Open открывает SQLite базу по DSN и проверяет соединение.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Одно соединение: ":memory:" базы живут per-connection,
	// пул из нескольких коннектов увидел бы разные пустые базы.
	db.SetMaxOpenConns(1)

	return &Store{db: db}, nil
}

// Close закрывает базу.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadCSV загружает CSV файл в таблицу.
//
// Имя таблицы по умолчанию — имя файла без расширения, приведённое к
// валидному идентификатору. Существующая таблица пересоздаётся. Первая
// строка файла — заголовки колонок. Типы выводятся по значениям: колонка
// из целых чисел становится INTEGER, из чисел с точкой — REAL, всё
// остальное — TEXT. Пустые ячейки превращаются в NULL.
func (s *Store) LoadCSV(ctx context.Context, path string, table string) (TableInfo, error) {
	startTime := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return TableInfo{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return TableInfo{}, fmt.Errorf("read csv %s: %w", path, err)
	}
	if len(records) < 1 {
		return TableInfo{}, fmt.Errorf("csv %s is empty", path)
	}

	if table == "" {
		base := filepath.Base(path)
		table = strings.TrimSuffix(base, filepath.Ext(base))
	}
	table = sanitizeIdent(table)

	header := records[0]
	rows := records[1:]

	columns := make([]Column, len(header))
	seen := make(map[string]int, len(header))
	for i, name := range header {
		ident := sanitizeIdent(name)
		// Дубликаты заголовков получают числовой суффикс
		if n, dup := seen[ident]; dup {
			seen[ident] = n + 1
			ident = fmt.Sprintf("%s_%d", ident, n+1)
		}
		seen[ident] = 1
		columns[i] = Column{
			Name: ident,
			Type: inferType(columnValues(rows, i)),
		}
	}

	if err := s.createTable(ctx, table, columns); err != nil {
		return TableInfo{}, err
	}

	if err := s.insertRows(ctx, table, columns, rows); err != nil {
		return TableInfo{}, err
	}

	info := TableInfo{Name: table, Columns: columns, RowCount: len(rows)}

	utils.Info("CSV loaded into SQLite",
		"file", path,
		"table", table,
		"columns_count", len(columns),
		"rows_count", len(rows),
		"duration_ms", time.Since(startTime).Milliseconds())

	return info, nil
}

// createTable пересоздаёт таблицу под выведенную схему.
func (s *Store) createTable(ctx context.Context, table string, columns []Column) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, table)); err != nil {
		return fmt.Errorf("drop table %s: %w", table, err)
	}

	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = fmt.Sprintf(`"%s" %s`, col.Name, col.Type)
	}

	createSQL := fmt.Sprintf(`CREATE TABLE "%s" (%s)`, table, strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

// insertRows заливает строки одной транзакцией через prepared statement.
func (s *Store) insertRows(ctx context.Context, table string, columns []Column, rows [][]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	names := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		names[i] = fmt.Sprintf(`"%s"`, col.Name)
		placeholders[i] = "?"
	}

	insertSQL := fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES (%s)`,
		table, strings.Join(names, ", "), strings.Join(placeholders, ", "))

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for rowIdx, record := range rows {
		args := make([]any, len(columns))
		for i := range columns {
			if i >= len(record) || record[i] == "" {
				args[i] = nil
				continue
			}
			args[i] = convertValue(record[i], columns[i].Type)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", rowIdx+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadDir загружает все *.csv файлы директории, по таблице на файл.
func (s *Store) LoadDir(ctx context.Context, dir string) ([]TableInfo, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("scan dir %s: %w", dir, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no csv files found in %s", dir)
	}

	infos := make([]TableInfo, 0, len(matches))
	for _, path := range matches {
		info, err := s.LoadCSV(ctx, path, "")
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Tables возвращает метаданные всех пользовательских таблиц базы.
func (s *Store) Tables(ctx context.Context) ([]TableInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	infos := make([]TableInfo, 0, len(names))
	for _, name := range names {
		info, err := s.tableInfo(ctx, name)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (s *Store) tableInfo(ctx context.Context, table string) (TableInfo, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info("%s")`, table))
	if err != nil {
		return TableInfo{}, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var cid int
		var name, ctype string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return TableInfo{}, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, Column{Name: name, Type: ctype})
	}
	if err := rows.Err(); err != nil {
		return TableInfo{}, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, table)).Scan(&count); err != nil {
		return TableInfo{}, fmt.Errorf("count rows %s: %w", table, err)
	}

	return TableInfo{Name: table, Columns: columns, RowCount: count}, nil
}

// Schema возвращает текстовое описание базы для системного промпта.
//
// Формат на таблицу:
//
//	TABLE users (name TEXT, age INTEGER, salary REAL) -- 100 rows
func (s *Store) Schema(ctx context.Context) (string, error) {
	infos, err := s.Tables(ctx)
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "", fmt.Errorf("database has no tables")
	}

	var sb strings.Builder
	for _, info := range infos {
		cols := make([]string, len(info.Columns))
		for i, col := range info.Columns {
			cols[i] = fmt.Sprintf("%s %s", col.Name, col.Type)
		}
		fmt.Fprintf(&sb, "TABLE %s (%s) -- %d rows\n", info.Name, strings.Join(cols, ", "), info.RowCount)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// columnValues собирает непустые значения колонки для вывода типа.
func columnValues(rows [][]string, col int) []string {
	values := make([]string, 0, len(rows))
	for _, row := range rows {
		if col < len(row) && row[col] != "" {
			values = append(values, row[col])
		}
	}
	return values
}

// inferType выводит SQLite тип по значениям колонки.
// Пустой набор значений (все ячейки пустые) даёт TEXT.
func inferType(values []string) string {
	if len(values) == 0 {
		return "TEXT"
	}

	allInt := true
	allReal := true
	for _, v := range values {
		v = strings.TrimSpace(v)
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			allInt = false
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			allReal = false
			break
		}
	}

	switch {
	case allInt:
		return "INTEGER"
	case allReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// convertValue приводит CSV строку к Go типу согласно типу колонки.
// Непарсящееся значение уходит строкой, SQLite с его гибкой типизацией
// примет и так.
func convertValue(raw, colType string) any {
	v := strings.TrimSpace(raw)
	switch colType {
	case "INTEGER":
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case "REAL":
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return raw
}

// sanitizeIdent приводит строку к безопасному SQL идентификатору:
// нижний регистр, не-алфавитные символы заменяются подчёркиванием.
func sanitizeIdent(s string) string {
	var sb strings.Builder
	prevUnderscore := false

	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r):
			sb.WriteRune(r)
			prevUnderscore = false
		default:
			if !prevUnderscore && sb.Len() > 0 {
				sb.WriteRune('_')
				prevUnderscore = true
			}
		}
	}

	ident := strings.Trim(sb.String(), "_")
	if ident == "" {
		return "col"
	}
	if unicode.IsDigit(rune(ident[0])) {
		ident = "c_" + ident
	}
	return ident
}
