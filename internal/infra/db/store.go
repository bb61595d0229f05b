package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"spot-bot/internal/infra/metrics"
)

// TimeLayout задаёт формат хранения дат, ISO-8601 с микросекундами, UTC.
const TimeLayout = "2006-01-02T15:04:05.000000"

// Tables перечисляет все таблицы схемы в порядке создания.
var Tables = []string{
	"banned_users",
	"credited_users",
	"muted_users",
	"warned_users",
	"pending_post",
	"admin_votes",
	"published_post",
	"spot_report",
	"user_report",
	"user_follow",
	"comment_thread",
}

// Store: табличное хранилище поверх database/sql.
// Каждая операция выполняется атомарно отдельным запросом.
type Store struct {
	conn    *sql.DB
	dialect Dialect
	log     zerolog.Logger
}

// Row: строка результата по именам колонок.
type Row map[string]any

// Query описывает выборку.
type Query struct {
	Cols  []string
	Where string
	Args  []any
	Order string
	Group string
	Limit int
}

// FormatTime сериализует время для хранения.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime разбирает сохранённое время.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, s, time.UTC)
}

// Int64 возвращает целое значение колонки.
func (r Row) Int64(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case []byte:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

// Int возвращает значение колонки как int.
func (r Row) Int(col string) int {
	return int(r.Int64(col))
}

// Bool возвращает логическое значение колонки.
func (r Row) Bool(col string) bool {
	if v, ok := r[col].(bool); ok {
		return v
	}
	return r.Int64(col) != 0
}

// String возвращает строковое значение колонки.
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Time возвращает время из колонки, нулевое при ошибке разбора.
func (r Row) Time(col string) time.Time {
	if v, ok := r[col].(time.Time); ok {
		return v.UTC()
	}
	t, err := ParseTime(r.String(col))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Select выполняет выборку из таблицы.
func (s *Store) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	cols := "*"
	if len(q.Cols) > 0 {
		cols = strings.Join(q.Cols, ", ")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", cols, table)
	if q.Where != "" {
		b.WriteString(" WHERE " + q.Where)
	}
	if q.Group != "" {
		b.WriteString(" GROUP BY " + q.Group)
	}
	if q.Order != "" {
		b.WriteString(" ORDER BY " + q.Order)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}

	start := time.Now()
	rows, err := s.conn.QueryContext(ctx, s.rebind(b.String()), q.Args...)
	if err != nil {
		s.observe("select", table, start, err)
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		s.observe("select", table, start, err)
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	var result []Row
	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			s.observe("select", table, start, err)
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		row := make(Row, len(names))
		for i, name := range names {
			row[name] = values[i]
		}
		result = append(result, row)
	}
	err = rows.Err()
	s.observe("select", table, start, err)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return result, nil
}

// SelectOne возвращает первую строку выборки или ErrNoRows.
func (s *Store) SelectOne(ctx context.Context, table string, q Query) (Row, error) {
	q.Limit = 1
	rows, err := s.Select(ctx, table, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, sql.ErrNoRows
	}
	return rows[0], nil
}

// Count возвращает количество строк, удовлетворяющих условию.
func (s *Store) Count(ctx context.Context, table, where string, args ...any) (int, error) {
	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	start := time.Now()
	var n int
	err := s.conn.QueryRowContext(ctx, s.rebind(query), args...).Scan(&n)
	s.observe("count", table, start, err)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Insert добавляет строку.
func (s *Store) Insert(ctx context.Context, table string, row Row) error {
	_, err := s.InsertMany(ctx, table, []Row{row})
	return err
}

// InsertIgnore добавляет строку, если она не нарушает уникальность. Возвращает true, если строка добавлена.
func (s *Store) InsertIgnore(ctx context.Context, table string, row Row) (bool, error) {
	cols := sortedCols(row)
	query, args := buildInsert(table, cols, []Row{row})
	query += " ON CONFLICT DO NOTHING"
	n, err := s.exec(ctx, "insert", table, query, args...)
	return n > 0, err
}

// Upsert добавляет строку или обновляет её при конфликте по conflictCols.
func (s *Store) Upsert(ctx context.Context, table string, row Row, conflictCols ...string) error {
	cols := sortedCols(row)
	query, args := buildInsert(table, cols, []Row{row})
	var updates []string
	for _, c := range cols {
		if contains(conflictCols, c) {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
	}
	if len(updates) == 0 {
		query += fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", strings.Join(conflictCols, ", "))
	} else {
		query += fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(conflictCols, ", "), strings.Join(updates, ", "))
	}
	_, err := s.exec(ctx, "upsert", table, query, args...)
	return err
}

// InsertMany добавляет несколько строк одним запросом. Все строки должны иметь одинаковые колонки.
func (s *Store) InsertMany(ctx context.Context, table string, rows []Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	cols := sortedCols(rows[0])
	query, args := buildInsert(table, cols, rows)
	return s.exec(ctx, "insert", table, query, args...)
}

// Update обновляет строки и возвращает их количество.
func (s *Store) Update(ctx context.Context, table string, set Row, where string, args ...any) (int64, error) {
	cols := sortedCols(set)
	assignments := make([]string, 0, len(cols))
	values := make([]any, 0, len(cols)+len(args))
	for _, c := range cols {
		assignments = append(assignments, c+" = ?")
		values = append(values, set[c])
	}
	values = append(values, args...)
	query := fmt.Sprintf("UPDATE %s SET %s", table, strings.Join(assignments, ", "))
	if where != "" {
		query += " WHERE " + where
	}
	return s.exec(ctx, "update", table, query, values...)
}

// Delete удаляет строки и возвращает их количество.
func (s *Store) Delete(ctx context.Context, table, where string, args ...any) (int64, error) {
	query := "DELETE FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	return s.exec(ctx, "delete", table, query, args...)
}

// ExecScript выполняет встроенный SQL-скрипт по имени.
func (s *Store) ExecScript(ctx context.Context, name string) error {
	content, err := scripts.ReadFile("scripts/" + name)
	if err != nil {
		return fmt.Errorf("read script %s: %w", name, err)
	}
	for _, stmt := range strings.Split(string(content), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.exec(ctx, "script", name, stmt); err != nil {
			return fmt.Errorf("script %s: %w", name, err)
		}
	}
	s.log.Debug().Str("script", name).Msg("db: скрипт выполнен")
	return nil
}

// Backup сохраняет копию базы в файл dst. Для SQLite это копия файла базы,
// для PostgreSQL JSON-выгрузка всех таблиц.
func (s *Store) Backup(ctx context.Context, dst string) error {
	_ = os.Remove(dst)
	if s.dialect == DialectSQLite {
		_, err := s.exec(ctx, "backup", "database", "VACUUM INTO ?", dst)
		return err
	}
	dump := make(map[string][]Row, len(Tables))
	for _, table := range Tables {
		rows, err := s.Select(ctx, table, Query{})
		if err != nil {
			return err
		}
		dump[table] = rows
	}
	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dump: %w", err)
	}
	return os.WriteFile(dst, data, 0o600)
}

// IsNoRows сообщает, что выборка пуста.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func (s *Store) exec(ctx context.Context, op, table, query string, args ...any) (int64, error) {
	start := time.Now()
	res, err := s.conn.ExecContext(ctx, s.rebind(query), args...)
	s.observe(op, table, start, err)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", op, table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (s *Store) observe(op, table string, start time.Time, err error) {
	metrics.ObserveNetworkRequest(string(s.dialect), op, table, start, err)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error().Err(err).Str("op", op).Str("table", table).Msg("db: ошибка запроса")
	}
}

// rebind заменяет позиционные ? на $n для PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	return Rebind(query)
}

// Rebind заменяет ? на $1, $2, ….
func Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inString := false
	for _, r := range query {
		switch {
		case r == '\'':
			inString = !inString
			b.WriteRune(r)
		case r == '?' && !inString:
			n++
			b.WriteString("$" + strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func buildInsert(table string, cols []string, rows []Row) (string, []any) {
	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	groups := make([]string, 0, len(rows))
	args := make([]any, 0, len(cols)*len(rows))
	for _, row := range rows {
		groups = append(groups, placeholders)
		for _, c := range cols {
			args = append(args, row[c])
		}
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, strings.Join(cols, ", "), strings.Join(groups, ", "))
	return query, args
}

func sortedCols(row Row) []string {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
