// Package sqlsheet stores dashboard tables as SQL tables of text columns.
//
// The table's column order is its header. Data rows are ordered by SQLite's
// rowid, or by the hidden _row column on Postgres, so a row index maps to
// the n-th row in insertion order.
package sqlsheet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lherron/pipeboard/internal/db"
	"github.com/lherron/pipeboard/internal/sheet"
)

// rowColumn is the Postgres ordering column created for every table.
const rowColumn = "_row"

// Store is a sheet.Store over a SQLite or Postgres database.
type Store struct {
	db *db.DB
}

var (
	_ sheet.Store  = (*Store)(nil)
	_ sheet.Schema = (*Store)(nil)
	_ sheet.Pinger = (*Store)(nil)
	_ sheet.Closer = (*Store)(nil)
)

// New wraps an open database.
func New(database *db.DB) *Store {
	return &Store{db: database}
}

// DB returns the underlying database.
func (s *Store) DB() *db.DB {
	return s.db
}

func (s *Store) keyColumn() string {
	if s.db.Dialect() == db.DialectPostgres {
		return db.QuoteIdent(rowColumn)
	}
	return "rowid"
}

// columns returns the table's header in column order.
func (s *Store) columns(ctx context.Context, table string) ([]string, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if s.db.Dialect() == db.DialectPostgres {
		rows, err = s.db.QueryContext(ctx, `
			SELECT column_name FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1
			ORDER BY ordinal_position`, table)
	} else {
		rows, err = s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}
		if name == rowColumn {
			continue
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", sheet.ErrTableNotFound, table)
	}
	return cols, nil
}

func (s *Store) Rows(ctx context.Context, table string) ([]sheet.Row, error) {
	cols, err := s.columns(ctx, table)
	if err != nil {
		return nil, err
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = db.QuoteIdent(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(quoted, ", "), db.QuoteIdent(table), s.keyColumn())

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	header := make(sheet.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	out := []sheet.Row{header}

	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		row := make(sheet.Row, len(cols))
		for i, v := range raw {
			row[i] = cellValue(v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", table, err)
	}
	return out, nil
}

// cellValue normalizes driver values: NULL reads as "" and bytes as text.
func cellValue(v any) any {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	default:
		return val
	}
}

// rowKey resolves a 1-based data row index to its ordering key.
func (s *Store) rowKey(ctx context.Context, table string, row int) (int64, error) {
	if row < 1 {
		return 0, fmt.Errorf("%w: %d", sheet.ErrRowOutOfRange, row)
	}
	query := s.db.Rebind(fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT 1 OFFSET ?",
		s.keyColumn(), db.QuoteIdent(table), s.keyColumn()))

	var key int64
	err := s.db.QueryRowContext(ctx, query, row-1).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %d", sheet.ErrRowOutOfRange, row)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to locate row %d of %s: %w", row, table, err)
	}
	return key, nil
}

func (s *Store) AppendRow(ctx context.Context, table string, values sheet.Row) error {
	cols, err := s.columns(ctx, table)
	if err != nil {
		return err
	}
	if len(values) > len(cols) {
		return sheet.ErrTooManyValues
	}

	if len(values) == 0 {
		_, err := s.db.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", db.QuoteIdent(table)))
		if err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
		return nil
	}

	names := make([]string, len(values))
	marks := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		names[i] = db.QuoteIdent(cols[i])
		marks[i] = "?"
		args[i] = sheet.CellText(v)
	}
	query := s.db.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		db.QuoteIdent(table), strings.Join(names, ", "), strings.Join(marks, ", ")))

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

func (s *Store) SetCell(ctx context.Context, table string, row, col int, value any) error {
	cols, err := s.columns(ctx, table)
	if err != nil {
		return err
	}
	if col < 0 || col >= len(cols) {
		return fmt.Errorf("%w: %d", sheet.ErrColOutOfRange, col)
	}
	key, err := s.rowKey(ctx, table, row)
	if err != nil {
		return err
	}

	query := s.db.Rebind(fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?",
		db.QuoteIdent(table), db.QuoteIdent(cols[col]), s.keyColumn()))
	if _, err := s.db.ExecContext(ctx, query, sheet.CellText(value), key); err != nil {
		return fmt.Errorf("failed to update %s.%s: %w", table, cols[col], err)
	}
	return nil
}

func (s *Store) DeleteRow(ctx context.Context, table string, row int) error {
	if _, err := s.columns(ctx, table); err != nil {
		return err
	}
	key, err := s.rowKey(ctx, table, row)
	if err != nil {
		return err
	}

	query := s.db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", db.QuoteIdent(table), s.keyColumn()))
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete row %d of %s: %w", row, table, err)
	}
	return nil
}

func (s *Store) EnsureTable(ctx context.Context, table string, header []string) error {
	if len(header) == 0 {
		return fmt.Errorf("table %s needs at least one column", table)
	}

	defs := make([]string, 0, len(header)+1)
	if s.db.Dialect() == db.DialectPostgres {
		defs = append(defs, db.QuoteIdent(rowColumn)+" BIGSERIAL PRIMARY KEY")
	}
	for _, name := range header {
		defs = append(defs, db.QuoteIdent(name)+" TEXT NOT NULL DEFAULT ''")
	}

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", db.QuoteIdent(table), strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return nil
}

func (s *Store) Tables(ctx context.Context) ([]string, error) {
	query := `SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name <> 'schema_migrations'`
	if s.db.Dialect() == db.DialectPostgres {
		query = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
			AND table_name <> 'schema_migrations'`
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
