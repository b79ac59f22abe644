// Package memory provides an in-process sheet.Store. It backs tests and the
// "memory" backend, where the dashboard runs off a seeded dataset.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lherron/pipeboard/internal/sheet"
)

// Store keeps every table in memory. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tables map[string][]sheet.Row
}

var (
	_ sheet.Store  = (*Store)(nil)
	_ sheet.Schema = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{tables: make(map[string][]sheet.Row)}
}

// Load replaces the named table with rows (header first). Rows are copied.
func (s *Store) Load(table string, rows ...sheet.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = cloneRows(rows)
}

func (s *Store) Rows(_ context.Context, table string) ([]sheet.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", sheet.ErrTableNotFound, table)
	}
	return cloneRows(rows), nil
}

func (s *Store) AppendRow(_ context.Context, table string, values sheet.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", sheet.ErrTableNotFound, table)
	}
	if len(rows) > 0 && len(values) > len(rows[0]) {
		return sheet.ErrTooManyValues
	}
	s.tables[table] = append(rows, append(sheet.Row(nil), values...))
	return nil
}

func (s *Store) SetCell(_ context.Context, table string, row, col int, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", sheet.ErrTableNotFound, table)
	}
	if row < 1 || row >= len(rows) {
		return fmt.Errorf("%w: %d", sheet.ErrRowOutOfRange, row)
	}
	if col < 0 || col >= len(rows[0]) {
		return fmt.Errorf("%w: %d", sheet.ErrColOutOfRange, col)
	}
	target := rows[row]
	for len(target) <= col {
		target = append(target, "")
	}
	target[col] = value
	rows[row] = target
	return nil
}

func (s *Store) DeleteRow(_ context.Context, table string, row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", sheet.ErrTableNotFound, table)
	}
	if row < 1 || row >= len(rows) {
		return fmt.Errorf("%w: %d", sheet.ErrRowOutOfRange, row)
	}
	s.tables[table] = append(rows[:row], rows[row+1:]...)
	return nil
}

func (s *Store) EnsureTable(_ context.Context, table string, header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[table]; ok {
		return nil
	}
	head := make(sheet.Row, len(header))
	for i, h := range header {
		head[i] = h
	}
	s.tables[table] = []sheet.Row{head}
	return nil
}

func (s *Store) Tables(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func cloneRows(rows []sheet.Row) []sheet.Row {
	out := make([]sheet.Row, len(rows))
	for i, r := range rows {
		out[i] = append(sheet.Row(nil), r...)
	}
	return out
}
