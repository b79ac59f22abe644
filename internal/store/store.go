// Package store provides the dashboard's read and write paths over a sheet.Store.
// Each sub-store owns exactly one table; rows are located by scanning the id
// column top to bottom, and the first match wins.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lherron/pipeboard/internal/id"
	"github.com/lherron/pipeboard/internal/sheet"
)

// ErrColumnNotFound is returned when a write needs a column the table's
// header does not have.
var ErrColumnNotFound = errors.New("column not found")

// Store is the root store that provides access to table-specific stores.
type Store struct {
	sheets sheet.Store
	ids    id.Provider
	now    func() time.Time

	Requirements *RequirementStore
	Technologies *TechnologyStore
	Signoffs     *SignoffStore
	Diagrams     *DiagramStore
}

// Option configures a Store.
type Option func(*Store)

// WithIDProvider replaces the default UUIDv7-based id provider.
func WithIDProvider(p id.Provider) Option {
	return func(s *Store) { s.ids = p }
}

// WithClock replaces time.Now for signoff timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a new Store over the given row store.
func New(sheets sheet.Store, opts ...Option) *Store {
	s := &Store{
		sheets: sheets,
		ids:    id.UUIDProvider{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Requirements = &RequirementStore{store: s}
	s.Technologies = &TechnologyStore{store: s}
	s.Signoffs = &SignoffStore{store: s}
	s.Diagrams = &DiagramStore{store: s}
	return s
}

// Sheets returns the underlying row store.
func (s *Store) Sheets() sheet.Store {
	return s.sheets
}

// findRow returns the table's rows and the index of the first data row whose
// cell in col is the string value, or -1.
func (s *Store) findRow(ctx context.Context, table string, col int, value string) ([]sheet.Row, int, error) {
	rows, err := s.sheets.Rows(ctx, table)
	if err != nil {
		return nil, -1, fmt.Errorf("failed to read %s: %w", table, err)
	}
	for i := 1; i < len(rows); i++ {
		if cellEquals(rows[i].Cell(col), value) {
			return rows, i, nil
		}
	}
	return rows, -1, nil
}

// cellEquals is strict: only text cells can match an id.
func cellEquals(cell any, value string) bool {
	switch c := cell.(type) {
	case string:
		return c == value
	case []byte:
		return string(c) == value
	default:
		return false
	}
}

// updateCell overwrites one column of the row whose id matches. A missing id
// is not an error.
func (s *Store) updateCell(ctx context.Context, table, rowID, column string, value any) error {
	rows, idx, err := s.findRow(ctx, table, 0, rowID)
	if err != nil {
		return err
	}
	if idx < 0 {
		return nil
	}
	col := sheet.IndexOf(sheet.Header(rows), column)
	if col < 0 {
		return fmt.Errorf("%w: %s.%s", ErrColumnNotFound, table, column)
	}
	if err := s.sheets.SetCell(ctx, table, idx, col, value); err != nil {
		return fmt.Errorf("failed to update %s.%s: %w", table, column, err)
	}
	return nil
}

// appendRecord appends a row with fields placed by header name. Columns not
// named in fields are left blank.
func (s *Store) appendRecord(ctx context.Context, table string, header []string, fields map[string]any) error {
	row := make(sheet.Row, len(header))
	for i := range row {
		row[i] = ""
	}
	for name, value := range fields {
		col := sheet.IndexOf(header, name)
		if col < 0 {
			return fmt.Errorf("%w: %s.%s", ErrColumnNotFound, table, name)
		}
		row[col] = value
	}
	if err := s.sheets.AppendRow(ctx, table, row); err != nil {
		return fmt.Errorf("failed to append to %s: %w", table, err)
	}
	return nil
}

func (s *Store) header(ctx context.Context, table string) ([]string, error) {
	rows, err := s.sheets.Rows(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	return sheet.Header(rows), nil
}
