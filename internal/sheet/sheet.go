// Package sheet defines the table store capability the dashboard runs on: named
// tables of rows whose first row holds the column headers.
//
// Row indexes used by SetCell and DeleteRow are positions in the slice returned
// by Rows, so index 0 is the header row and data rows start at 1.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// Row is one table row. Cells hold strings for text backends; the memory and
// Redis backends may also hold numbers, booleans, or nil.
type Row []any

// Store is the minimal row store surface needed by the read and write paths.
type Store interface {
	// Rows returns every row of the named table, header row first.
	// Returns ErrTableNotFound if the table does not exist.
	Rows(ctx context.Context, table string) ([]Row, error)

	// AppendRow adds a row after the last row. Values are positional and
	// follow the header order.
	AppendRow(ctx context.Context, table string, values Row) error

	// SetCell overwrites a single cell of an existing data row.
	SetCell(ctx context.Context, table string, row, col int, value any) error

	// DeleteRow removes a data row; later rows shift up by one.
	DeleteRow(ctx context.Context, table string, row int) error
}

// Schema is implemented by backends that can create and enumerate tables.
type Schema interface {
	// EnsureTable creates the table with the given headers if it is missing.
	// An existing table is left untouched.
	EnsureTable(ctx context.Context, table string, header []string) error

	// Tables lists table names in lexical order.
	Tables(ctx context.Context) ([]string, error)
}

// Pinger is implemented by backends with a network connection to check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Closer releases backend resources.
type Closer interface {
	Close() error
}

var (
	ErrTableNotFound = errors.New("table not found")
	ErrRowOutOfRange = errors.New("row index out of range")
	ErrColOutOfRange = errors.New("column index out of range")
	ErrTooManyValues = errors.New("row has more values than the table has columns")
)

// Header returns the header row of rows, or nil for an empty table.
func Header(rows []Row) []string {
	if len(rows) == 0 {
		return nil
	}
	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = CellText(cell)
	}
	return header
}

// Cell returns the cell at col, or "" when the row is shorter than col.
func (r Row) Cell(col int) any {
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// CellText renders a cell the way a text column would store it.
func CellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case interface{ String() string }:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// IndexOf returns the position of name in header, or -1.
func IndexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}
