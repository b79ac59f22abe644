package store

import (
	"context"
	"fmt"

	"github.com/lherron/pipeboard/internal/domain"
	"github.com/lherron/pipeboard/internal/sheet"
)

// EnsureTables creates every dashboard table that is missing, with its
// columns in documented order, and returns the names it was asked to ensure.
func EnsureTables(ctx context.Context, sheets sheet.Store) ([]string, error) {
	schema, ok := sheets.(sheet.Schema)
	if !ok {
		return nil, fmt.Errorf("backend %T cannot create tables", sheets)
	}
	tables := domain.AllTables()
	for _, table := range tables {
		if err := schema.EnsureTable(ctx, table, domain.Columns[table]); err != nil {
			return nil, fmt.Errorf("failed to ensure table %s: %w", table, err)
		}
	}
	return tables, nil
}
