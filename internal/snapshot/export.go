package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lherron/pipeboard/internal/domain"
	"github.com/lherron/pipeboard/internal/sheet"
)

// Export reads every table of st into a sealed snapshot and returns it with
// its canonical bytes.
func Export(ctx context.Context, st sheet.Store, opts ExportOptions) (*Snapshot, []byte, error) {
	names, err := exportTables(ctx, st, opts.Tables)
	if err != nil {
		return nil, nil, err
	}

	generatedAt := opts.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	snap := &Snapshot{
		Meta: Meta{
			SchemaVersion: SchemaVersion,
			GeneratedAt:   FormatTimestamp(generatedAt),
		},
		Tables: make(map[string]Table, len(names)),
	}

	for _, name := range names {
		rows, err := st.Rows(ctx, name)
		if errors.Is(err, sheet.ErrTableNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to export %s: %w", name, err)
		}
		snap.Tables[name] = tableFromRows(rows)
	}

	data, err := Seal(snap)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate canonical JSON: %w", err)
	}
	return snap, data, nil
}

// WriteFile writes canonical snapshot bytes, creating the parent directory.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func exportTables(ctx context.Context, st sheet.Store, only []string) ([]string, error) {
	if len(only) > 0 {
		return only, nil
	}
	if schema, ok := st.(sheet.Schema); ok {
		names, err := schema.Tables(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list tables: %w", err)
		}
		return names, nil
	}
	return domain.AllTables(), nil
}

func tableFromRows(rows []sheet.Row) Table {
	t := Table{Header: sheet.Header(rows), Rows: [][]any{}}
	if t.Header == nil {
		t.Header = []string{}
	}
	for _, row := range rows[min(1, len(rows)):] {
		cells := make([]any, len(row))
		for i, cell := range row {
			if b, ok := cell.([]byte); ok {
				cell = string(b)
			}
			cells[i] = cell
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}
