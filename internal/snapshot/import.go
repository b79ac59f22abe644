package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/lherron/pipeboard/internal/sheet"
)

// Parse decodes and validates snapshot bytes.
func Parse(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if err := validateSnapshot(&snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	return &snap, nil
}

// LoadFile reads and parses a snapshot file.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return Parse(data)
}

func validateSnapshot(snap *Snapshot) error {
	if snap.Meta.SchemaVersion < 1 {
		return fmt.Errorf("invalid schema_version: %d", snap.Meta.SchemaVersion)
	}
	for name, t := range snap.Tables {
		if name == "" {
			return fmt.Errorf("table with empty name")
		}
		if len(t.Header) == 0 {
			return fmt.Errorf("table %s has no header", name)
		}
		for i, row := range t.Rows {
			if len(row) > len(t.Header) {
				return fmt.Errorf("table %s row %d has %d cells for %d columns", name, i+1, len(row), len(t.Header))
			}
		}
	}
	return nil
}

// Import appends every snapshot row into st. Tables are created when st
// supports it; rows are laid out by header name so the target's column order
// may differ from the snapshot's.
func Import(ctx context.Context, st sheet.Store, snap *Snapshot, opts ImportOptions) (*ImportResult, error) {
	if err := validateSnapshot(snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}

	result := &ImportResult{
		SnapshotRev: snap.Meta.SnapshotRev,
		Tables:      len(snap.Tables),
		Rows:        snap.RowCount(),
		DryRun:      opts.DryRun,
	}
	if opts.DryRun {
		return result, nil
	}

	names := make([]string, 0, len(snap.Tables))
	for name := range snap.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	schema, _ := st.(sheet.Schema)
	for _, name := range names {
		t := snap.Tables[name]
		if schema != nil {
			if err := schema.EnsureTable(ctx, name, t.Header); err != nil {
				return nil, fmt.Errorf("failed to create table %s: %w", name, err)
			}
		}

		rows, err := st.Rows(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read table %s: %w", name, err)
		}
		target := sheet.Header(rows)
		layout, err := columnLayout(name, t.Header, target)
		if err != nil {
			return nil, err
		}

		if opts.Replace {
			n, err := clearTable(ctx, st, name, len(rows))
			if err != nil {
				return nil, err
			}
			result.Replaced += n
		}

		for i, row := range t.Rows {
			values := make(sheet.Row, len(target))
			for j := range values {
				values[j] = ""
			}
			for j, cell := range row {
				values[layout[j]] = cell
			}
			if err := st.AppendRow(ctx, name, values); err != nil {
				return nil, fmt.Errorf("failed to import %s row %d: %w", name, i+1, err)
			}
		}
	}

	return result, nil
}

// columnLayout maps snapshot column positions to target column positions.
func columnLayout(table string, from, to []string) ([]int, error) {
	layout := make([]int, len(from))
	for i, name := range from {
		j := sheet.IndexOf(to, name)
		if j < 0 {
			return nil, fmt.Errorf("table %s has no column %q", table, name)
		}
		layout[i] = j
	}
	return layout, nil
}

// clearTable deletes every data row, last first.
func clearTable(ctx context.Context, st sheet.Store, table string, rowCount int) (int, error) {
	deleted := 0
	for row := rowCount - 1; row >= 1; row-- {
		err := st.DeleteRow(ctx, table, row)
		if errors.Is(err, sheet.ErrRowOutOfRange) {
			continue
		}
		if err != nil {
			return deleted, fmt.Errorf("failed to clear table %s: %w", table, err)
		}
		deleted++
	}
	return deleted, nil
}
