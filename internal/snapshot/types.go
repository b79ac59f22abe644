// Package snapshot provides canonical JSON snapshots of a row store.
//
// A snapshot holds every table as its header plus raw data rows. The
// canonical encoding sorts object keys and drops insignificant whitespace so
// that identical table contents always produce identical bytes and the same
// snapshot_rev.
package snapshot

import "time"

// SchemaVersion is the snapshot document version written by Export.
const SchemaVersion = 1

// DefaultOutputPath is the default snapshot file location.
const DefaultOutputPath = ".pipeboard/state.json"

// Snapshot is the complete contents of a row store.
type Snapshot struct {
	Meta   Meta             `json:"meta"`
	Tables map[string]Table `json:"tables"`
}

// Meta contains snapshot metadata.
type Meta struct {
	SchemaVersion int    `json:"schema_version"`
	SnapshotRev   string `json:"snapshot_rev,omitempty"`
	GeneratedAt   string `json:"generated_at,omitempty"`
}

// Table is one table: its header row and its data rows in stored order.
type Table struct {
	Header []string `json:"header"`
	Rows   [][]any  `json:"rows"`
}

// RowCount returns the number of data rows across all tables.
func (s *Snapshot) RowCount() int {
	n := 0
	for _, t := range s.Tables {
		n += len(t.Rows)
	}
	return n
}

// ExportOptions configures snapshot export behavior.
type ExportOptions struct {
	// Tables limits the export to the named tables. Empty exports all.
	Tables []string
	// GeneratedAt stamps the snapshot (default: now)
	GeneratedAt time.Time
}

// ImportOptions configures snapshot import behavior.
type ImportOptions struct {
	// Replace clears each table's data rows before appending
	Replace bool
	// DryRun validates without writing
	DryRun bool
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	SnapshotRev string `json:"snapshot_rev"`
	Tables      int    `json:"tables"`
	Rows        int    `json:"rows"`
	Replaced    int    `json:"replaced,omitempty"`
	DryRun      bool   `json:"dry_run,omitempty"`
}

// FormatTimestamp formats a time.Time as ISO-8601 with Z suffix.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
