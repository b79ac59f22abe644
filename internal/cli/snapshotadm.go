package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/pipeboard/internal/cli/appctx"
	"github.com/lherron/pipeboard/internal/snapshot"
)

var snapshotAdmCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage canonical table snapshots",
	Long: `Commands for exporting, importing, diffing and verifying canonical JSON
snapshots of every dashboard table.

A snapshot carries each table's header and rows exactly as stored, keyed by
table name, plus a snapshot_rev hash of the contents. Two snapshots of the
same data are byte-identical apart from generated_at.`,
}

var snapshotExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the backend to a canonical JSON snapshot",
	Args:  cobra.NoArgs,
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runSnapshotExport),
}

var snapshotImportCmd = &cobra.Command{
	Use:   "import <snapshot-file|->",
	Short: "Import a snapshot into the backend",
	Long: `Import appends every row of the snapshot into the backend, creating missing
tables. Rows are laid out by header name, so the backend's column order may
differ from the snapshot's.

A snapshot whose snapshot_rev does not match its contents is rejected with exit
code 4. Use --replace to remove existing data rows first and --dry-run to
validate without writing.`,
	Args: cobra.ExactArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runSnapshotImport),
}

var snapshotDiffCmd = &cobra.Command{
	Use:   "diff <a> <b>",
	Short: "Show a unified diff between two snapshots",
	Args:  cobra.ExactArgs(2),
	RunE:  runSnapshotDiff,
}

var snapshotVerifyCmd = &cobra.Command{
	Use:   "verify <snapshot-file>",
	Short: "Verify a snapshot's rev and canonical encoding",
	Long: `Verify checks that a snapshot file is sealed and canonical by:

1. Loading the snapshot
2. Recomputing its snapshot_rev
3. Re-encoding it to canonical JSON and comparing the bytes

Verification failures exit with code 4.`,
	Args: cobra.ExactArgs(1),
	RunE: runSnapshotVerify,
}

var (
	snapshotExportOut    string
	snapshotExportTables []string
	snapshotExportJSON   bool

	snapshotImportReplace bool
	snapshotImportDryRun  bool
	snapshotImportJSON    bool
)

func init() {
	rootAdmCmd.AddCommand(snapshotAdmCmd)
	snapshotAdmCmd.AddCommand(snapshotExportCmd)
	snapshotAdmCmd.AddCommand(snapshotImportCmd)
	snapshotAdmCmd.AddCommand(snapshotDiffCmd)
	snapshotAdmCmd.AddCommand(snapshotVerifyCmd)

	snapshotExportCmd.Flags().StringVarP(&snapshotExportOut, "out", "o", snapshot.DefaultOutputPath, `Output file path ("-" for stdout)`)
	snapshotExportCmd.Flags().StringSliceVar(&snapshotExportTables, "table", nil, "Export only the named tables (repeatable)")
	snapshotExportCmd.Flags().BoolVar(&snapshotExportJSON, "json", false, "Output result as JSON")

	snapshotImportCmd.Flags().BoolVar(&snapshotImportReplace, "replace", false, "Remove existing data rows before import")
	snapshotImportCmd.Flags().BoolVar(&snapshotImportDryRun, "dry-run", false, "Validate only, don't write to the backend")
	snapshotImportCmd.Flags().BoolVar(&snapshotImportJSON, "json", false, "Output result as JSON")
}

type exportResult struct {
	OutputPath  string `json:"output_path"`
	SnapshotRev string `json:"snapshot_rev"`
	Tables      int    `json:"tables"`
	Rows        int    `json:"rows"`
}

func runSnapshotExport(app *appctx.App, cmd *cobra.Command, args []string) error {
	snap, data, err := snapshot.Export(commandContext(cmd), app.Sheets, snapshot.ExportOptions{Tables: snapshotExportTables})
	if err != nil {
		return exitError(1, fmt.Errorf("failed to export snapshot: %w", err))
	}

	if snapshotExportOut == "-" {
		_, err := cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}
	if err := snapshot.WriteFile(snapshotExportOut, data); err != nil {
		return exitError(1, err)
	}

	result := exportResult{
		OutputPath:  snapshotExportOut,
		SnapshotRev: snap.Meta.SnapshotRev,
		Tables:      len(snap.Tables),
		Rows:        snap.RowCount(),
	}
	if snapshotExportJSON {
		return writeIndentedJSON(cmd, result)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Exported snapshot to %s\n", result.OutputPath)
	fmt.Fprintf(out, "  snapshot_rev: %s\n", result.SnapshotRev)
	fmt.Fprintf(out, "  tables: %d, rows: %d\n", result.Tables, result.Rows)
	return nil
}

func runSnapshotImport(app *appctx.App, cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return exitError(1, err)
	}
	snap, err := snapshot.Parse(data)
	if err != nil {
		return exitError(1, err)
	}
	if snap.Meta.SnapshotRev != "" {
		if err := snapshot.Verify(snap); err != nil {
			return exitError(4, err)
		}
	}

	result, err := snapshot.Import(commandContext(cmd), app.Sheets, snap, snapshot.ImportOptions{
		Replace: snapshotImportReplace,
		DryRun:  snapshotImportDryRun,
	})
	if err != nil {
		return exitError(1, err)
	}

	if snapshotImportJSON {
		return writeIndentedJSON(cmd, result)
	}
	out := cmd.OutOrStdout()
	if result.DryRun {
		fmt.Fprintf(out, "✓ Validated snapshot from %s (dry run)\n", args[0])
	} else {
		fmt.Fprintf(out, "✓ Imported snapshot from %s\n", args[0])
	}
	if result.SnapshotRev != "" {
		fmt.Fprintf(out, "  snapshot_rev: %s\n", result.SnapshotRev)
	}
	fmt.Fprintf(out, "  tables: %d, rows: %d\n", result.Tables, result.Rows)
	if result.Replaced > 0 {
		fmt.Fprintf(out, "  replaced rows: %d\n", result.Replaced)
	}
	return nil
}

func runSnapshotDiff(cmd *cobra.Command, args []string) error {
	a, err := snapshot.LoadFile(args[0])
	if err != nil {
		return exitError(1, err)
	}
	b, err := snapshot.LoadFile(args[1])
	if err != nil {
		return exitError(1, err)
	}
	diff, err := snapshot.Diff(a, b, args[0], args[1])
	if err != nil {
		return exitError(1, err)
	}
	if diff == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Snapshots are identical.")
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), diff)
	return nil
}

func runSnapshotVerify(cmd *cobra.Command, args []string) error {
	raw, err := readInput(cmd, args[0])
	if err != nil {
		return exitError(1, err)
	}
	snap, err := snapshot.Parse(raw)
	if err != nil {
		return exitError(1, err)
	}
	if err := snapshot.Verify(snap); err != nil {
		return exitError(4, err)
	}
	canonical, err := snapshot.CanonicalJSON(snap)
	if err != nil {
		return exitError(1, err)
	}
	if !bytes.Equal(bytes.TrimSpace(raw), canonical) {
		return exitError(4, fmt.Errorf("snapshot %s is not canonical", args[0]))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Snapshot is canonical\n  snapshot_rev: %s\n", snap.Meta.SnapshotRev)
	return nil
}

func writeIndentedJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return exitError(1, fmt.Errorf("failed to encode result: %w", err))
	}
	return nil
}
