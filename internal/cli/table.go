package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lherron/pipeboard/internal/cli/appctx"
	"github.com/lherron/pipeboard/internal/decode"
	"github.com/lherron/pipeboard/internal/domain"
	"github.com/lherron/pipeboard/internal/render"
	"github.com/lherron/pipeboard/internal/sheet"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Inspect raw tables",
}

var tableLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List tables with their row counts",
	Args:  cobra.NoArgs,
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runTableLs),
}

var tableCatCmd = &cobra.Command{
	Use:   "cat <table>",
	Short: "Print the rows of a table",
	Long: `Cat prints a table's rows. The table and TSV formats show raw cells under
the stored header; --json, --ndjson and --yaml show decoded records, with
numeric columns coerced and JSON columns parsed, exactly as the read path sees
them.`,
	Args: cobra.ExactArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runTableCat),
}

var (
	tableLsFormat  formatFlags
	tableCatFormat formatFlags
)

func init() {
	rootCmd.AddCommand(tableCmd)
	tableCmd.AddCommand(tableLsCmd)
	tableCmd.AddCommand(tableCatCmd)
	tableLsFormat.register(tableLsCmd)
	tableCatFormat.register(tableCatCmd)
}

type tableInfo struct {
	Name    string   `json:"name"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
}

func runTableLs(app *appctx.App, cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	names := domain.AllTables()
	if schema, ok := app.Sheets.(sheet.Schema); ok {
		listed, err := schema.Tables(ctx)
		if err != nil {
			return exitError(1, err)
		}
		names = listed
	}

	var infos []tableInfo
	for _, name := range names {
		rows, err := app.Sheets.Rows(ctx, name)
		if errors.Is(err, sheet.ErrTableNotFound) {
			continue
		}
		if err != nil {
			return exitError(1, fmt.Errorf("failed to read %s: %w", name, err))
		}
		infos = append(infos, tableInfo{Name: name, Rows: max(len(rows)-1, 0), Columns: sheet.Header(rows)})
	}

	items := make([]any, len(infos))
	rows := make([][]string, len(infos))
	for i, info := range infos {
		items[i] = info
		rows[i] = []string{info.Name, strconv.Itoa(info.Rows), strconv.Itoa(len(info.Columns))}
	}
	return tableLsFormat.renderer(cmd.OutOrStdout()).Render(infos, items, []string{"table", "rows", "columns"}, rows)
}

func runTableCat(app *appctx.App, cmd *cobra.Command, args []string) error {
	rows, err := app.Sheets.Rows(commandContext(cmd), args[0])
	if errors.Is(err, sheet.ErrTableNotFound) {
		if vErr := domain.ValidateTable(args[0]); vErr != nil {
			return exitError(2, vErr)
		}
		return exitError(1, fmt.Errorf("table %s has not been created; run 'pipeboardadm init'", args[0]))
	}
	if err != nil {
		return exitError(1, fmt.Errorf("failed to read %s: %w", args[0], err))
	}

	r := tableCatFormat.renderer(cmd.OutOrStdout())
	switch r.Format() {
	case render.FormatJSON, render.FormatNDJSON, render.FormatYAML:
		records := decode.Rows(rows)
		items := make([]any, len(records))
		for i, rec := range records {
			items[i] = rec
		}
		return r.Render(records, items, nil, nil)
	}

	header := sheet.Header(rows)
	cells := make([][]string, 0, len(rows))
	for _, row := range rows[min(1, len(rows)):] {
		line := make([]string, len(header))
		for i := range header {
			line[i] = sheet.CellText(row.Cell(i))
		}
		cells = append(cells, line)
	}
	return r.Render(nil, nil, header, cells)
}
