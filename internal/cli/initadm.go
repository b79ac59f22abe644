package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/pipeboard/internal/cli/appctx"
	"github.com/lherron/pipeboard/internal/domain"
	"github.com/lherron/pipeboard/internal/seed"
	"github.com/lherron/pipeboard/internal/sheet"
	"github.com/lherron/pipeboard/internal/store"
)

var initAdmCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the dashboard backend",
	Long: `Initialize prepares the configured backend: SQL backends are migrated, and
every dashboard table is created with its columns in documented order. With
--seed, the sample dataset is loaded into a backend that holds no data yet.

This is an administrative command and should not be exposed to dashboard users.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.Options{NeedsStore: true, SkipMigrationCheck: true}, runInitAdm),
}

var initAdmSeed bool

func init() {
	rootAdmCmd.AddCommand(initAdmCmd)

	initAdmCmd.Flags().BoolVar(&initAdmSeed, "seed", false, "Load the sample dataset into an empty backend")
}

func runInitAdm(app *appctx.App, cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	if app.DB != nil {
		applied, err := app.DB.MigrateWithInfo()
		if err != nil {
			return exitError(1, fmt.Errorf("failed to run migrations: %w", err))
		}
		if len(applied) > 0 {
			fmt.Fprintf(out, "✓ Initialized %s database at %s\n", app.DB.Dialect(), app.DB.Path())
		} else {
			fmt.Fprintf(out, "✓ Database already initialized at %s\n", app.DB.Path())
		}
	}

	tables, err := store.EnsureTables(ctx, app.Sheets)
	if err != nil {
		return exitError(1, err)
	}
	fmt.Fprintf(out, "✓ Ensured %d tables on the %s backend\n", len(tables), app.Config.Backend)

	if !initAdmSeed {
		return nil
	}

	empty, err := backendEmpty(ctx, app.Sheets)
	if err != nil {
		return exitError(1, err)
	}
	if !empty {
		fmt.Fprintln(out, "✓ Existing data kept (skipping seed)")
		return nil
	}
	result, err := seed.Load(ctx, app.Sheets, false)
	if err != nil {
		return exitError(1, fmt.Errorf("failed to seed backend: %w", err))
	}
	fmt.Fprintf(out, "✓ Seeded %d rows across %d tables\n", result.Rows, result.Tables)
	return nil
}

// backendEmpty reports whether no dashboard table holds a data row.
func backendEmpty(ctx context.Context, sheets sheet.Store) (bool, error) {
	for _, table := range domain.AllTables() {
		rows, err := sheets.Rows(ctx, table)
		if errors.Is(err, sheet.ErrTableNotFound) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("failed to read %s: %w", table, err)
		}
		if len(rows) > 1 {
			return false, nil
		}
	}
	return true, nil
}
