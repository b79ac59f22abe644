package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lherron/pipeboard/internal/cli/appctx"
	"github.com/lherron/pipeboard/internal/db"
)

var migrateAdmCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run any pending database migrations",
	Long: `Migrate applies any pending SQL migrations to the sqlite or postgres backend.

Migrations are embedded in the binary and tracked via the schema_migrations
table. Each migration file (e.g., 000001_tables.sql) is applied exactly once.

This command is safe to run multiple times - it only applies migrations that
haven't been applied yet.

Use --dry-run to see which migrations would be applied without running them.
Use --status to show the current migration status.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.Options{NeedsStore: true, SkipMigrationCheck: true}, runMigrateAdm),
}

var (
	migrateDryRun bool
	migrateStatus bool
)

func init() {
	rootAdmCmd.AddCommand(migrateAdmCmd)

	migrateAdmCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "Show which migrations would be applied without running them")
	migrateAdmCmd.Flags().BoolVar(&migrateStatus, "status", false, "Show current migration status")
}

func runMigrateAdm(app *appctx.App, cmd *cobra.Command, args []string) error {
	if app.DB == nil {
		return exitError(2, fmt.Errorf("backend %q has no migrations (sqlite and postgres only)", app.Config.Backend))
	}
	out := cmd.OutOrStdout()

	if migrateStatus {
		return showMigrationStatus(out, app.DB)
	}
	if migrateDryRun {
		return showPendingMigrations(out, app.DB)
	}

	applied, err := app.DB.MigrateWithInfo()
	if err != nil {
		return exitError(1, fmt.Errorf("failed to run migrations: %w", err))
	}

	if len(applied) == 0 {
		fmt.Fprintln(out, "Database is up to date. No migrations to apply.")
	} else {
		for _, m := range applied {
			fmt.Fprintf(out, "✓ Applied migration: %s\n", m)
		}
		fmt.Fprintf(out, "\nApplied %d migration(s).\n", len(applied))
	}
	return nil
}

func showMigrationStatus(out io.Writer, database *db.DB) error {
	applied, pending, err := database.MigrationStatus()
	if err != nil {
		return exitError(1, fmt.Errorf("failed to get migration status: %w", err))
	}

	if len(applied) == 0 && len(pending) == 0 {
		fmt.Fprintln(out, "No migrations found.")
		return nil
	}

	if len(applied) > 0 {
		fmt.Fprintln(out, "Applied migrations:")
		for _, m := range applied {
			fmt.Fprintf(out, "  ✓ %s\n", m)
		}
	}

	if len(pending) > 0 {
		if len(applied) > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, "Pending migrations:")
		for _, m := range pending {
			fmt.Fprintf(out, "  ○ %s\n", m)
		}
	}
	return nil
}

func showPendingMigrations(out io.Writer, database *db.DB) error {
	_, pending, err := database.MigrationStatus()
	if err != nil {
		return exitError(1, fmt.Errorf("failed to get migration status: %w", err))
	}

	if len(pending) == 0 {
		fmt.Fprintln(out, "No pending migrations. Database is up to date.")
		return nil
	}

	fmt.Fprintln(out, "Pending migrations (would be applied):")
	for _, m := range pending {
		fmt.Fprintf(out, "  ○ %s\n", m)
	}
	fmt.Fprintf(out, "\nTotal: %d migration(s) would be applied.\n", len(pending))
	return nil
}
