package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/pipeboard/internal/cli/appctx"
	"github.com/lherron/pipeboard/internal/seed"
)

var seedAdmCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the sample dataset",
	Long: `Seed appends the sample dataset (two categories, their pipelines, clients,
requirements, a sign-off and a diagram) to the backend. With --replace, the
existing data rows of every table are removed first.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runSeedAdm),
}

var seedReplace bool

func init() {
	rootAdmCmd.AddCommand(seedAdmCmd)

	seedAdmCmd.Flags().BoolVar(&seedReplace, "replace", false, "Remove existing data rows before loading")
}

func runSeedAdm(app *appctx.App, cmd *cobra.Command, args []string) error {
	result, err := seed.Load(commandContext(cmd), app.Sheets, seedReplace)
	if err != nil {
		return exitError(1, fmt.Errorf("failed to seed backend: %w", err))
	}
	out := cmd.OutOrStdout()
	if result.Replaced > 0 {
		fmt.Fprintf(out, "✓ Removed %d existing rows\n", result.Replaced)
	}
	fmt.Fprintf(out, "✓ Seeded %d rows across %d tables\n", result.Rows, result.Tables)
	return nil
}
