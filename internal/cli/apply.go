package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/pipeboard/internal/bulk"
	"github.com/lherron/pipeboard/internal/cli/appctx"
	"github.com/lherron/pipeboard/internal/parse"
)

var applyCmd = &cobra.Command{
	Use:   "apply <file|->",
	Short: "Apply a batch of write actions",
	Long: `Apply reads write actions from a file, or from stdin when the argument is "-",
and posts each one exactly as the HTTP surface would. Input is a JSON object or
array, NDJSON, or YAML; every item needs an "action" field.

Actions run in file order by default. --jobs above 1 runs them concurrently,
which is only safe when no action depends on another.

Exit codes: 0 all applied, 5 partial success, 1 nothing applied.`,
	Example: `  pipeboard apply changes.yaml
  cat changes.ndjson | pipeboard apply - --continue-on-error`,
	Args: cobra.ExactArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runApply),
}

var (
	applyFormat          string
	applyJobs            int
	applyContinueOnError bool
	applyQuiet           bool
)

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().StringVar(&applyFormat, "format", "", "Input format: json, ndjson, yaml (auto-detected when empty)")
	applyCmd.Flags().IntVarP(&applyJobs, "jobs", "j", 1, "Number of actions to run concurrently (0 = CPU count)")
	applyCmd.Flags().BoolVar(&applyContinueOnError, "continue-on-error", false, "Keep going after a failed action")
	applyCmd.Flags().BoolVarP(&applyQuiet, "quiet", "q", false, "Only print the summary")
}

func runApply(app *appctx.App, cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return exitError(2, err)
	}
	actions, err := parse.Parse(data, applyFormat)
	if err != nil {
		return exitError(2, err)
	}

	labels := make([]string, len(actions))
	for i, a := range actions {
		labels[i] = fmt.Sprintf("#%d %s", i+1, a.Name)
	}

	op := &bulk.Operation{
		Jobs:            applyJobs,
		ContinueOnError: applyContinueOnError,
		Ordered:         applyJobs == 1,
	}
	if !applyQuiet {
		op.Log = cmd.ErrOrStderr()
	}

	svc := app.Service()
	result := op.Execute(commandContext(cmd), labels, func(ctx context.Context, i int) error {
		resp := svc.Post(ctx, actions[i].Body)
		if msg, failed := resp.Error(); failed {
			return fmt.Errorf("%s", msg)
		}
		return nil
	})

	result.PrintSummary(cmd.OutOrStdout())
	app.Logger.Debug("apply finished",
		"total", result.TotalItems,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"skipped", result.Skipped)

	if code := result.ExitCode(); code != 0 {
		return exitError(code, fmt.Errorf("%d of %d actions not applied", result.Failed+result.Skipped, result.TotalItems))
	}
	return nil
}
