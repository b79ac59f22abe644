package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lherron/pipeboard/internal/cli/appctx"
)

var statusCmd = &cobra.Command{
	Use:   "status <requirement-id> <status>",
	Short: "Set a requirement's status",
	Example: `  pipeboard status req-1 done
  pipeboard status req-2 in-progress`,
	Args: cobra.ExactArgs(2),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runStatus),
}

var progressCmd = &cobra.Command{
	Use:   "progress <technology-id> <value>",
	Short: "Set a technology's progress",
	Long: `Progress stores the value in the technology's progress cell. Numeric values
are sent as numbers; anything else is stored as given.`,
	Args: cobra.ExactArgs(2),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runProgress),
}

var signoffCmd = &cobra.Command{
	Use:   "signoff",
	Short: "Add or remove requirement sign-offs",
}

var signoffAddCmd = &cobra.Command{
	Use:   "add <requirement-id> <person>",
	Short: "Record a sign-off on a requirement",
	Args:  cobra.ExactArgs(2),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runSignoffAdd),
}

var signoffRmCmd = &cobra.Command{
	Use:   "rm <signoff-id>",
	Short: "Remove a sign-off",
	Args:  cobra.ExactArgs(1),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runSignoffRm),
}

var diagramCmd = &cobra.Command{
	Use:   "diagram",
	Short: "Manage client diagrams",
}

var diagramSaveCmd = &cobra.Command{
	Use:   "save <client-id> <file|->",
	Short: "Save a client's diagram from a JSON file or stdin",
	Long: `Save replaces the client's diagram with the JSON document read from the
file, or from stdin when the argument is "-". A client without a diagram gets
a new one.`,
	Args: cobra.ExactArgs(2),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runDiagramSave),
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(signoffCmd)
	rootCmd.AddCommand(diagramCmd)
	signoffCmd.AddCommand(signoffAddCmd)
	signoffCmd.AddCommand(signoffRmCmd)
	diagramCmd.AddCommand(diagramSaveCmd)
}

func runStatus(app *appctx.App, cmd *cobra.Command, args []string) error {
	return postAction(cmd, app.Service(), map[string]any{
		"action": "updateRequirementStatus",
		"id":     args[0],
		"status": args[1],
	})
}

func runProgress(app *appctx.App, cmd *cobra.Command, args []string) error {
	var progress any = args[1]
	if n, err := strconv.ParseFloat(args[1], 64); err == nil {
		progress = n
	}
	return postAction(cmd, app.Service(), map[string]any{
		"action":   "updateTechnologyProgress",
		"id":       args[0],
		"progress": progress,
	})
}

func runSignoffAdd(app *appctx.App, cmd *cobra.Command, args []string) error {
	return postAction(cmd, app.Service(), map[string]any{
		"action":        "addSignoff",
		"requirementId": args[0],
		"personName":    args[1],
	})
}

func runSignoffRm(app *appctx.App, cmd *cobra.Command, args []string) error {
	return postAction(cmd, app.Service(), map[string]any{
		"action": "removeSignoff",
		"id":     args[0],
	})
}

func runDiagramSave(app *appctx.App, cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[1])
	if err != nil {
		return exitError(1, err)
	}
	if !json.Valid(data) {
		return exitError(1, fmt.Errorf("diagram is not valid JSON"))
	}
	return postAction(cmd, app.Service(), map[string]any{
		"action":      "saveDiagram",
		"clientId":    args[0],
		"diagramData": json.RawMessage(data),
	})
}
