package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lherron/pipeboard/internal/cli/appctx"
)

var serveAdmCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP daemon in-process",
	Long: `Serve runs the same HTTP surface as pipeboardd: the action entry point at
/exec (GET action=getData, POST {"action": ...}), /v1/health and /metrics.
It stops on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runServeAdm),
}

var (
	serveAddr  string
	serveUnix  string
	serveToken string
)

func init() {
	rootAdmCmd.AddCommand(serveAdmCmd)

	serveAdmCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides PIPEBOARD_ADDR)")
	serveAdmCmd.Flags().StringVar(&serveUnix, "unix", "", "Listen on a unix socket instead of TCP")
	serveAdmCmd.Flags().StringVar(&serveToken, "token", os.Getenv("PIPEBOARDD_TOKEN"), "Shared token required on every request")
}

func runServeAdm(app *appctx.App, cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		app.Config.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serveApp(ctx, app, DaemonOptions{Unix: serveUnix, Token: serveToken}); err != nil {
		return exitError(1, err)
	}
	return nil
}
