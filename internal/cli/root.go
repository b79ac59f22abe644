package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pipeboard",
	Short: "Command-line client for the client onboarding dashboard",
	Long: `pipeboard reads and updates the onboarding dashboard directly against the
configured backend. Reads print the same hierarchy the daemon serves; writes go
through the same action handlers as POST /exec.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	addBackendFlags(rootCmd)
}

// addBackendFlags registers the flags appctx.Bootstrap reads.
func addBackendFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides PIPEBOARD_DB_PATH)")
	cmd.PersistentFlags().String("backend", "", "Backend: sqlite, postgres, redis or memory (overrides PIPEBOARD_BACKEND)")
	cmd.PersistentFlags().String("variant", "", "Dashboard variant: full or reduced (overrides PIPEBOARD_VARIANT)")
}
