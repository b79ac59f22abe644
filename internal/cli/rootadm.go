package cli

import (
	"github.com/spf13/cobra"
)

var rootAdmCmd = &cobra.Command{
	Use:   "pipeboardadm",
	Short: "Administrative CLI for pipeboard storage lifecycle and infrastructure",
	Long: `pipeboardadm is the administrative companion to pipeboard. It handles
backend lifecycle (init, migrate, seed), snapshots, S3 backups, and running the
daemon in-process. These operations should not be exposed to dashboard users.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExecuteAdmin runs the admin root command
func ExecuteAdmin() error {
	return rootAdmCmd.Execute()
}

func init() {
	addBackendFlags(rootAdmCmd)
}
