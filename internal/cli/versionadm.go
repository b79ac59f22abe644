package cli

import (
	"github.com/spf13/cobra"
)

var versionAdmCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Displays version, commit, and build date information for pipeboardadm.`,
	RunE:  runVersionAdm,
}

var versionAdmJSON bool

func init() {
	rootAdmCmd.AddCommand(versionAdmCmd)
	versionAdmCmd.Flags().BoolVar(&versionAdmJSON, "json", false, "Output as JSON")
}

func runVersionAdm(cmd *cobra.Command, args []string) error {
	return writeVersion(cmd, "pipeboardadm", versionAdmJSON, []string{
		"init", "migrate", "seed", "snapshot", "backup", "serve", "config", "version",
	})
}
