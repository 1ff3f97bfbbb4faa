package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the version number",
	Annotations: levelNone(),
	Run: func(cmd *cobra.Command, _ []string) {
		if jsonOutput {
			_ = printJSON(cmd, map[string]string{"version": version})
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "leasequery version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
