package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errUnhealthy = errors.New("one or more required checks failed")

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check storage and AI providers",
	Long: `Check that the database, vector index and configured AI providers are
reachable. Exits non-zero when a required check fails.`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	if healthCheck == nil {
		return notConfigured("health")
	}

	checks := healthCheck(cmd.Context())

	healthy := true
	for _, c := range checks {
		if c.Required && !c.OK {
			healthy = false
		}
	}

	if jsonOutput {
		if err := printJSON(cmd, map[string]any{"healthy": healthy, "checks": checks}); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		s := stylesFor(w)
		for _, c := range checks {
			line := fmt.Sprintf("%s %s", s.Check(c.OK), c.Name)
			if c.Detail != "" {
				line += " " + s.Muted(c.Detail)
			}
			if !c.Required {
				line += " " + s.Muted("(optional)")
			}
			fmt.Fprintln(w, line)
		}
	}

	if !healthy {
		return errUnhealthy
	}
	return nil
}
