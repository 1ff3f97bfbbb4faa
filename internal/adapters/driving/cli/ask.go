package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the indexed leases",
	Long: `Route a question to retrieval, analytics or clause comparison and
print the answer with its sources and a confidence score.

Examples:
  leasequery ask "What is the renewal option for Acme?"
  leasequery ask which lease has the highest deposit`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return notConfigured("query")
	}

	question := strings.TrimSpace(strings.Join(args, " "))
	answer, err := queryService.Ask(cmd.Context(), question)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd, answer)
	}

	w := cmd.OutOrStdout()
	s := stylesFor(w)

	fmt.Fprintln(w, answer.Answer)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", s.Confidence(answer.Confidence), s.Muted("route: "+answer.Route.String()))
	if !answer.Grounded() {
		fmt.Fprintln(w, s.Muted("Low confidence: the answer may not be supported by the documents."))
	}
	if len(answer.Sources) > 0 {
		fmt.Fprintln(w, s.Muted("Sources: "+strings.Join(answer.Sources, ", ")))
	}
	return nil
}

