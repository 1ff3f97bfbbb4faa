package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var logsLimit int

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Summarise the lease portfolio",
	Long: `Summarise every lease with extracted key terms: tenant count, total
security deposit and the average first-year rent per square foot.`,
	Args: cobra.NoArgs,
	RunE: runPortfolio,
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent ingestion runs",
	Args:  cobra.NoArgs,
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 20, "maximum number of runs to show")
	rootCmd.AddCommand(portfolioCmd)
	rootCmd.AddCommand(logsCmd)
}

func runPortfolio(cmd *cobra.Command, _ []string) error {
	if leaseService == nil {
		return notConfigured("lease")
	}

	p, err := leaseService.Portfolio(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd, p)
	}

	w := cmd.OutOrStdout()
	s := stylesFor(w)

	fmt.Fprintln(w, s.Title("Portfolio"))
	fmt.Fprintf(w, "  Leases:         %d\n", p.LeaseCount)
	fmt.Fprintf(w, "  Total deposit:  $%.2f\n", p.TotalDeposit)
	if p.LeasesWithRent > 0 {
		fmt.Fprintf(w, "  Avg year-one rent: $%.2f/sq ft (%d leases)\n", p.AverageYearOneRPF, p.LeasesWithRent)
	}
	if len(p.Tenants) > 0 {
		fmt.Fprintf(w, "  Tenants:        %s\n", strings.Join(p.Tenants, ", "))
	}
	return nil
}

func runLogs(cmd *cobra.Command, _ []string) error {
	if leaseService == nil {
		return notConfigured("lease")
	}

	logs, err := leaseService.IngestionLogs(cmd.Context(), logsLimit)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd, logs)
	}

	w := cmd.OutOrStdout()
	if len(logs) == 0 {
		fmt.Fprintln(w, "No ingestion runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tDOCUMENT\tSTATUS\tMODE\tCHUNKS\tSECONDS\tERROR")
	for i := range logs {
		l := &logs[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.2f\t%s\n",
			l.CreatedAt.Format(time.DateTime), l.DocumentName, l.Status, l.Mode,
			l.ChunksProcessed, l.ProcessingTime, l.ErrorMessage)
	}
	return tw.Flush()
}
