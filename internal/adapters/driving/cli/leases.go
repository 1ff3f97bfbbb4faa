package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var leasesCmd = &cobra.Command{
	Use:   "leases",
	Short: "Manage stored leases",
}

var leasesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored leases",
	Args:  cobra.NoArgs,
	RunE:  runLeasesList,
}

var leasesShowCmd = &cobra.Command{
	Use:   "show <lease-id>",
	Short: "Show a lease record",
	Args:  cobra.ExactArgs(1),
	RunE:  runLeasesShow,
}

var leasesDeleteCmd = &cobra.Command{
	Use:   "delete <lease-id>",
	Short: "Delete a lease and everything derived from it",
	Args:  cobra.ExactArgs(1),
	RunE:  runLeasesDelete,
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List files awaiting processing",
	Long: `List files the watcher has detected that are queued or being
processed, oldest first.`,
	Args: cobra.NoArgs,
	RunE: runPending,
}

func init() {
	leasesCmd.AddCommand(leasesListCmd)
	leasesCmd.AddCommand(leasesShowCmd)
	leasesCmd.AddCommand(leasesDeleteCmd)
	rootCmd.AddCommand(leasesCmd)
	rootCmd.AddCommand(pendingCmd)
}

func runLeasesList(cmd *cobra.Command, _ []string) error {
	if leaseService == nil {
		return notConfigured("lease")
	}

	leases, err := leaseService.List(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd, leases)
	}

	w := cmd.OutOrStdout()
	if len(leases) == 0 {
		fmt.Fprintln(w, "No leases stored. Use 'leasequery process <file>' to add one.")
		return nil
	}

	s := stylesFor(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tMODE\tCHUNKS\tUPDATED")
	for i := range leases {
		l := &leases[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			l.ID, s.Status(l.Status), l.Mode, l.ChunkCount, l.UpdatedAt.Format(time.DateTime))
	}
	return tw.Flush()
}

func runLeasesShow(cmd *cobra.Command, args []string) error {
	if leaseService == nil {
		return notConfigured("lease")
	}

	lease, err := leaseService.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd, lease)
	}

	w := cmd.OutOrStdout()
	s := stylesFor(w)

	fmt.Fprintf(w, "%s %s\n", s.Title(lease.ID), s.Status(lease.Status))
	fmt.Fprintf(w, "  Name:        %s\n", lease.Name)
	fmt.Fprintf(w, "  Source:      %s\n", lease.SourcePath)
	if lease.Title != "" {
		fmt.Fprintf(w, "  Title:       %s\n", lease.Title)
	}
	fmt.Fprintf(w, "  Mode:        %s\n", lease.Mode.Description())
	fmt.Fprintf(w, "  Pages:       %d\n", lease.PageCount)
	fmt.Fprintf(w, "  Chunks:      %d\n", lease.ChunkCount)
	fmt.Fprintf(w, "  Fingerprint: %s\n", lease.Fingerprint)
	fmt.Fprintf(w, "  Updated:     %s\n", lease.UpdatedAt.Format(time.DateTime))
	if lease.LastError != "" {
		fmt.Fprintf(w, "  Error:       %s (stage %s)\n", lease.LastError, lease.FailedStage)
	}
	return nil
}

func runLeasesDelete(cmd *cobra.Command, args []string) error {
	if leaseService == nil {
		return notConfigured("lease")
	}

	if err := leaseService.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd, map[string]string{"deleted": args[0]})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted lease %s\n", args[0])
	return nil
}

func runPending(cmd *cobra.Command, _ []string) error {
	if registryService == nil {
		return notConfigured("registry")
	}

	jobs := registryService.ListPending()

	if jsonOutput {
		return printJSON(cmd, jobs)
	}

	w := cmd.OutOrStdout()
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No pending files.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSTATE\tDETECTED")
	for _, job := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", job.FileName, job.State, job.DetectedAt.Format(time.DateTime))
	}
	return tw.Flush()
}
