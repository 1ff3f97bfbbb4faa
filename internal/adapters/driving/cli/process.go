package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/leasequery/internal/connectors/filesystem"
	"github.com/custodia-labs/leasequery/internal/core/domain"
)

var (
	processMode  string
	processForce bool
)

var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Process a lease document",
	Long: `Load, chunk, index and extract clauses and key terms from a lease file.

Modes:
  full         index for retrieval and extract clauses and key terms
  clause_only  extract clauses only, skipping vector indexing

A file whose content has not changed since the last run is skipped unless
--force is given.

Examples:
  leasequery process ./leases/acme.pdf
  leasequery process file:///srv/leases/acme.docx --mode clause_only`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVarP(&processMode, "mode", "m", string(domain.ModeFull), "ingestion mode (full, clause_only)")
	processCmd.Flags().BoolVarP(&processForce, "force", "f", false, "reprocess even when unchanged")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return notConfigured("ingestion")
	}

	mode := domain.IngestionMode(processMode)
	if !mode.IsValid() {
		return fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, processMode)
	}

	path, err := filesystem.ResolvePath(args[0])
	if err != nil {
		return err
	}

	result := ingestionService.Process(cmd.Context(), path, mode, domain.ProcessOptions{Force: processForce})

	if jsonOutput {
		if err := printJSON(cmd, result); err != nil {
			return err
		}
	} else {
		printProcessResult(cmd.OutOrStdout(), result)
	}

	if !result.Success {
		return errors.New(result.Error)
	}
	return nil
}

func printProcessResult(w io.Writer, r *domain.ProcessResult) {
	s := stylesFor(w)

	switch {
	case r.Skipped:
		fmt.Fprintf(w, "%s unchanged, skipped\n", r.FileName)
	case r.Success:
		fmt.Fprintf(w, "%s %s\n", s.Check(true), s.Title(r.FileName))
		fmt.Fprintf(w, "  Mode:     %s\n", r.Mode.Description())
		if r.Mode == domain.ModeFull {
			fmt.Fprintf(w, "  Chunks:   %d\n", r.ChunksProcessed)
			fmt.Fprintf(w, "  Vectors:  %d\n", r.VectorsUploaded)
		}
		fmt.Fprintf(w, "  Clauses:  %d\n", r.ClausesFound)
		fmt.Fprintf(w, "  Time:     %.2fs\n", r.ProcessingTime)
	default:
		fmt.Fprintf(w, "%s %s failed at %s\n", s.Check(false), s.Title(r.FileName), r.FailedStage)
	}

	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "  %s\n", s.Muted("warning: "+warning))
	}
}
