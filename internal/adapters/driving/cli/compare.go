package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

var compareCmd = &cobra.Command{
	Use:   "compare <lease-id> <lease-id>...",
	Short: "Compare clauses across leases",
	Long: `Show the extracted clauses of two or more leases side by side, grouped
by clause type. Clause types found in none of the leases are omitted.

Example:
  leasequery compare acme.pdf globex.docx`,
	Args: cobra.MinimumNArgs(2),
	RunE: runCompare,
}

var keyTermsCmd = &cobra.Command{
	Use:   "key-terms <lease-id>...",
	Short: "Show extracted key terms",
	Long: `Show the key terms extracted from one or more leases: parties,
dates, area, deposit and the rent schedule.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runKeyTerms,
}

func init() {
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(keyTermsCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	if leaseService == nil {
		return notConfigured("lease")
	}

	cmp, err := leaseService.Compare(cmd.Context(), args)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd, cmp)
	}

	w := cmd.OutOrStdout()
	s := stylesFor(w)

	if len(cmp) == 0 {
		fmt.Fprintln(w, "No clauses found for the given leases.")
		return nil
	}

	for _, ct := range domain.AllClauseTypes() {
		entries, ok := cmp[ct]
		if !ok {
			continue
		}
		fmt.Fprintln(w, s.Title(ct.Description()))
		for _, e := range entries {
			ref := ""
			if e.ArticleReference != nil {
				ref = " (" + *e.ArticleReference + ")"
			}
			fmt.Fprintf(w, "  %s%s\n", e.DocumentID, s.Muted(ref))
			fmt.Fprintf(w, "    %s\n", e.Summary)
			if len(e.KeyTerms) > 0 {
				fmt.Fprintf(w, "    %s\n", s.Muted(strings.Join(e.KeyTerms, ", ")))
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

func runKeyTerms(cmd *cobra.Command, args []string) error {
	if leaseService == nil {
		return notConfigured("lease")
	}

	records, err := leaseService.KeyTerms(cmd.Context(), args)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd, records)
	}

	w := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(w, "No key terms found for the given leases.")
		return nil
	}
	for i := range records {
		printKeyTerms(w, &records[i])
	}
	return nil
}

func printKeyTerms(w io.Writer, k *domain.KeyTermsRecord) {
	s := stylesFor(w)

	fmt.Fprintf(w, "%s %s\n", s.Title(k.DisplayTenant()), s.Muted(k.DocumentID))
	field(w, "Tenant", k.TenantName)
	field(w, "Trade name", k.TradeName)
	field(w, "Landlord", k.LandlordName)
	field(w, "Tenant address", k.TenantAddress)
	field(w, "Indemnifier", k.Indemnifier)
	field(w, "Premises", k.PremisesDescription)
	dateField(w, "Lease date", k.LeaseDate)
	dateField(w, "Commencement", k.CommencementDate)
	dateField(w, "Expiration", k.ExpirationDate)
	numberField(w, "Rentable area (sq ft)", k.RentableArea, "%.0f")
	numberField(w, "Term (years)", k.TermYears, "%.1f")
	numberField(w, "Deposit", k.DepositAmount, "$%.2f")
	field(w, "Renewal option", k.RenewalOption)
	field(w, "Permitted use", k.PermittedUse)
	field(w, "Fixturing period", k.FixturingPeriod)
	field(w, "Free rent", k.FreeRentPeriod)
	field(w, "Possession", k.PossessionDate)
	field(w, "Improvement allowance", k.ImprovementAllowance)
	field(w, "Exclusive use", k.ExclusiveUse)
	field(w, "Radius restriction", k.RadiusRestriction)

	if len(k.RentSchedule) > 0 {
		fmt.Fprintln(w, "  Rent schedule:")
		for _, step := range k.RentSchedule {
			fmt.Fprintf(w, "    Years %.0f-%.0f  $%.2f/sq ft\n", step.StartYear, step.EndYear, step.RatePSF)
		}
	}
	fmt.Fprintln(w)
}

func field(w io.Writer, label string, v *string) {
	if v == nil {
		return
	}
	fmt.Fprintf(w, "  %s: %s\n", label, *v)
}

func dateField(w io.Writer, label string, v *time.Time) {
	if v == nil {
		return
	}
	fmt.Fprintf(w, "  %s: %s\n", label, v.Format(time.DateOnly))
}

func numberField(w io.Writer, label string, v *float64, format string) {
	if v == nil {
		return
	}
	fmt.Fprintf(w, "  %s: "+format+"\n", label, *v)
}
