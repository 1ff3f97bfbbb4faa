package domain

import "strings"

// ClauseType is one member of the closed lease clause taxonomy.
// Values outside AllClauseTypes are never stored.
type ClauseType string

// The clause taxonomy, in display order.
const (
	ClauseRentPayment          ClauseType = "rent_payment"
	ClauseSecurityDeposit      ClauseType = "security_deposit"
	ClauseTermRenewal          ClauseType = "term_renewal"
	ClauseUseRestrictions      ClauseType = "use_restrictions"
	ClauseMaintenanceRepairs   ClauseType = "maintenance_repairs"
	ClauseInsurance            ClauseType = "insurance"
	ClauseTermination          ClauseType = "termination"
	ClauseAssignmentSubletting ClauseType = "assignment_subletting"
	ClauseDefaultRemedies      ClauseType = "default_remedies"
)

// AllClauseTypes returns the taxonomy in display order.
func AllClauseTypes() []ClauseType {
	return []ClauseType{
		ClauseRentPayment,
		ClauseSecurityDeposit,
		ClauseTermRenewal,
		ClauseUseRestrictions,
		ClauseMaintenanceRepairs,
		ClauseInsurance,
		ClauseTermination,
		ClauseAssignmentSubletting,
		ClauseDefaultRemedies,
	}
}

// IsValid returns true if the clause type belongs to the taxonomy.
func (c ClauseType) IsValid() bool {
	switch c {
	case ClauseRentPayment, ClauseSecurityDeposit, ClauseTermRenewal,
		ClauseUseRestrictions, ClauseMaintenanceRepairs, ClauseInsurance,
		ClauseTermination, ClauseAssignmentSubletting, ClauseDefaultRemedies:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (c ClauseType) String() string {
	return string(c)
}

// Description returns a human-readable label.
func (c ClauseType) Description() string {
	switch c {
	case ClauseRentPayment:
		return "Rent & Payment"
	case ClauseSecurityDeposit:
		return "Security Deposit"
	case ClauseTermRenewal:
		return "Term & Renewal"
	case ClauseUseRestrictions:
		return "Use Restrictions"
	case ClauseMaintenanceRepairs:
		return "Maintenance & Repairs"
	case ClauseInsurance:
		return "Insurance"
	case ClauseTermination:
		return "Termination"
	case ClauseAssignmentSubletting:
		return "Assignment & Subletting"
	case ClauseDefaultRemedies:
		return "Default & Remedies"
	default:
		return unknownDescription
	}
}

// Keywords returns words that signal the clause type in free text.
func (c ClauseType) Keywords() []string {
	switch c {
	case ClauseRentPayment:
		return []string{"rent", "payment", "basic rent", "additional rent", "per square foot"}
	case ClauseSecurityDeposit:
		return []string{"deposit", "security deposit"}
	case ClauseTermRenewal:
		return []string{"term", "renewal", "renew", "extension", "option to extend"}
	case ClauseUseRestrictions:
		return []string{"permitted use", "use of premises", "exclusive", "restriction", "radius"}
	case ClauseMaintenanceRepairs:
		return []string{"maintenance", "repair", "hvac", "repairs"}
	case ClauseInsurance:
		return []string{"insurance", "insure", "liability", "indemnif"}
	case ClauseTermination:
		return []string{"terminate", "termination", "break clause", "early termination"}
	case ClauseAssignmentSubletting:
		return []string{"assign", "assignment", "sublet", "sublease", "transfer"}
	case ClauseDefaultRemedies:
		return []string{"default", "remedies", "remedy", "breach", "re-enter"}
	default:
		return nil
	}
}

// ParseClauseType normalises a label (case, spaces, ampersands) and
// returns the matching clause type.
func ParseClauseType(label string) (ClauseType, bool) {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.ReplaceAll(s, "&", "_")
	s = strings.ReplaceAll(s, " and ", "_")
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '/' {
			return '_'
		}
		return r
	}, s)
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	s = strings.Trim(s, "_")
	c := ClauseType(s)
	return c, c.IsValid()
}

// ClauseRecord is the extracted summary of one clause type in one lease.
// At most one record exists per (DocumentID, Type).
type ClauseRecord struct {
	// DocumentID links to the parent Lease.
	DocumentID string `json:"document_id"`

	// Type is the clause type.
	Type ClauseType `json:"clause_type"`

	// Summary is a short summary grounded in the source text.
	Summary string `json:"summary"`

	// ArticleReference is the article or section where the clause appears.
	// Nil when the reference could not be located in the source text.
	ArticleReference *string `json:"article_reference,omitempty"`

	// KeyTerms are the key values of the clause.
	KeyTerms []string `json:"key_terms"`
}

// KeyTermsString returns the key terms as a comma-delimited string.
func (r ClauseRecord) KeyTermsString() string {
	return strings.Join(r.KeyTerms, ", ")
}

// SplitKeyTerms parses a comma-delimited key terms string. Commas
// between digits are thousands separators and do not split a term.
func SplitKeyTerms(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] != ',' || thousandsSeparator(s, i) {
			continue
		}
		parts = append(parts, s[start:i])
		start = i + 1
	}
	parts = append(parts, s[start:])
	return CleanKeyTerms(parts)
}

// CleanKeyTerms trims terms and removes blank and repeated ones,
// ignoring case. Order is kept.
func CleanKeyTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func thousandsSeparator(s string, i int) bool {
	return i > 0 && i+1 < len(s) && isDigit(s[i-1]) && isDigit(s[i+1])
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// ComparisonEntry is one lease's record in a clause comparison.
type ComparisonEntry struct {
	DocumentID       string   `json:"document_id"`
	Summary          string   `json:"summary"`
	KeyTerms         []string `json:"key_terms"`
	ArticleReference *string  `json:"article_reference,omitempty"`
}

// Comparison maps each clause type to the leases that contain it.
// Clause types absent from every compared lease are omitted.
type Comparison map[ClauseType][]ComparisonEntry
