package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
	"github.com/custodia-labs/leasequery/internal/logger"
)

// analyticsConfidence is the confidence of answers read from key terms.
const analyticsConfidence = 95

// corporateSuffixes are ignored when matching tenant names.
var corporateSuffixes = map[string]bool{
	"the": true, "ltd": true, "limited": true, "inc": true, "incorporated": true,
	"corp": true, "corporation": true, "llc": true, "co": true, "company": true,
}

// Analytics answers factual questions from stored key terms, without retrieval.
type Analytics struct {
	keyTerms driven.KeyTermsStore
	leases   driven.LeaseStore
}

// NewAnalytics creates an analytics engine.
func NewAnalytics(keyTerms driven.KeyTermsStore, leases driven.LeaseStore) *Analytics {
	return &Analytics{keyTerms: keyTerms, leases: leases}
}

// Portfolio summarises every stored key-terms record.
func (a *Analytics) Portfolio(ctx context.Context) (*domain.Portfolio, error) {
	records, err := a.keyTerms.ListKeyTerms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list key terms: %w", err)
	}
	return summarise(records), nil
}

func summarise(records []domain.KeyTermsRecord) *domain.Portfolio {
	p := &domain.Portfolio{LeaseCount: len(records), Tenants: make([]string, 0, len(records))}
	var rentTotal float64
	for i := range records {
		rec := &records[i]
		p.Tenants = append(p.Tenants, rec.DisplayTenant())
		if rec.DepositAmount != nil {
			p.TotalDeposit += *rec.DepositAmount
		}
		if rate, ok := rec.FirstYearRentPSF(); ok {
			rentTotal += rate
			p.LeasesWithRent++
		}
	}
	if p.LeasesWithRent > 0 {
		p.AverageYearOneRPF = math.Round(rentTotal/float64(p.LeasesWithRent)*100) / 100
	}
	return p
}

// Answer tries to answer question from key terms. The bool is false when
// nothing matched and the caller should fall back to retrieval.
func (a *Analytics) Answer(ctx context.Context, question string) (*domain.Answer, bool, error) {
	if a.keyTerms == nil {
		return nil, false, nil
	}
	records, err := a.keyTerms.ListKeyTerms(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("list key terms: %w", err)
	}
	if len(records) == 0 {
		return nil, false, nil
	}
	q := strings.ToLower(question)

	// Tenant-specific questions take precedence over portfolio aggregates.
	if matched := matchTenants(question, records); len(matched) > 0 {
		return a.tenantAnswer(ctx, q, matched)
	}
	return a.portfolioAnswer(ctx, q, records)
}

func (a *Analytics) tenantAnswer(ctx context.Context, q string, matched []domain.KeyTermsRecord) (*domain.Answer, bool, error) {
	field := detectField(q)
	if field == nil {
		logger.Debug("Analytics: tenant matched but no known field in question")
		return nil, false, nil
	}

	var lines []string
	var sources []string
	for i := range matched {
		rec := &matched[i]
		value, ok := field.value(rec)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s %s.", possessive(rec.DisplayTenant()), field.label, value))
		sources = append(sources, a.leaseName(ctx, rec.DocumentID))
	}
	if len(lines) == 0 {
		logger.Debug("Analytics: %s not recorded for matched tenants", field.label)
		return nil, false, nil
	}
	return &domain.Answer{
		Answer:     strings.Join(lines, "\n"),
		Route:      domain.RouteAnalytics,
		Confidence: analyticsConfidence,
		Sources:    distinct(sources),
	}, true, nil
}

//nolint:gocyclo // One branch per supported aggregate.
func (a *Analytics) portfolioAnswer(ctx context.Context, q string, records []domain.KeyTermsRecord) (*domain.Answer, bool, error) {
	p := summarise(records)
	var text string
	var contributing []domain.KeyTermsRecord

	switch {
	case strings.Contains(q, "deposit") && (strings.Contains(q, "total") || strings.Contains(q, "all ") || strings.Contains(q, "sum")):
		for _, r := range records {
			if r.DepositAmount != nil {
				contributing = append(contributing, r)
			}
		}
		if len(contributing) == 0 {
			return nil, false, nil
		}
		text = fmt.Sprintf("The total security deposit across %d leases is %s.", len(contributing), money(p.TotalDeposit))
	case strings.Contains(q, "average") && strings.Contains(q, "rent"):
		if p.LeasesWithRent == 0 {
			return nil, false, nil
		}
		for _, r := range records {
			if _, ok := r.FirstYearRentPSF(); ok {
				contributing = append(contributing, r)
			}
		}
		text = fmt.Sprintf("The average year-1 basic rent across %d leases is %s per square foot.",
			p.LeasesWithRent, money(p.AverageYearOneRPF))
	case strings.Contains(q, "how many") && strings.Contains(q, "lease"),
		strings.Contains(q, "number of leases"), strings.Contains(q, "lease count"):
		contributing = records
		text = fmt.Sprintf("The portfolio contains %d leases.", p.LeaseCount)
	case strings.Contains(q, "portfolio") || strings.Contains(q, "summary") || strings.Contains(q, "summarize") || strings.Contains(q, "summarise"):
		contributing = records
		text = fmt.Sprintf("The portfolio contains %d leases (%s). Total deposits: %s. Average year-1 rent: %s per square foot across %d leases.",
			p.LeaseCount, strings.Join(p.Tenants, ", "), money(p.TotalDeposit), money(p.AverageYearOneRPF), p.LeasesWithRent)
	default:
		return nil, false, nil
	}

	sources := make([]string, 0, len(contributing))
	for _, r := range contributing {
		sources = append(sources, a.leaseName(ctx, r.DocumentID))
	}
	return &domain.Answer{
		Answer:     text,
		Route:      domain.RouteAnalytics,
		Confidence: analyticsConfidence,
		Sources:    distinct(sources),
	}, true, nil
}

// leaseName returns the display name of a lease, or its ID when unknown.
func (a *Analytics) leaseName(ctx context.Context, id string) string {
	if a.leases == nil {
		return id
	}
	lease, err := a.leases.GetLease(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Debug("Analytics: lookup of lease %s failed: %v", id, err)
		}
		return id
	}
	return lease.Name
}

// ==================== Fields ====================

type keyTermsField struct {
	cues  []string
	label string
	value func(*domain.KeyTermsRecord) (string, bool)
}

// keyTermsFields is checked in order; more specific cues come first.
var keyTermsFields = []keyTermsField{
	{[]string{"deposit"}, "security deposit is", func(r *domain.KeyTermsRecord) (string, bool) {
		return floatValue(r.DepositAmount, money)
	}},
	{[]string{"rent schedule", "basic rent", "rent"}, "basic rent schedule is", func(r *domain.KeyTermsRecord) (string, bool) {
		return rentSchedule(r)
	}},
	{[]string{"expire", "expiry", "expiration", "end date", "ends"}, "lease expires on", func(r *domain.KeyTermsRecord) (string, bool) {
		return dateValue(r.ExpirationDate)
	}},
	{[]string{"commence", "start date", "begin"}, "lease commences on", func(r *domain.KeyTermsRecord) (string, bool) {
		return dateValue(r.CommencementDate)
	}},
	{[]string{"term", "how long", "duration"}, "lease term is", func(r *domain.KeyTermsRecord) (string, bool) {
		return floatValue(r.TermYears, func(v float64) string { return trimFloat(v) + " years" })
	}},
	{[]string{"area", "square feet", "sq ft", "sqft", "size"}, "rentable area is", func(r *domain.KeyTermsRecord) (string, bool) {
		return floatValue(r.RentableArea, func(v float64) string { return trimFloat(v) + " square feet" })
	}},
	{[]string{"permitted use", "use"}, "permitted use is", func(r *domain.KeyTermsRecord) (string, bool) {
		return stringValue(r.PermittedUse)
	}},
	{[]string{"landlord"}, "landlord is", func(r *domain.KeyTermsRecord) (string, bool) {
		return stringValue(r.LandlordName)
	}},
	{[]string{"renewal", "renew", "option"}, "renewal option is", func(r *domain.KeyTermsRecord) (string, bool) {
		return stringValue(r.RenewalOption)
	}},
}

func detectField(q string) *keyTermsField {
	for i := range keyTermsFields {
		for _, cue := range keyTermsFields[i].cues {
			if strings.Contains(q, cue) {
				return &keyTermsFields[i]
			}
		}
	}
	return nil
}

func floatValue(v *float64, format func(float64) string) (string, bool) {
	if v == nil {
		return "", false
	}
	return format(*v), true
}

func stringValue(v *string) (string, bool) {
	if v == nil || *v == "" {
		return "", false
	}
	return *v, true
}

func dateValue(v *time.Time) (string, bool) {
	if v == nil {
		return "", false
	}
	return v.Format("January 2, 2006"), true
}

func rentSchedule(r *domain.KeyTermsRecord) (string, bool) {
	if len(r.RentSchedule) == 0 {
		return "", false
	}
	steps := append([]domain.RentStep(nil), r.RentSchedule...)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].StartYear < steps[j].StartYear })

	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = fmt.Sprintf("years %s-%s at %s per sq ft", trimFloat(s.StartYear), trimFloat(s.EndYear), money(s.RatePSF))
	}
	out := strings.Join(parts, "; ")
	if avg, ok := r.AverageRentPSF(); ok {
		out += fmt.Sprintf(" (average %s per sq ft)", money(avg))
	}
	return out, true
}

func money(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	intPart, frac, _ := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-$" + b.String() + "." + frac
	}
	return "$" + b.String() + "." + frac
}

func trimFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}

func possessive(name string) string {
	if strings.HasSuffix(name, "s") {
		return name + "'"
	}
	return name + "'s"
}

// ==================== Tenant Matching ====================

// matchTenants returns records whose tenant or trade name appears in the
// question. A name matches when all of its significant words occur.
func matchTenants(question string, records []domain.KeyTermsRecord) []domain.KeyTermsRecord {
	words := make(map[string]bool)
	for _, w := range nameWords(question) {
		words[w] = true
	}

	var out []domain.KeyTermsRecord
	for _, rec := range records {
		for _, name := range []*string{rec.TradeName, rec.TenantName} {
			if name != nil && nameContained(*name, words) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

func nameContained(name string, words map[string]bool) bool {
	significant := 0
	for _, w := range nameWords(name) {
		if corporateSuffixes[w] {
			continue
		}
		significant++
		if !words[w] {
			return false
		}
	}
	return significant > 0
}

// nameWords normalises a name into words: apostrophe variants are
// removed, case is folded and punctuation separates words.
func nameWords(s string) []string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\'', '’', '‘', '`', '´':
			return -1
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Fields(s)
}

func distinct(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
