package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
	"github.com/custodia-labs/leasequery/internal/logger"
)

// Ensure KeyTermsExtractor implements PromptStoreAware.
var _ driven.PromptStoreAware = (*KeyTermsExtractor)(nil)

// KeyTermsExtractor pulls the scalar terms of a lease into a KeyTermsRecord.
type KeyTermsExtractor struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	now     func() time.Time
}

// NewKeyTermsExtractor creates a key-terms extractor backed by llm.
func NewKeyTermsExtractor(llm driven.LLMService) *KeyTermsExtractor {
	return &KeyTermsExtractor{llm: llm, now: time.Now}
}

// SetPromptStore sets the store used to load prompt templates.
func (e *KeyTermsExtractor) SetPromptStore(store driven.PromptStore) {
	e.prompts = store
}

// ExtractKeyTerms returns the key terms found in text. Fields the model
// could not fill, or filled with unparsable values, are left nil; the
// latter are reported as violations. DocumentID is left for the caller.
func (e *KeyTermsExtractor) ExtractKeyTerms(
	ctx context.Context, text string,
) (*domain.KeyTermsRecord, []domain.Violation, error) {
	if e.llm == nil {
		return nil, nil, domain.ErrLLMUnavailable
	}

	prompt := fmt.Sprintf(loadPrompt(e.prompts, driven.PromptKeyTerms), truncateBytes(text, maxExtractionInput))
	resp, err := e.llm.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleUser, Content: prompt},
	}, driven.ChatOptions{
		MaxTokens:   extractionMaxTokens,
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("key terms extraction: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := decodeJSONObject(resp, &raw); err != nil {
		logger.Warn("Key terms response dropped: %v", err)
		return nil, []domain.Violation{{Field: "key_terms", Reason: "unparsable response: " + err.Error()}}, nil
	}

	rec, violations := parseKeyTerms(raw)
	rec.ExtractedAt = e.now().UTC()
	logger.Debug("Key terms extraction: %d violations, %d rent steps", len(violations), len(rec.RentSchedule))
	return rec, violations, nil
}

//nolint:gocognit // Field table keeps each kind of value in one loop.
func parseKeyTerms(raw map[string]json.RawMessage) (*domain.KeyTermsRecord, []domain.Violation) {
	rec := &domain.KeyTermsRecord{}
	var violations []domain.Violation

	texts := []struct {
		key string
		dst **string
	}{
		{"tenant_name", &rec.TenantName},
		{"trade_name", &rec.TradeName},
		{"landlord_name", &rec.LandlordName},
		{"tenant_address", &rec.TenantAddress},
		{"indemnifier", &rec.Indemnifier},
		{"premises_description", &rec.PremisesDescription},
		{"renewal_option", &rec.RenewalOption},
		{"permitted_use", &rec.PermittedUse},
		{"fixturing_period", &rec.FixturingPeriod},
		{"free_rent_period", &rec.FreeRentPeriod},
		{"possession_date", &rec.PossessionDate},
		{"improvement_allowance", &rec.ImprovementAllowance},
		{"exclusive_use", &rec.ExclusiveUse},
		{"radius_restriction", &rec.RadiusRestriction},
	}
	for _, f := range texts {
		v, err := jsonString(raw[f.key])
		if err != nil {
			violations = append(violations, domain.Violation{Field: f.key, Reason: err.Error()})
			continue
		}
		*f.dst = v
	}

	dates := []struct {
		key string
		dst **time.Time
	}{
		{"lease_date", &rec.LeaseDate},
		{"commencement_date", &rec.CommencementDate},
		{"expiration_date", &rec.ExpirationDate},
	}
	for _, f := range dates {
		v, err := jsonDate(raw[f.key])
		if err != nil {
			violations = append(violations, domain.Violation{Field: f.key, Reason: err.Error()})
			continue
		}
		*f.dst = v
	}

	numbers := []struct {
		key string
		dst **float64
	}{
		{"rentable_area", &rec.RentableArea},
		{"term_years", &rec.TermYears},
		{"deposit_amount", &rec.DepositAmount},
	}
	for _, f := range numbers {
		v, err := jsonNumber(raw[f.key])
		if err != nil {
			violations = append(violations, domain.Violation{Field: f.key, Reason: err.Error()})
			continue
		}
		*f.dst = v
	}

	steps, vs := parseRentSchedule(raw["rent_schedule"])
	rec.RentSchedule = steps
	violations = append(violations, vs...)
	return rec, violations
}

func parseRentSchedule(raw json.RawMessage) ([]domain.RentStep, []domain.Violation) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, []domain.Violation{{Field: "rent_schedule", Reason: "not a list of steps"}}
	}

	var steps []domain.RentStep
	var violations []domain.Violation
	for i, item := range items {
		field := fmt.Sprintf("rent_schedule[%d]", i)
		start, errS := jsonNumber(item["start_year"])
		end, errE := jsonNumber(item["end_year"])
		rate, errR := jsonNumber(item["rate_psf"])
		if errS != nil || errE != nil || errR != nil || start == nil || end == nil || rate == nil {
			violations = append(violations, domain.Violation{Field: field, Reason: "missing or unparsable year range or rate"})
			continue
		}
		if *start < 1 || *end < *start || *rate < 0 {
			violations = append(violations, domain.Violation{
				Field:  field,
				Reason: fmt.Sprintf("invalid step: years %g-%g at %g", *start, *end, *rate),
			})
			continue
		}
		step := domain.RentStep{StartYear: *start, EndYear: *end, RatePSF: *rate}
		step.MonthlyRent, _ = jsonNumber(item["monthly_rent"])
		step.AnnualRent, _ = jsonNumber(item["annual_rent"])
		steps = append(steps, step)
	}
	return steps, violations
}
