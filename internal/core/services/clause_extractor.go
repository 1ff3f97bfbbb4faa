package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
	"github.com/custodia-labs/leasequery/internal/logger"
)

const (
	// maxExtractionInput caps the lease text sent to the LLM, in bytes.
	maxExtractionInput = 100000

	// maxClauseKeyTerms caps the key terms kept per clause.
	maxClauseKeyTerms = 5

	extractionMaxTokens = 4096
)

// Ensure ClauseExtractor implements PromptStoreAware.
var _ driven.PromptStoreAware = (*ClauseExtractor)(nil)

// ClauseExtractor summarises the clauses of a lease by type.
type ClauseExtractor struct {
	llm     driven.LLMService
	prompts driven.PromptStore
}

// NewClauseExtractor creates a clause extractor backed by llm.
func NewClauseExtractor(llm driven.LLMService) *ClauseExtractor {
	return &ClauseExtractor{llm: llm}
}

// SetPromptStore sets the store used to load prompt templates.
func (e *ClauseExtractor) SetPromptStore(store driven.PromptStore) {
	e.prompts = store
}

type rawClause struct {
	ClauseType       string          `json:"clause_type"`
	Found            *bool           `json:"found"`
	ArticleReference json.RawMessage `json:"article_reference"`
	Summary          string          `json:"summary"`
	KeyTerms         json.RawMessage `json:"key_terms"`
}

type rawClauseBatch struct {
	Clauses []rawClause `json:"clauses"`
}

// ExtractClauses returns one record per clause type found in text.
// Types the lease does not contain are absent from the map. Output that
// falls outside the schema is dropped and reported as violations.
// An error is returned only when no extraction call succeeded.
func (e *ClauseExtractor) ExtractClauses(
	ctx context.Context, text string,
) (map[domain.ClauseType]domain.ClauseRecord, []domain.Violation, error) {
	if e.llm == nil {
		return nil, nil, domain.ErrLLMUnavailable
	}
	input := truncateBytes(text, maxExtractionInput)

	// 1. BATCH: one call for every clause type
	records, violations, err := e.extractBatch(ctx, input, text)
	if err == nil {
		logger.Debug("Clause extraction: batch found %d clause types", len(records))
		return records, violations, nil
	}
	if ctx.Err() != nil {
		return nil, nil, fmt.Errorf("clause extraction: %w", ctx.Err())
	}
	logger.Warn("Clause extraction batch failed, falling back to per-type calls: %v", err)

	// 2. FALLBACK: one call per clause type, failures isolated
	return e.extractEach(ctx, input, text)
}

func (e *ClauseExtractor) extractBatch(
	ctx context.Context, input, source string,
) (map[domain.ClauseType]domain.ClauseRecord, []domain.Violation, error) {
	var list strings.Builder
	for _, ct := range domain.AllClauseTypes() {
		fmt.Fprintf(&list, "- %s: %s\n", ct, ct.Description())
	}

	prompt := fmt.Sprintf(loadPrompt(e.prompts, driven.PromptClauseExtraction), list.String(), input)
	resp, err := e.complete(ctx, prompt)
	if err != nil {
		return nil, nil, err
	}

	var batch rawClauseBatch
	if err := decodeJSONObject(resp, &batch); err != nil {
		return nil, nil, fmt.Errorf("parse batch response: %w", err)
	}
	if batch.Clauses == nil {
		return nil, nil, errors.New("parse batch response: missing clauses")
	}

	records := make(map[domain.ClauseType]domain.ClauseRecord)
	var violations []domain.Violation
	for _, raw := range batch.Clauses {
		ct, ok := domain.ParseClauseType(raw.ClauseType)
		if !ok {
			violations = append(violations, domain.Violation{Field: raw.ClauseType, Reason: "clause type outside taxonomy"})
			continue
		}
		if _, dup := records[ct]; dup {
			violations = append(violations, domain.Violation{Field: ct.String(), Reason: "duplicate clause type"})
			continue
		}
		rec, found, vs := validateClause(ct, raw, source)
		violations = append(violations, vs...)
		if found {
			records[ct] = rec
		}
	}
	return records, violations, nil
}

func (e *ClauseExtractor) extractEach(
	ctx context.Context, input, source string,
) (map[domain.ClauseType]domain.ClauseRecord, []domain.Violation, error) {
	records := make(map[domain.ClauseType]domain.ClauseRecord)
	var violations []domain.Violation
	var lastErr error
	failures := 0

	types := domain.AllClauseTypes()
	for _, ct := range types {
		if ctx.Err() != nil {
			return nil, nil, fmt.Errorf("clause extraction: %w", ctx.Err())
		}

		prompt := fmt.Sprintf(loadPrompt(e.prompts, driven.PromptClauseSingle),
			ct.Description(), strings.Join(ct.Keywords(), ", "), input)
		resp, err := e.complete(ctx, prompt)
		if err != nil {
			logger.Warn("Clause extraction for %s failed: %v", ct, err)
			failures++
			lastErr = err
			continue
		}

		var raw rawClause
		if err := decodeJSONObject(resp, &raw); err != nil {
			violations = append(violations, domain.Violation{Field: ct.String(), Reason: "unparsable response"})
			continue
		}
		rec, found, vs := validateClause(ct, raw, source)
		violations = append(violations, vs...)
		if found {
			records[ct] = rec
		}
	}

	if failures == len(types) {
		return nil, nil, fmt.Errorf("clause extraction: every call failed: %w", lastErr)
	}
	logger.Debug("Clause extraction: per-type calls found %d clause types (%d failed)", len(records), failures)
	return records, violations, nil
}

func (e *ClauseExtractor) complete(ctx context.Context, prompt string) (string, error) {
	return e.llm.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleUser, Content: prompt},
	}, driven.ChatOptions{
		MaxTokens:   extractionMaxTokens,
		Temperature: 0,
		JSONMode:    true,
	})
}

// validateClause converts raw model output into a record.
// The bool is false when the clause should be omitted.
func validateClause(ct domain.ClauseType, raw rawClause, source string) (domain.ClauseRecord, bool, []domain.Violation) {
	if raw.Found != nil && !*raw.Found {
		return domain.ClauseRecord{}, false, nil
	}
	summary := strings.TrimSpace(raw.Summary)
	if summary == "" || nullish(summary) || notFoundSummary(summary) {
		return domain.ClauseRecord{}, false, nil
	}

	rec := domain.ClauseRecord{
		Type:     ct,
		Summary:  summary,
		KeyTerms: clauseKeyTerms(raw.KeyTerms),
	}

	var violations []domain.Violation
	ref, err := jsonString(raw.ArticleReference)
	switch {
	case err != nil:
		violations = append(violations, domain.Violation{Field: ct.String() + ".article_reference", Reason: err.Error()})
	case ref != nil && !containsFold(source, *ref):
		violations = append(violations, domain.Violation{
			Field:  ct.String() + ".article_reference",
			Reason: fmt.Sprintf("%q not found in lease text", *ref),
		})
	case ref != nil:
		rec.ArticleReference = ref
	}
	return rec, true, violations
}

func clauseKeyTerms(raw json.RawMessage) []string {
	terms := domain.CleanKeyTerms(stringList(raw))
	out := terms[:0]
	for _, t := range terms {
		if nullish(t) {
			continue
		}
		out = append(out, t)
	}
	if len(out) > maxClauseKeyTerms {
		out = out[:maxClauseKeyTerms]
	}
	return out
}

func notFoundSummary(s string) bool {
	l := strings.ToLower(s)
	for _, marker := range []string{"not found", "not present", "no such clause", "does not contain", "not mentioned", "not specified"} {
		if strings.Contains(l, marker) {
			return true
		}
	}
	return false
}

// containsFold reports whether needle occurs in haystack, ignoring case
// and differences in whitespace.
func containsFold(haystack, needle string) bool {
	n := collapseSpace(needle)
	if n == "" {
		return false
	}
	return strings.Contains(collapseSpace(haystack), n)
}

func collapseSpace(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
