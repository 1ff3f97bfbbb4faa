package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
	"github.com/custodia-labs/leasequery/internal/core/ports/driving"
	"github.com/custodia-labs/leasequery/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// Ensure QueryService implements PromptStoreAware.
var _ driven.PromptStoreAware = (*QueryService)(nil)

const (
	answerMaxTokens   = 1024
	extractiveChunks  = 3
	extractiveExcerpt = 300
)

// QueryService routes questions and composes grounded answers.
type QueryService struct {
	router    *QueryRouter
	analytics *Analytics
	retriever *Retriever
	clauses   driven.ClauseStore
	leases    driven.LeaseStore
	llm       driven.LLMService
	prompts   driven.PromptStore
	settings  domain.RetrievalSettings
}

// NewQueryService creates a query service. llm may be nil, in which case
// answers are extractive.
func NewQueryService(
	router *QueryRouter,
	analytics *Analytics,
	retriever *Retriever,
	clauses driven.ClauseStore,
	leases driven.LeaseStore,
	llm driven.LLMService,
	settings domain.RetrievalSettings,
) *QueryService {
	return &QueryService{
		router:    router,
		analytics: analytics,
		retriever: retriever,
		clauses:   clauses,
		leases:    leases,
		llm:       llm,
		settings:  settings,
	}
}

// SetPromptStore sets the store used to load prompt templates.
func (s *QueryService) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// Ask routes and answers question.
//
//nolint:gocyclo // Sequential routing steps with a fallback at each one.
func (s *QueryService) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	logger.Section("Query")
	logger.Debug("Question: %q", question)

	// 1. ROUTE
	route := s.router.Route(ctx, question)
	logger.Info("Route: %s", route)

	// 2. ANALYTICS: key terms only, falls back to retrieval
	if route == domain.RouteAnalytics && s.analytics != nil {
		answer, ok, err := s.analytics.Answer(ctx, question)
		switch {
		case err != nil:
			logger.Warn("Analytics failed, falling back to retrieval: %v", err)
		case ok:
			return answer, nil
		default:
			logger.Info("Analytics found no match, falling back to retrieval")
		}
		route = domain.RouteRetrieval
	}

	// 3. RETRIEVE
	kFinal := s.settings.KFinal
	if route == domain.RouteComparison {
		kFinal *= 2
	}
	results, err := s.retriever.Retrieve(ctx, question, s.settings.KRetrieve, kFinal)
	if err != nil {
		if errors.Is(err, domain.ErrRetrievalTimeout) {
			logger.Warn("Retrieval timed out: %v", err)
		} else {
			logger.Warn("Retrieval failed: %v", err)
		}
		return domain.NoAnswer(route), nil
	}
	if len(results) == 0 {
		logger.Info("No candidates retrieved")
		return domain.NoAnswer(route), nil
	}

	// 4. CONTEXT
	blocks := buildContext(results)
	if route == domain.RouteComparison {
		blocks += s.comparisonContext(ctx, question, results)
	}
	evidence := evidenceScore(results)
	sources := sourceNames(results)
	logger.Debug("Evidence score: %.1f over %d chunks", evidence, len(results))

	// 5. COMPOSE
	text, err := s.compose(ctx, question, blocks)
	if err != nil {
		logger.Warn("Answer generation failed, using extractive answer: %v", err)
		return &domain.Answer{
			Answer:     extractiveAnswer(results),
			Route:      route,
			Confidence: finalConfidence(evidence, nil, false),
			Sources:    sources,
		}, nil
	}

	cleaned, reported := splitSelfReport(text)
	notInDocs := strings.Contains(strings.ToLower(cleaned), notInDocsPhrase)
	return &domain.Answer{
		Answer:     cleaned,
		Route:      route,
		Confidence: finalConfidence(evidence, reported, notInDocs),
		Sources:    sources,
	}, nil
}

func (s *QueryService) compose(ctx context.Context, question, blocks string) (string, error) {
	if s.llm == nil {
		return "", domain.ErrLLMUnavailable
	}
	user := fmt.Sprintf("Context:\n%s\nQuestion: %s", blocks, question)
	resp, err := s.llm.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: loadPrompt(s.prompts, driven.PromptAnswerSystem)},
		{Role: driven.RoleUser, Content: user},
	}, driven.ChatOptions{MaxTokens: answerMaxTokens, Temperature: 0.1})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp) == "" {
		return "", errors.New("empty completion")
	}
	return resp, nil
}

// comparisonContext adds the stored clause records of the compared leases
// for the clause types the question names.
func (s *QueryService) comparisonContext(ctx context.Context, question string, results []domain.RetrievedChunk) string {
	if s.clauses == nil {
		return ""
	}
	types := mentionedClauseTypes(question)
	if len(types) == 0 {
		return ""
	}

	var b strings.Builder
	for _, lease := range s.mentionedLeases(ctx, question, results) {
		records, err := s.clauses.GetClauses(ctx, lease.ID)
		if err != nil {
			logger.Debug("Clause lookup for %s failed: %v", lease.ID, err)
			continue
		}
		for _, rec := range records {
			if !types[rec.Type] {
				continue
			}
			fmt.Fprintf(&b, "[Clause] %s - %s", lease.Name, rec.Type.Description())
			if rec.ArticleReference != nil {
				fmt.Fprintf(&b, " (%s)", *rec.ArticleReference)
			}
			fmt.Fprintf(&b, ": %s", rec.Summary)
			if len(rec.KeyTerms) > 0 {
				fmt.Fprintf(&b, " Key terms: %s.", rec.KeyTermsString())
			}
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

// mentionedLeases returns leases named in the question, or the leases
// behind the retrieved chunks when none is named.
func (s *QueryService) mentionedLeases(ctx context.Context, question string, results []domain.RetrievedChunk) []domain.Lease {
	if s.leases != nil {
		all, err := s.leases.ListLeases(ctx)
		if err == nil {
			words := make(map[string]bool)
			for _, w := range nameWords(question) {
				words[w] = true
			}
			var named []domain.Lease
			for _, l := range all {
				stem := strings.TrimSuffix(l.Name, filepath.Ext(l.Name))
				if nameContained(stem, words) {
					named = append(named, l)
				}
			}
			if len(named) > 0 {
				return named
			}
		}
	}

	seen := make(map[string]bool)
	var out []domain.Lease
	for _, r := range results {
		if seen[r.Lease.ID] {
			continue
		}
		seen[r.Lease.ID] = true
		out = append(out, r.Lease)
	}
	return out
}

func mentionedClauseTypes(question string) map[domain.ClauseType]bool {
	q := strings.ToLower(question)
	out := make(map[domain.ClauseType]bool)
	for _, ct := range domain.AllClauseTypes() {
		for _, kw := range ct.Keywords() {
			if strings.Contains(q, kw) {
				out[ct] = true
				break
			}
		}
	}
	return out
}

// buildContext renders numbered context blocks for the answer prompt.
func buildContext(results []domain.RetrievedChunk) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] Lease: %s", i+1, r.Lease.Name)
		if r.Chunk.Section != "" {
			fmt.Fprintf(&b, " | Section: %s", r.Chunk.Section)
		}
		if r.Chunk.Page > 0 {
			fmt.Fprintf(&b, " | Page: %d", r.Chunk.Page)
		}
		fmt.Fprintf(&b, "\n%s\n\n", r.Chunk.Content)
	}
	return b.String()
}

// extractiveAnswer quotes the top chunks when no answer can be generated.
func extractiveAnswer(results []domain.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString("Relevant excerpts from the lease documents:\n")
	for i, r := range results[:min(extractiveChunks, len(results))] {
		fmt.Fprintf(&b, "\n[%d] %s", i+1, r.Lease.Name)
		if r.Chunk.Section != "" {
			fmt.Fprintf(&b, ", %s", r.Chunk.Section)
		}
		if r.Chunk.Page > 0 {
			fmt.Fprintf(&b, ", p. %d", r.Chunk.Page)
		}
		excerpt := strings.Join(strings.Fields(r.Chunk.Content), " ")
		if len(excerpt) > extractiveExcerpt {
			excerpt = truncateBytes(excerpt, extractiveExcerpt) + "..."
		}
		fmt.Fprintf(&b, ": %s\n", excerpt)
	}
	return b.String()
}

// sourceNames returns distinct lease names in first-relevance order.
func sourceNames(results []domain.RetrievedChunk) []string {
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Lease.Name
		if names[i] == "" {
			names[i] = r.Lease.ID
		}
	}
	return distinct(names)
}

