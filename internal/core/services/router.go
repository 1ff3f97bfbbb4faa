package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
	"github.com/custodia-labs/leasequery/internal/logger"
)

// Ensure QueryRouter implements PromptStoreAware.
var _ driven.PromptStoreAware = (*QueryRouter)(nil)

var (
	comparisonCues = []string{"compare", "comparison", "versus", " vs ", " vs.", "difference between", "differences between", "side by side", "side-by-side"}
	analyticsCues  = []string{"how much", "how many", "total", "average", "deposit amount", "when does", "expire", "expiry", "expiration", "term of", "rent schedule", "portfolio"}

	// valueQuestionPrefixes open questions asking for a single recorded value.
	valueQuestionPrefixes = []string{"what is", "what's", "whats", "what are", "when", "how long", "who is"}
)

// QueryRouter classifies questions into routes.
type QueryRouter struct {
	llm      driven.LLMService
	prompts  driven.PromptStore
	keyTerms driven.KeyTermsStore
}

// NewQueryRouter creates a router. llm may be nil, in which case only
// keyword heuristics are used.
func NewQueryRouter(llm driven.LLMService) *QueryRouter {
	return &QueryRouter{llm: llm}
}

// SetPromptStore sets the store used to load prompt templates.
func (r *QueryRouter) SetPromptStore(store driven.PromptStore) {
	r.prompts = store
}

// SetKeyTerms sets the store used to recognise tenants named in a
// question. Without it, heuristics use keyword cues only.
func (r *QueryRouter) SetKeyTerms(store driven.KeyTermsStore) {
	r.keyTerms = store
}

// Route classifies question. It never fails: when the LLM is missing,
// errors, or answers with an unexpected label, heuristics decide.
func (r *QueryRouter) Route(ctx context.Context, question string) domain.Route {
	if r.llm != nil {
		prompt := fmt.Sprintf(loadPrompt(r.prompts, driven.PromptQueryRouter), question)
		resp, err := r.llm.Chat(ctx, []driven.ChatMessage{
			{Role: driven.RoleUser, Content: prompt},
		}, driven.ChatOptions{MaxTokens: 10, Temperature: 0})
		if err == nil {
			label := strings.ToLower(strings.TrimFunc(strings.TrimSpace(resp), func(c rune) bool {
				return !unicode.IsLetter(c)
			}))
			if route, ok := domain.ParseRoute(label); ok {
				logger.Debug("Router: LLM classified as %s", route)
				return route
			}
			logger.Debug("Router: unexpected label %q, using heuristics", resp)
		} else {
			logger.Warn("Router: classification failed, using heuristics: %v", err)
		}
	}

	route := heuristicRoute(question)
	if route == domain.RouteRetrieval && r.asksTenantValue(ctx, question) {
		route = domain.RouteAnalytics
	}
	logger.Debug("Router: heuristics classified as %s", route)
	return route
}

// asksTenantValue reports whether question asks for a recorded key term
// of a known tenant, as in "What is the security deposit for Acme?".
func (r *QueryRouter) asksTenantValue(ctx context.Context, question string) bool {
	if r.keyTerms == nil {
		return false
	}
	q := strings.ToLower(strings.Join(strings.Fields(question), " "))
	valueQuestion := false
	for _, prefix := range valueQuestionPrefixes {
		if strings.HasPrefix(q, prefix+" ") {
			valueQuestion = true
			break
		}
	}
	if !valueQuestion || detectField(q) == nil {
		return false
	}

	records, err := r.keyTerms.ListKeyTerms(ctx)
	if err != nil {
		logger.Debug("Router: tenant lookup failed: %v", err)
		return false
	}
	return len(matchTenants(question, records)) > 0
}

// heuristicRoute classifies by keyword cues. Comparison cues win over
// analytics cues; anything else is retrieval.
func heuristicRoute(question string) domain.Route {
	q := " " + strings.ToLower(strings.Join(strings.Fields(question), " ")) + " "
	for _, cue := range comparisonCues {
		if strings.Contains(q, cue) {
			return domain.RouteComparison
		}
	}
	for _, cue := range analyticsCues {
		if strings.Contains(q, cue) {
			return domain.RouteAnalytics
		}
	}
	return domain.RouteRetrieval
}
