package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptClauseExtraction extracts all clause types in one JSON response.
	// The template expects %s placeholders for the clause list and the lease text.
	PromptClauseExtraction = "clause_extraction"

	// PromptClauseSingle extracts one clause type.
	// The template expects %s placeholders for the clause name, its keywords and the lease text.
	PromptClauseSingle = "clause_single"

	// PromptKeyTerms extracts the key-terms record as JSON.
	// The template expects a %s placeholder for the lease text.
	PromptKeyTerms = "key_terms"

	// PromptQueryRouter classifies a question into a route.
	// The template expects a %s placeholder for the question.
	PromptQueryRouter = "query_router"

	// PromptAnswerSystem is the system prompt for grounded answers.
	// This prompt has no format placeholders.
	PromptAnswerSystem = "answer_system"
)

// AllPromptNames returns every well-known prompt name.
func AllPromptNames() []string {
	return []string{
		PromptClauseExtraction,
		PromptClauseSingle,
		PromptKeyTerms,
		PromptQueryRouter,
		PromptAnswerSystem,
	}
}

// PromptStoreAware is an optional interface for services that can use custom prompts.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service should use hardcoded default prompts.
	SetPromptStore(store PromptStore)
}
