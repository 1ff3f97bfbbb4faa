package driving

import (
	"context"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

// QueryService answers natural-language questions about the lease portfolio.
type QueryService interface {
	// Ask routes and answers a question.
	// Retrieval and generation failures produce a low-confidence answer, not an error.
	// Returns domain.ErrInvalidInput for an empty question.
	Ask(ctx context.Context, question string) (*domain.Answer, error)
}
