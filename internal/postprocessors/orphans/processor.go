// Package orphans merges an undersized trailing chunk into its predecessor.
package orphans

import (
	"context"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultMinSize is the default minimum trailing chunk size in bytes.
const DefaultMinSize = 100

// Processor folds a short final chunk into the one before it, so a
// lease's signature block does not end up as its own retrieval unit.
type Processor struct {
	minSize int
}

// New creates an orphan merger. A non-positive minSize uses the default.
func New(minSize int) *Processor {
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	return &Processor{minSize: minSize}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "orphans"
}

// Process merges the last chunk into its predecessor when it is shorter
// than the minimum size, then renumbers ordinals.
func (p *Processor) Process(_ context.Context, text *domain.NormalizedText, chunks []domain.Chunk) ([]domain.Chunk, error) {
	n := len(chunks)
	if n >= 2 && chunks[n-1].Len() < p.minSize {
		prev := &chunks[n-2]
		prev.EndOffset = max(prev.EndOffset, chunks[n-1].EndOffset)
		prev.Content = text.Text[prev.StartOffset:prev.EndOffset]
		chunks = chunks[:n-1]
	}
	for i := range chunks {
		chunks[i].Ordinal = i
	}
	return chunks, nil
}
