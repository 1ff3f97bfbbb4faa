// Package plaintext loads plain text leases.
package plaintext

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
	"github.com/custodia-labs/leasequery/internal/normalisers/normalise"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// Loader handles plain text documents.
type Loader struct{}

// New creates a new plain text loader.
func New() *Loader {
	return &Loader{}
}

// Extensions returns the extensions this loader handles.
func (l *Loader) Extensions() []string {
	return []string{".txt", ".text"}
}

// Priority returns the selection priority.
func (l *Loader) Priority() int {
	return 5 // Fallback loader
}

// Load reads the file as one page. Form feeds split pages.
func (l *Loader) Load(ctx context.Context, path string) (*domain.NormalizedText, error) {
	if path == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}

	pages := strings.Split(string(raw), "\f")
	return normalise.Pages(pages, "text", normalise.TitleFromName(path))
}
