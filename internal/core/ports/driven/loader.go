package driven

import (
	"context"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

// Loader reads one document format into normalized text.
// Each loader handles a fixed set of file extensions (e.g., ".pdf").
type Loader interface {
	// Extensions returns the lower-cased file extensions this loader handles,
	// including the leading dot.
	Extensions() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific loaders should return 50-89.
	// Fallback loaders should return 1-9.
	Priority() int

	// Load reads the file at path and returns its normalized text.
	// Failures wrap domain.ErrCorruptDocument or domain.ErrConversionFailure.
	Load(ctx context.Context, path string) (*domain.NormalizedText, error)
}

// LoaderRegistry selects the appropriate loader for a file.
type LoaderRegistry interface {
	// Load reads a file using the best matching loader.
	// Returns domain.ErrUnsupportedFormat when no loader handles the extension.
	Load(ctx context.Context, path string) (*domain.NormalizedText, error)

	// Register adds a loader to the registry.
	Register(loader Loader)

	// Supports reports whether a loader exists for the file's extension.
	Supports(path string) bool

	// SupportedExtensions returns all extensions that can be loaded.
	SupportedExtensions() []string
}
