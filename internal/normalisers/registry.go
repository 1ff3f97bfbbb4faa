package normalisers

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
	"github.com/custodia-labs/leasequery/internal/normalisers/doc"
	"github.com/custodia-labs/leasequery/internal/normalisers/docx"
	"github.com/custodia-labs/leasequery/internal/normalisers/markdown"
	"github.com/custodia-labs/leasequery/internal/normalisers/normalise"
	"github.com/custodia-labs/leasequery/internal/normalisers/pdf"
	"github.com/custodia-labs/leasequery/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.LoaderRegistry = (*Registry)(nil)

// Registry selects loaders by file extension. When several loaders claim
// an extension the highest priority wins.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string][]driven.Loader
}

// NewRegistry creates an empty loader registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string][]driven.Loader)}
}

// Register adds a loader under each of its extensions.
func (r *Registry) Register(loader driven.Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range loader.Extensions() {
		ext = strings.ToLower(ext)
		list := append(r.loaders[ext], loader)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.loaders[ext] = list
	}
}

// Load reads the file using the best loader for its extension.
func (r *Registry) Load(ctx context.Context, path string) (*domain.NormalizedText, error) {
	loader, ok := r.lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, filepath.Ext(path))
	}
	return loader.Load(ctx, path)
}

// Supports reports whether a loader exists for the file's extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.lookup(path)
	return ok
}

// SupportedExtensions returns all registered extensions, sorted.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func (r *Registry) lookup(path string) (driven.Loader, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.loaders[ext]
	if len(list) == 0 {
		return nil, false
	}
	return list[0], true
}

// RegisterDefaults registers the built-in loaders. External tools are run
// through runner; nil uses os/exec.
func RegisterDefaults(r driven.LoaderRegistry, runner normalise.CommandRunner) {
	if runner == nil {
		runner = normalise.ExecRunner{}
	}
	r.Register(pdf.NewWithRunner(runner))
	r.Register(docx.New())
	r.Register(doc.NewWithRunner(runner))
	r.Register(markdown.New())
	r.Register(plaintext.New())
}

// NewDefaultRegistry returns a registry with the built-in loaders.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r, nil)
	return r
}
