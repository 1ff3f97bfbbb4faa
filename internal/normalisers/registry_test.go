package normalisers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

// stubLoader returns a fixed format so tests can see which loader ran.
type stubLoader struct {
	exts     []string
	priority int
	format   string
}

func (s *stubLoader) Extensions() []string { return s.exts }
func (s *stubLoader) Priority() int        { return s.priority }
func (s *stubLoader) Load(_ context.Context, _ string) (*domain.NormalizedText, error) {
	return &domain.NormalizedText{Text: "x", Format: s.format}, nil
}

func TestRegistry_PicksHighestPriority(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubLoader{exts: []string{".txt"}, priority: 5, format: "fallback"})
	r.Register(&stubLoader{exts: []string{".TXT"}, priority: 80, format: "special"})

	n, err := r.Load(context.Background(), "/leases/A.TXT")
	require.NoError(t, err)
	assert.Equal(t, "special", n.Format)
}

func TestRegistry_Unsupported(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubLoader{exts: []string{".pdf"}, priority: 50})

	_, err := r.Load(context.Background(), "/leases/scan.tiff")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	assert.False(t, r.Supports("README"))
	assert.False(t, r.Supports("x.tiff"))
	assert.True(t, r.Supports("x.PDF"))
}

func TestDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()
	assert.Equal(t, []string{".doc", ".docx", ".markdown", ".md", ".pdf", ".text", ".txt"}, r.SupportedExtensions())
}

func TestDefaultRegistry_LoadsText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lease.txt")
	require.NoError(t, os.WriteFile(path, []byte("ARTICLE 1 PREMISES"), 0o600))

	n, err := NewDefaultRegistry().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "text", n.Format)
	assert.Equal(t, "ARTICLE 1 PREMISES", n.Text)
}
