package markdown

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestExtensionsAndPriority(t *testing.T) {
	l := New()
	assert.Equal(t, []string{".md", ".markdown"}, l.Extensions())
	assert.Equal(t, 50, l.Priority())
}

func TestLoad_FrontMatterTitle(t *testing.T) {
	path := write(t, "lease.md", "---\ntitle: Harbor Plaza Lease\nparties: 2\n---\n# Heading\n\nBody text.\n")

	n, err := New().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Harbor Plaza Lease", n.Title)
	assert.Equal(t, "Heading\n\nBody text.", n.Text)
	assert.Equal(t, "markdown", n.Format)
	require.Len(t, n.Pages, 1)
}

func TestLoad_HeadingTitle(t *testing.T) {
	path := write(t, "lease.md", "# Retail Lease\r\n\r\n## Article 3 Rent\r\n")

	n, err := New().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Retail Lease", n.Title)
	assert.Equal(t, "Retail Lease\n\nArticle 3 Rent", n.Text)
}

func TestLoad_FileNameTitle(t *testing.T) {
	path := write(t, "store_42-lease.md", "plain body")

	n, err := New().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "store 42 lease", n.Title)
}

func TestLoad_InvalidFrontMatterIsDropped(t *testing.T) {
	path := write(t, "lease.md", "---\ntitle: [unclosed\n---\nBody\n")

	n, err := New().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Body", n.Text)
	assert.Equal(t, "lease", n.Title)
}

func TestLoad_Errors(t *testing.T) {
	_, err := New().Load(context.Background(), write(t, "empty.md", "---\ntitle: x\n---\n\n"))
	assert.ErrorIs(t, err, domain.ErrCorruptDocument)

	_, err = New().Load(context.Background(), "/no/such.md")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"links", "see [Exhibit B](exhibit-b.md)", "see Exhibit B"},
		{"images", "![plan](site.png)floor", "floor"},
		{"emphasis", "**Tenant** shall __not__ assign", "Tenant shall not assign"},
		{"bullets", "- one\n  * two", "one\n  two"},
		{"numbering kept", "1. Rent\n2. Deposit", "1. Rent\n2. Deposit"},
		{"quotes", "> quoted", "quoted"},
		{"fences", "```\ncode\n```", "\ncode\n"},
		{"rules", "a\n---\nb", "a\n\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripMarkdown(tt.input))
		})
	}
}
