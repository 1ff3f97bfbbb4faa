// Package markdown loads Markdown leases, dropping formatting markup but
// keeping clause numbering.
package markdown

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
	"github.com/custodia-labs/leasequery/internal/normalisers/normalise"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

var (
	frontMatter = regexp.MustCompile(`(?s)\A---[ \t]*\n(.*?)\n---[ \t]*(?:\n|\z)`)
	codeFence   = regexp.MustCompile("(?m)^```[^\n]*$")
	images      = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	links       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings    = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	blockquote  = regexp.MustCompile(`(?m)^>[ \t]?`)
	rules       = regexp.MustCompile(`(?m)^[ \t]*[-*_]{3,}[ \t]*$`)
	bullets     = regexp.MustCompile(`(?m)^([ \t]*)[-*+][ \t]+`)
	emphasis    = regexp.MustCompile(`(\*\*|__)(.+?)(\*\*|__)`)
)

// Loader handles Markdown documents.
type Loader struct{}

// New creates a new Markdown loader.
func New() *Loader {
	return &Loader{}
}

// Extensions returns the extensions this loader handles.
func (l *Loader) Extensions() []string {
	return []string{".md", ".markdown"}
}

// Priority returns the selection priority.
func (l *Loader) Priority() int {
	return 50
}

// Load reads the file, strips front matter and markup, and returns one page.
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

	body, meta := splitFrontMatter(string(raw))

	title := meta.Title
	if title == "" {
		title = firstHeading(body)
	}
	if title == "" {
		title = normalise.TitleFromName(path)
	}

	return normalise.Pages([]string{stripMarkdown(body)}, "markdown", title)
}

// frontMatterFields holds the front matter keys the loader reads.
type frontMatterFields struct {
	Title string `yaml:"title"`
}

// splitFrontMatter removes a leading YAML block. Invalid YAML is dropped
// without failing the load.
func splitFrontMatter(content string) (string, frontMatterFields) {
	var meta frontMatterFields
	content = strings.ReplaceAll(content, "\r\n", "\n")
	m := frontMatter.FindStringSubmatchIndex(content)
	if m == nil {
		return content, meta
	}
	_ = yaml.Unmarshal([]byte(content[m[2]:m[3]]), &meta)
	meta.Title = strings.TrimSpace(meta.Title)
	return content[m[1]:], meta
}

// firstHeading returns the first level-one heading.
func firstHeading(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return ""
}

// stripMarkdown removes common markup. Numbered lists are kept since lease
// clauses are referenced by number.
func stripMarkdown(content string) string {
	content = codeFence.ReplaceAllString(content, "")
	content = images.ReplaceAllString(content, "")
	content = links.ReplaceAllString(content, "$1")
	content = headings.ReplaceAllString(content, "")
	content = blockquote.ReplaceAllString(content, "")
	content = rules.ReplaceAllString(content, "")
	content = bullets.ReplaceAllString(content, "$1")
	content = emphasis.ReplaceAllString(content, "$2")
	return content
}
