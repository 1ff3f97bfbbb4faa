// Package sections tags chunks with their page and nearest heading.
package sections

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// maxHeadingLen bounds the stored heading text in bytes.
const maxHeadingLen = 80

// headingPattern matches article and section headings at the start of a
// line, e.g. "ARTICLE 3 - RENT", "Article IV" or "Section 12.01 Assignment".
var headingPattern = regexp.MustCompile(`(?im)^[ \t]*((?:article|section)[ \t]+[0-9ivxlc]+(?:\.\d+)*\b[^\n]*)$`)

// Processor sets Chunk.Page and Chunk.Section.
type Processor struct{}

// New creates a section tagger.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "sections"
}

type heading struct {
	offset int
	text   string
}

// Process tags each chunk with the page it starts on and the last
// heading at or before its midpoint. Overlap carried in from the
// previous section does not decide the tag.
func (p *Processor) Process(_ context.Context, text *domain.NormalizedText, chunks []domain.Chunk) ([]domain.Chunk, error) {
	headings := findHeadings(text.Text)

	for i := range chunks {
		c := &chunks[i]
		c.Page = text.PageAt(c.StartOffset)

		// First heading past the midpoint, then step back one.
		mid := c.StartOffset + c.Len()/2
		idx := sort.Search(len(headings), func(j int) bool {
			return headings[j].offset > mid
		})
		if idx > 0 {
			c.Section = headings[idx-1].text
		} else if len(headings) > 0 && headings[0].offset < c.EndOffset {
			// The chunk opens with preamble and then the first heading.
			c.Section = headings[0].text
		}
	}
	return chunks, nil
}

func findHeadings(text string) []heading {
	matches := headingPattern.FindAllStringSubmatchIndex(text, -1)
	out := make([]heading, 0, len(matches))
	for _, m := range matches {
		h := strings.Join(strings.Fields(text[m[2]:m[3]]), " ")
		if len(h) > maxHeadingLen {
			h = truncate(h, maxHeadingLen)
		}
		out = append(out, heading{offset: m[2], text: h})
	}
	return out
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	for n > 0 && n < len(s) && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}
