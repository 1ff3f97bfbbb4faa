package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

// span is a half-open byte range of the source text.
type span struct {
	start, end int
}

// blankLine matches a paragraph separator: a line break, an optional
// whitespace-only line and any whitespace that follows.
var blankLine = regexp.MustCompile(`\n[ \t\r]*\n\s*`)

// Split cuts text into chunks of about targetSize bytes. It prefers
// paragraph boundaries, then sentence ends, then whitespace, and only
// hard-cuts a run with no whitespace at all. Each chunk after the first
// starts up to overlap bytes before its predecessor ends.
//
// Chunks carry ordinals and offsets but no IDs. Content always equals
// text[StartOffset:EndOffset]. The result is deterministic, and empty
// text still yields one chunk.
func Split(text string, targetSize, overlap int) []domain.Chunk {
	if targetSize <= 0 {
		targetSize = DefaultChunkSize
	}
	overlap = max(0, min(overlap, targetSize/5))

	if strings.TrimSpace(text) == "" {
		return []domain.Chunk{{Ordinal: 0, Content: text, StartOffset: 0, EndOffset: len(text)}}
	}

	var pieces []span
	for _, para := range paragraphs(text) {
		pieces = append(pieces, splitLong(text, para, targetSize)...)
	}
	cores := pack(pieces, targetSize)

	chunks := make([]domain.Chunk, 0, len(cores))
	for i, c := range cores {
		start := c.start
		if i > 0 && overlap > 0 {
			start = overlapStart(text, c.start, overlap, cores[i-1].start)
		}
		start, end := trimSpan(text, start, c.end)
		chunks = append(chunks, domain.Chunk{
			Ordinal:     i,
			Content:     text[start:end],
			StartOffset: start,
			EndOffset:   end,
		})
	}
	return chunks
}

// paragraphs returns the trimmed, non-empty blocks between blank lines.
func paragraphs(text string) []span {
	var out []span
	pos := 0
	for _, loc := range blankLine.FindAllStringIndex(text, -1) {
		if s, e := trimSpan(text, pos, loc[0]); e > s {
			out = append(out, span{s, e})
		}
		pos = loc[1]
	}
	if s, e := trimSpan(text, pos, len(text)); e > s {
		out = append(out, span{s, e})
	}
	return out
}

// splitLong cuts a paragraph longer than target into pieces.
func splitLong(text string, p span, target int) []span {
	var out []span
	s := p.start
	for p.end-s > target {
		cut := cutPoint(text, s, s+target)
		if ps, pe := trimSpan(text, s, cut); pe > ps {
			out = append(out, span{ps, pe})
		}
		s = cut
		for s < p.end && isSpace(text[s]) {
			s++
		}
	}
	if s < p.end {
		out = append(out, span{s, p.end})
	}
	return out
}

// cutPoint picks where to end a piece starting at s that must not pass
// limit: the last sentence end in the back half of the window, else the
// last whitespace, else the last rune boundary.
func cutPoint(text string, s, limit int) int {
	half := s + (limit-s)/2
	for i := limit - 1; i > half; i-- {
		if isSentenceEnd(text[i]) && (i+1 == len(text) || isSpace(text[i+1])) {
			return i + 1
		}
	}
	for i := limit; i > s; i-- {
		if isSpace(text[i]) {
			return i
		}
	}

	c := limit
	for c > s && !utf8.RuneStart(text[c]) {
		c--
	}
	if c == s {
		// A single rune wider than the target.
		c = limit
		for c < len(text) && !utf8.RuneStart(text[c]) {
			c++
		}
	}
	return c
}

// pack greedily joins consecutive pieces while the joined span fits.
func pack(pieces []span, target int) []span {
	if len(pieces) == 0 {
		return nil
	}
	var out []span
	cur := pieces[0]
	for _, p := range pieces[1:] {
		if p.end-cur.start <= target {
			cur.end = p.end
			continue
		}
		out = append(out, cur)
		cur = p
	}
	return append(out, cur)
}

// overlapStart moves a chunk start back by up to overlap bytes, never
// before floor, snapped forward to the start of a word.
func overlapStart(text string, start, overlap, floor int) int {
	s := max(start-overlap, floor, 0)
	for s < start && !utf8.RuneStart(text[s]) {
		s++
	}
	if s > 0 && !isSpace(text[s-1]) {
		for s < start && !isSpace(text[s]) {
			s++
		}
	}
	return s
}

// trimSpan moves the offsets inwards past ASCII whitespace.
func trimSpan(text string, s, e int) (int, int) {
	for s < e && isSpace(text[s]) {
		s++
	}
	for e > s && isSpace(text[e-1]) {
		e--
	}
	return s, e
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '?' || b == '!'
}
