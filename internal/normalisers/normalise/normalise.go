// Package normalise holds the text clean-up and command helpers shared by
// the document loaders.
package normalise

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

// pageSeparator joins consecutive pages in the normalised text.
const pageSeparator = "\n\n"

var (
	trailingSpace = regexp.MustCompile(`[ \t\v]+\n`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
)

// Text normalises line endings and whitespace: CRLF and lone CR become LF,
// trailing spaces are trimmed, runs of three or more newlines collapse to
// two, and blank lines at either end are removed.
func Text(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ToValidUTF8(s, "�")
	s = trailingSpace.ReplaceAllString(s+"\n", "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.Trim(s, "\n \t")
}

// Pages normalises each page and joins them with a blank line, recording
// page spans. Empty pages keep their number with a zero-length span.
// Whitespace-only output gives domain.ErrCorruptDocument.
func Pages(pages []string, format, title string) (*domain.NormalizedText, error) {
	var b strings.Builder
	spans := make([]domain.PageSpan, 0, len(pages))
	for i, p := range pages {
		p = Text(p)
		if p != "" && b.Len() > 0 {
			b.WriteString(pageSeparator)
		}
		start := b.Len()
		b.WriteString(p)
		spans = append(spans, domain.PageSpan{Number: i + 1, Start: start, End: b.Len()})
	}

	text := b.String()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no text content", domain.ErrCorruptDocument)
	}
	return &domain.NormalizedText{
		Text:        text,
		Pages:       spans,
		Fingerprint: Fingerprint(text),
		Format:      format,
		Title:       strings.TrimSpace(title),
	}, nil
}

// Fingerprint returns the hex SHA-256 of text.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// TitleFromName derives a display title from a file name.
func TitleFromName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ReplaceAll(name, "-", " ")
}

// CommandRunner executes external commands.
// This interface allows mocking in tests.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner executes commands using os/exec.
type ExecRunner struct{}

// Run executes a command and returns its standard output.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return out, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return out, err
	}
	return out, nil
}

// ConversionError wraps a failed external tool run as
// domain.ErrConversionFailure, adding install guidance when the tool is
// missing.
func ConversionError(tool, install string, err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %s not found in PATH. %s", domain.ErrConversionFailure, tool, install)
	}
	return fmt.Errorf("%w: %s failed: %v", domain.ErrConversionFailure, tool, err)
}
