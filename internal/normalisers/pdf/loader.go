// Package pdf loads PDF leases using the poppler pdftotext tool.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
	"github.com/custodia-labs/leasequery/internal/normalisers/normalise"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

const toolName = "pdftotext"

// maxTitleLen bounds the first-line title heuristic.
const maxTitleLen = 100

// Loader handles PDF documents.
type Loader struct {
	runner normalise.CommandRunner
}

// New creates a PDF loader backed by the real pdftotext binary.
func New() *Loader {
	return &Loader{runner: normalise.ExecRunner{}}
}

// NewWithRunner creates a PDF loader with a custom command runner.
func NewWithRunner(runner normalise.CommandRunner) *Loader {
	return &Loader{runner: runner}
}

// Extensions returns the extensions this loader handles.
func (l *Loader) Extensions() []string {
	return []string{".pdf"}
}

// Priority returns the selection priority.
func (l *Loader) Priority() int {
	return 50
}

// Load extracts layout-preserving text page by page. pdftotext separates
// pages with form feeds.
func (l *Loader) Load(ctx context.Context, path string) (*domain.NormalizedText, error) {
	if path == "" {
		return nil, domain.ErrInvalidInput
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}

	out, err := l.runner.Run(ctx, toolName, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", domain.ErrConversionFailure, ErrPDFToolNotFound)
		}
		return nil, normalise.ConversionError(toolName, InstallInstructions(), err)
	}

	pages := strings.Split(string(out), "\f")
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}

	n, err := normalise.Pages(pages, "pdf", "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w (scanned PDFs need OCR first)", path, err)
	}
	n.Title = extractTitle(n.Text, path)
	return n, nil
}

// extractTitle uses the first short line of text, falling back to the
// file name.
func extractTitle(text, path string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		if len(line) <= maxTitleLen {
			return line
		}
		break
	}
	return normalise.TitleFromName(path)
}

// CheckAvailable returns nil if pdftotext is installed.
func CheckAvailable() error {
	if _, err := exec.LookPath(toolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns platform guidance for installing pdftotext.
func InstallInstructions() string {
	return `Install poppler-utils to get pdftotext:
  macOS:   brew install poppler
  Debian:  sudo apt-get install poppler-utils
  Fedora:  sudo dnf install poppler-utils
  Windows: choco install poppler`
}
