// Package doc loads legacy Word leases by converting them to DOCX with
// LibreOffice.
package doc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
	"github.com/custodia-labs/leasequery/internal/normalisers/docx"
	"github.com/custodia-labs/leasequery/internal/normalisers/normalise"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

const toolName = "soffice"

const installHint = "Install LibreOffice (brew install --cask libreoffice, apt-get install libreoffice-writer)."

// Loader handles .doc documents.
type Loader struct {
	runner normalise.CommandRunner
	tool   string
}

// New creates a .doc loader that shells out to soffice.
func New() *Loader {
	return NewWithRunner(normalise.ExecRunner{})
}

// NewWithRunner creates a .doc loader with a custom command runner.
func NewWithRunner(runner normalise.CommandRunner) *Loader {
	return &Loader{runner: runner, tool: toolName}
}

// Extensions returns the extensions this loader handles.
func (l *Loader) Extensions() []string {
	return []string{".doc"}
}

// Priority returns the selection priority.
func (l *Loader) Priority() int {
	return 50
}

// Load converts the file into a scratch directory and reads the result with
// the DOCX loader.
func (l *Loader) Load(ctx context.Context, path string) (*domain.NormalizedText, error) {
	if path == "" {
		return nil, domain.ErrInvalidInput
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}

	outDir, err := os.MkdirTemp("", "leasequery-doc-*")
	if err != nil {
		return nil, fmt.Errorf("%w: scratch dir: %v", domain.ErrConversionFailure, err)
	}
	defer os.RemoveAll(outDir)

	if _, err := l.runner.Run(ctx, l.tool, "--headless", "--convert-to", "docx", "--outdir", outDir, path); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, normalise.ConversionError(l.tool, installHint, err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	converted := filepath.Join(outDir, base+".docx")
	if _, err := os.Stat(converted); err != nil {
		return nil, fmt.Errorf("%w: %s produced no output", domain.ErrConversionFailure, l.tool)
	}

	n, err := docx.LoadFormat(ctx, converted, "doc")
	if err != nil {
		return nil, err
	}
	if n.Title == normalise.TitleFromName(converted) {
		n.Title = normalise.TitleFromName(path)
	}
	return n, nil
}
