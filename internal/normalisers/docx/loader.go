// Package docx loads Word 2007+ leases by walking word/document.xml.
package docx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
	"github.com/custodia-labs/leasequery/internal/normalisers/normalise"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

const (
	documentPart = "word/document.xml"
	corePart     = "docProps/core.xml"
)

// Loader handles DOCX documents.
type Loader struct{}

// New creates a new DOCX loader.
func New() *Loader {
	return &Loader{}
}

// Extensions returns the extensions this loader handles.
func (l *Loader) Extensions() []string {
	return []string{".docx"}
}

// Priority returns the selection priority.
func (l *Loader) Priority() int {
	return 50
}

// Load extracts paragraphs, splitting pages on explicit page breaks.
func (l *Loader) Load(ctx context.Context, path string) (*domain.NormalizedText, error) {
	return LoadFormat(ctx, path, "docx")
}

// LoadFormat loads a DOCX file and records the given format name. The legacy
// .doc loader converts to DOCX and reports "doc".
func LoadFormat(ctx context.Context, path, format string) (*domain.NormalizedText, error) {
	if path == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}

	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: not a zip archive: %v", domain.ErrCorruptDocument, err)
	}
	defer reader.Close()

	content, err := readPart(&reader.Reader, documentPart)
	if err != nil {
		return nil, err
	}

	pages, err := parseDocument(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptDocument, err)
	}

	title := extractTitle(&reader.Reader)
	if title == "" {
		title = normalise.TitleFromName(path)
	}
	return normalise.Pages(pages, format, title)
}

// readPart returns the bytes of one archive member.
func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCorruptDocument, err)
		}
		defer rc.Close()

		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCorruptDocument, err)
		}
		return content, nil
	}
	return nil, fmt.Errorf("%w: missing %s", domain.ErrCorruptDocument, name)
}

// parseDocument walks the WordprocessingML token stream. Paragraphs are
// separated by blank lines, <w:tab/> becomes a tab, <w:br/> a newline and
// <w:br w:type="page"/> starts a new page.
//
//nolint:gocyclo // Token switch mirrors the handful of elements that carry text.
func parseDocument(content []byte) ([]string, error) {
	decoder := xml.NewDecoder(strings.NewReader(string(content)))

	var (
		pages   []string
		page    strings.Builder
		para    strings.Builder
		inText  bool
		sawBody bool
	)

	flushPara := func() {
		text := strings.TrimRight(para.String(), " \t")
		para.Reset()
		if strings.TrimSpace(text) == "" {
			return
		}
		if page.Len() > 0 {
			page.WriteString("\n\n")
		}
		page.WriteString(text)
	}
	flushPage := func() {
		flushPara()
		pages = append(pages, page.String())
		page.Reset()
	}

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "body":
				sawBody = true
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "cr":
				para.WriteByte('\n')
			case "br":
				if attr(t, "type") == "page" {
					flushPage()
				} else {
					para.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flushPara()
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}

	if !sawBody {
		return nil, errors.New("document has no body")
	}
	flushPage()
	return pages, nil
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// coreXML represents the structure of docProps/core.xml.
type coreXML struct {
	Title string `xml:"title"`
}

// extractTitle reads the title from docProps/core.xml when present.
func extractTitle(reader *zip.Reader) string {
	content, err := readPart(reader, corePart)
	if err != nil {
		return ""
	}
	var core coreXML
	if err := xml.Unmarshal(content, &core); err != nil {
		return ""
	}
	return strings.TrimSpace(core.Title)
}
