package domain

import "time"

// PageSpan marks the byte range of one page within a NormalizedText.
type PageSpan struct {
	// Number is the 1-based page number.
	Number int

	// Start is the byte offset where the page begins.
	Start int

	// End is the byte offset one past the page's last byte.
	End int
}

// NormalizedText is a loader's output: plain text plus page boundaries.
type NormalizedText struct {
	// Text is the normalised document text.
	Text string

	// Pages lists page boundaries in order. A single-page document has one span.
	Pages []PageSpan

	// Fingerprint is the hex SHA-256 of Text.
	Fingerprint string

	// Format is the source format (e.g. "pdf", "docx").
	Format string

	// Title is the document title when the format carries one.
	Title string
}

// PageAt returns the page number containing the byte offset, or 0 if unknown.
func (n *NormalizedText) PageAt(offset int) int {
	for _, p := range n.Pages {
		if offset >= p.Start && offset < p.End {
			return p.Number
		}
	}
	if len(n.Pages) > 0 && offset >= n.Pages[len(n.Pages)-1].End {
		return n.Pages[len(n.Pages)-1].Number
	}
	return 0
}

// ChangeType represents the type of file change seen by a watcher.
type ChangeType int

const (
	// ChangeCreated indicates a new file.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified file.
	ChangeUpdated

	// ChangeDeleted indicates a removed file.
	ChangeDeleted
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return unknownDescription
	}
}

// FileEvent is emitted by the filesystem watcher when a file is detected.
type FileEvent struct {
	// FilePath is the absolute path of the file.
	FilePath string

	// FileName is the base name of the file.
	FileName string

	// DetectedAt is when the watcher saw the event.
	DetectedAt time.Time

	// Change is the kind of change observed.
	Change ChangeType
}
