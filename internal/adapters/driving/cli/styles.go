package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

// highConfidence is the score at which an answer is shown as well grounded.
const highConfidence = 60

// Theme defines the colour palette for terminal output.
type Theme struct {
	Primary lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary: lipgloss.Color("#7C3AED"), // Purple
		Muted:   lipgloss.Color("#6C7086"), // Medium gray
		Success: lipgloss.Color("#A6E3A1"), // Green
		Warning: lipgloss.Color("#F9E2AF"), // Yellow
		Error:   lipgloss.Color("#F38BA8"), // Red
	}
}

// Styles renders badges and headings. With colour disabled every method
// returns plain text.
type Styles struct {
	enabled bool

	title   lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme, enabled bool) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	badge := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	return &Styles{
		enabled: enabled,
		title:   lipgloss.NewStyle().Bold(true).Foreground(theme.Primary),
		muted:   lipgloss.NewStyle().Foreground(theme.Muted),
		success: badge.Foreground(lipgloss.Color("#1E1E2E")).Background(theme.Success),
		warning: badge.Foreground(lipgloss.Color("#1E1E2E")).Background(theme.Warning),
		failure: badge.Foreground(lipgloss.Color("#1E1E2E")).Background(theme.Error),
	}
}

// stylesFor enables colour only when w is a terminal and JSON output is off.
func stylesFor(w io.Writer) *Styles {
	enabled := false
	if f, ok := w.(*os.File); ok && !jsonOutput {
		enabled = term.IsTerminal(int(f.Fd()))
	}
	return NewStyles(DefaultTheme(), enabled)
}

// Title renders a heading.
func (s *Styles) Title(text string) string {
	if !s.enabled {
		return text
	}
	return s.title.Render(text)
}

// Muted renders secondary text.
func (s *Styles) Muted(text string) string {
	if !s.enabled {
		return text
	}
	return s.muted.Render(text)
}

// Confidence renders a confidence score badge.
func (s *Styles) Confidence(score int) string {
	text := fmt.Sprintf("%d%%", score)
	if !s.enabled {
		return "[" + text + "]"
	}
	switch {
	case score >= highConfidence:
		return s.success.Render(text)
	case score >= domain.LowConfidenceThreshold:
		return s.warning.Render(text)
	default:
		return s.failure.Render(text)
	}
}

// Status renders a lease status badge.
func (s *Styles) Status(status domain.LeaseStatus) string {
	text := string(status)
	if !s.enabled {
		return "[" + text + "]"
	}
	switch status {
	case domain.LeaseStatusIndexed:
		return s.success.Render(text)
	case domain.LeaseStatusFailed:
		return s.failure.Render(text)
	default:
		return s.warning.Render(text)
	}
}

// Check renders a pass or fail badge.
func (s *Styles) Check(ok bool) string {
	text := "FAIL"
	style := s.failure
	if ok {
		text = "OK"
		style = s.success
	}
	if !s.enabled {
		return "[" + text + "]"
	}
	return style.Render(text)
}
