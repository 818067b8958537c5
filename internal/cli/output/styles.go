package output

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/leapstack-labs/dashvars/pkg/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status icons.
const (
	IconSuccess = "✓"
	IconWarning = "⚠"
	IconError   = "✗"
	IconPending = "○"
	IconArrow   = "→"
)

// Palette.
var (
	ColorAccent  = lipgloss.Color("#20B9B4")
	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#6C7A89")
)

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Header1  lipgloss.Style
	Header2  lipgloss.Style
	Bold     lipgloss.Style
	Muted    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Variable lipgloss.Style
	Kind     lipgloss.Style
}

// NewStyles builds the styles for a lipgloss renderer.
func NewStyles(lr *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1:  lr.NewStyle().Bold(true).Foreground(ColorAccent).Underline(true),
		Header2:  lr.NewStyle().Bold(true).Foreground(ColorAccent),
		Bold:     lr.NewStyle().Bold(true),
		Muted:    lr.NewStyle().Foreground(ColorMuted),
		Success:  lr.NewStyle().Foreground(ColorSuccess),
		Warning:  lr.NewStyle().Foreground(ColorWarning),
		Error:    lr.NewStyle().Foreground(ColorError),
		Variable: lr.NewStyle().Bold(true),
		Kind:     lr.NewStyle().Foreground(ColorMuted).Italic(true),
	}
}

// StateStyle picks the style of a fetch or run status.
func (s *Styles) StateStyle(status string) lipgloss.Style {
	switch status {
	case "idle", "success", "completed":
		return s.Success
	case "error", "failed":
		return s.Error
	case "stale", "waiting":
		return s.Warning
	default:
		return s.Muted
	}
}

// KindLabel returns a human label for a variable kind, such as "Query".
func KindLabel(k core.Kind) string {
	return cases.Title(language.English).String(strings.ToLower(k.String()))
}

// FormatHeader returns a markdown header.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue returns a markdown list item with a bold key.
func FormatKeyValue(key, value string) string {
	return "- **" + key + "**: " + value
}
