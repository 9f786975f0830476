// Package render draws history, scan results and QR symbols for the
// terminal.  The palette follows the persisted dark-mode preference, which
// callers pass in explicitly.
package render

import "github.com/charmbracelet/lipgloss"

var (
	lightForeground = lipgloss.Color("#101F38")
	lightPrimary    = lipgloss.Color("#1565C0")
	lightMuted      = lipgloss.Color("#6B7280")
	lightBorder     = lipgloss.Color("#D6DAE0")

	darkForeground = lipgloss.Color("#F2F2F2")
	darkPrimary    = lipgloss.Color("#8BC34A")
	darkMuted      = lipgloss.Color("#9CA3AF")
	darkBorder     = lipgloss.Color("#2A3850")

	warning = lipgloss.Color("#FFC107")
	danger  = lipgloss.Color("#E53935")
)

type Theme struct {
	Dark bool

	Title   lipgloss.Style
	Header  lipgloss.Style
	Body    lipgloss.Style
	Muted   lipgloss.Style
	Badge   lipgloss.Style
	Action  lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}

func NewTheme(dark bool) Theme {
	fg, primary, muted, border := lightForeground, lightPrimary, lightMuted, lightBorder
	if dark {
		fg, primary, muted, border = darkForeground, darkPrimary, darkMuted, darkBorder
	}

	return Theme{
		Dark: dark,

		Title: lipgloss.NewStyle().
			Foreground(primary).
			Bold(true),
		Header: lipgloss.NewStyle().
			Foreground(primary).
			Bold(true).
			Underline(true),
		Body: lipgloss.NewStyle().
			Foreground(fg),
		Muted: lipgloss.NewStyle().
			Foreground(muted),
		Badge: lipgloss.NewStyle().
			Foreground(primary).
			Bold(true),
		Action: lipgloss.NewStyle().
			Foreground(primary).
			Underline(true),
		Warning: lipgloss.NewStyle().
			Foreground(warning),
		Error: lipgloss.NewStyle().
			Foreground(danger).
			Bold(true),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
	}
}
