package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
const (
	ColorHeader    = lipgloss.Color("39")
	ColorBorder    = lipgloss.Color("240")
	ColorLabel     = lipgloss.Color("245")
	ColorValue     = lipgloss.Color("252")
	ColorOK        = lipgloss.Color("42")
	ColorWarning   = lipgloss.Color("214")
	ColorCritical  = lipgloss.Color("196")
	ColorMuted     = lipgloss.Color("241")
	ColorHighlight = lipgloss.Color("205")
)

// Status icons.
const (
	IconFound   = "✓"
	IconMissing = "✗"
	IconCached  = "•"
)

// Shared styles.
//
//nolint:gochecknoglobals // lipgloss styles are immutable values shared across views.
var (
	HeaderStyle   = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	LabelStyle    = lipgloss.NewStyle().Foreground(ColorLabel)
	ValueStyle    = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	OKStyle       = lipgloss.NewStyle().Foreground(ColorOK)
	WarningStyle  = lipgloss.NewStyle().Foreground(ColorWarning)
	CriticalStyle = lipgloss.NewStyle().Foreground(ColorCritical).Bold(true)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted).Italic(true)
	BoxStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)
)
