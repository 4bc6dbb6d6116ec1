package tui

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	colorBorder    = lipgloss.Color("#4b5563")
	colorDimmed    = lipgloss.Color("#6b7280")
	colorBright    = lipgloss.Color("#f9fafb")
	colorBg        = lipgloss.Color("#111827")
	colorAnimating = lipgloss.Color("#3b82f6")
	colorComplete  = lipgloss.Color("#16a34a")
	colorWarning   = lipgloss.Color("#d97706")
	colorDanger    = lipgloss.Color("#dc2626")
	colorAccent    = lipgloss.Color("#a855f7")
)

var (
	barStyle    = lipgloss.NewStyle().Padding(0, 1).Foreground(colorBright).Background(colorBg)
	helpStyle   = lipgloss.NewStyle().Padding(0, 1).Foreground(colorDimmed)
	gutterStyle = lipgloss.NewStyle().Foreground(colorBorder)
	easingStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(colorDanger)
	sepStyle    = lipgloss.NewStyle().Foreground(colorBorder)
)
