package term

import "charm.land/lipgloss/v2"

var (
	Green   = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(2))
	Red     = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(1))
	Yellow  = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(3))
	Blue    = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(4))
	Cyan    = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(6))
	Magenta = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(5))
	Dim     = lipgloss.NewStyle().Faint(true)
	Bold    = lipgloss.NewStyle().Bold(true)
	RedBold = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(1)).Bold(true)

	CheckMark = Green.Render("✓")
	CrossMark = Red.Render("✗")
	WarnMark  = Yellow.Render("⚠")
	InfoMark  = Cyan.Render("ℹ")
)

// StyleForStatus picks a style for an HTTP status code: 2xx green,
// 3xx cyan, 4xx yellow, 5xx red.
func StyleForStatus(code int) lipgloss.Style {
	switch {
	case code >= 500:
		return RedBold
	case code >= 400:
		return Yellow
	case code >= 300:
		return Cyan
	default:
		return Green
	}
}

// StyleForLevel picks a style for a log level token (ERROR, WARN, ...).
func StyleForLevel(level string) lipgloss.Style {
	switch level {
	case "emerg", "alert", "crit", "error", "ERROR", "CRITICAL":
		return Red
	case "warn", "WARNING":
		return Yellow
	case "notice", "info", "INFO":
		return Cyan
	default:
		return Dim
	}
}
