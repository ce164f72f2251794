package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#5FA8D3") // steel blue
	secondaryColor = lipgloss.Color("#85DCB0") // mint green
	warningColor   = lipgloss.Color("#F6AE2D") // amber
	errorColor     = lipgloss.Color("#E85D75") // soft red
	mutedColor     = lipgloss.Color("#6B7280") // gray
	textColor      = lipgloss.Color("#F3F4F6") // light text
	dimTextColor   = lipgloss.Color("#9CA3AF") // dim text

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(dimTextColor).
			Italic(true)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(secondaryColor).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(mutedColor).
			MarginTop(1).
			MarginBottom(1)

	fileNameStyle = lipgloss.NewStyle().
			Foreground(textColor)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimTextColor)

	countStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	highlightBoxStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(primaryColor).
				Padding(1, 2).
				MarginTop(1)

	statLabelStyle = lipgloss.NewStyle().
			Foreground(dimTextColor).
			Width(20)

	statValueStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Bold(true)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(primaryColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true).
			MarginTop(2)

	iconPaused  = "⏸"
	iconWarning = "⚠"
	iconSuccess = "✓"
	iconError   = "✗"
	iconArrow   = "→"
	iconFolder  = "📁"
)
