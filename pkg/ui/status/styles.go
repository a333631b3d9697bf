package status

import "github.com/charmbracelet/lipgloss"

// theme groups reusable styles for the status view.
type theme struct {
	header     lipgloss.Style
	headerMeta lipgloss.Style
	divider    lipgloss.Style
	label      lipgloss.Style
	value      lipgloss.Style
	panel      lipgloss.Style
	ready      lipgloss.Style
	notReady   lipgloss.Style
	errorBox   lipgloss.Style
	barFull    lipgloss.Style
	barEmpty   lipgloss.Style
	hint       lipgloss.Style
}

func defaultTheme() theme {
	return theme{
		header: lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("88")),
		headerMeta: lipgloss.NewStyle().
			Foreground(lipgloss.Color("223")),
		divider: lipgloss.NewStyle().
			Foreground(lipgloss.Color("130")),
		label: lipgloss.NewStyle().
			Foreground(lipgloss.Color("180")).
			Width(16),
		value: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true),
		panel: lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("130")).
			Background(lipgloss.Color("233")).
			Padding(0, 1),
		ready: lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")).
			Bold(true),
		notReady: lipgloss.NewStyle().
			Foreground(lipgloss.Color("222")).
			Bold(true),
		errorBox: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("203")).
			Foreground(lipgloss.Color("203")).
			Background(lipgloss.Color("52")).
			Padding(0, 1),
		barFull: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),
		barEmpty: lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")),
		hint: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),
	}
}
