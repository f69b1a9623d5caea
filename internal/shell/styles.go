package shell

import "github.com/charmbracelet/lipgloss"

var (
	colorBorder       = lipgloss.AdaptiveColor{Light: "#bdbdbd", Dark: "#616161"}
	colorBorderActive = lipgloss.AdaptiveColor{Light: "#1565c0", Dark: "#42a5f5"}
	colorAccent       = lipgloss.AdaptiveColor{Light: "#6a1b9a", Dark: "#ce93d8"}
	colorMuted        = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9e9e9e"}
	colorButtonFg     = lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#1e1e1e"}
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder)

	panelFocusedStyle = panelStyle.BorderForeground(colorBorderActive)

	buttonStyle = lipgloss.NewStyle().
			Padding(0, 2).
			MarginRight(1).
			Border(lipgloss.NormalBorder()).
			BorderForeground(colorBorder)

	buttonFocusedStyle = buttonStyle.
				Bold(true).
				Foreground(colorButtonFg).
				Background(colorBorderActive).
				BorderForeground(colorBorderActive)

	cursorStyle = lipgloss.NewStyle().Foreground(colorBorderActive).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
)
