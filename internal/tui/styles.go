package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/hmans/speako/internal/ui"
)

var (
	listTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(ui.ColorPrimary).
			Padding(0, 1).
			Bold(true)

	helpKeyStyle = lipgloss.NewStyle().Foreground(ui.ColorPrimary).Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(ui.ColorMuted)
)
