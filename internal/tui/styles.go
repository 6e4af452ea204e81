package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/blastrain/internal/model"
)

var (
	accentColor = lipgloss.Color("#C89A3A")
	mutedColor  = lipgloss.Color("#6E6E6E")
	borderColor = lipgloss.Color("#4A4A4A")

	brandStyle  = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	footerStyle = lipgloss.NewStyle().Foreground(mutedColor)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	textStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FA8C16")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)

	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(accentColor)
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(borderColor)

	cardStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(borderColor)
	selectedCardStyle = cardStyle.
				BorderForeground(accentColor)
	panelStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(accentColor)

	toastInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#1890FF"))
	toastErrorStyle = toastInfoStyle.
			BorderForeground(lipgloss.Color("#FF4D4F"))
)

func statusStyle(status model.DetonatorStatus) lipgloss.Style {
	switch status {
	case model.StatusArmed:
		return warnStyle
	case model.StatusFired:
		return okStyle
	case model.StatusError:
		return errorStyle.Bold(true)
	default:
		return mutedStyle
	}
}

func statusLabel(status model.DetonatorStatus) string {
	switch status {
	case model.StatusIdle:
		return "Idle"
	case model.StatusArmed:
		return "Armed"
	case model.StatusFired:
		return "Fired"
	case model.StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}
