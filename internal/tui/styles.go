package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles contains lipgloss styles for the TUI
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Stage    lipgloss.Style
	Selected lipgloss.Style
	Done     lipgloss.Style
	Active   lipgloss.Style
	Stale    lipgloss.Style
	Locked   lipgloss.Style
	Error    lipgloss.Style
	Muted    lipgloss.Style
	Border   lipgloss.Style
	Help     lipgloss.Style
}

// DefaultStyles returns the default lipgloss styles
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")), // Purple
		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")), // Gray
		Stage: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")), // Cyan
		Done: lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")), // Green
		Active: lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")), // Yellow
		Stale: lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")), // Orange
		Locked: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")), // Dark gray
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")), // Red
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
	}
}
