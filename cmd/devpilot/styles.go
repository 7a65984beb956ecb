package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent  = lipgloss.Color("#20B9B4")
	colorSuccess = lipgloss.Color("#2CD7C7")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#5C7A84")
)

//nolint:gochecknoglobals // terminal styles
var styles = struct {
	Title   lipgloss.Style
	Prompt  lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	Prompt:  lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	Muted:   lipgloss.NewStyle().Foreground(colorMuted),
	Success: lipgloss.NewStyle().Foreground(colorSuccess),
	Warning: lipgloss.NewStyle().Foreground(colorWarning),
	Error:   lipgloss.NewStyle().Foreground(colorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Padding(0, 1),
}

// renderResponse colors the first line of a response by its status marker.
func renderResponse(text string) string {
	first, rest, hasRest := strings.Cut(text, "\n")
	var style lipgloss.Style
	switch {
	case strings.HasPrefix(first, "❌"):
		style = styles.Error
	case strings.HasPrefix(first, "✅"):
		style = styles.Success
	case strings.HasPrefix(first, "🛑"), strings.HasPrefix(first, "⚠️"):
		style = styles.Warning
	case strings.HasPrefix(first, "## "):
		style = styles.Title
	default:
		return text
	}
	if !hasRest {
		return style.Render(first)
	}
	return style.Render(first) + "\n" + rest
}
