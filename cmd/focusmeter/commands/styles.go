package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	primaryColor = lipgloss.Color("#2E7D32") // Focus green
	warnColor    = lipgloss.Color("#F9A825") // Amber
	alertColor   = lipgloss.Color("#C62828") // Red
	mutedColor   = lipgloss.Color("#888888") // Gray
	textColor    = lipgloss.Color("#FFFFFF") // White
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(alertColor)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(mutedColor)

	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)
)

// scoreStyle colors a score by how disruptive the window was.
func scoreStyle(score float64) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	switch {
	case score >= 80:
		return s.Foreground(primaryColor)
	case score >= 50:
		return s.Foreground(warnColor)
	default:
		return s.Foreground(alertColor)
	}
}

// printKV prints an aligned key-value pair
func printKV(w io.Writer, key string, value any) {
	fmt.Fprintf(w, "  %s %s\n", KeyStyle.Render(fmt.Sprintf("%-24s", key+":")), ValueStyle.Render(fmt.Sprint(value)))
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}
