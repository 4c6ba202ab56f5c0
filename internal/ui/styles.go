// Package ui renders CLI output and prompts.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	cAccent = lipgloss.Color("63")
	cPass   = lipgloss.Color("42")
	cWarn   = lipgloss.Color("214")
	cFail   = lipgloss.Color("196")
	cMuted  = lipgloss.Color("244")
	cGold   = lipgloss.Color("220")

	accentStyle = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	passStyle   = lipgloss.NewStyle().Bold(true).Foreground(cPass)
	warnStyle   = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(cFail)
	mutedStyle  = lipgloss.NewStyle().Foreground(cMuted)
	pointsStyle = lipgloss.NewStyle().Bold(true).Foreground(cGold)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(cAccent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func init() {
	if !IsTerminal(os.Stdout) || os.Getenv("NO_COLOR") != "" {
		DisableColor()
	}
}

// DisableColor switches all rendering to plain text.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func RenderAccent(s string) string { return accentStyle.Render(s) }
func RenderPass(s string) string   { return passStyle.Render(s) }
func RenderWarn(s string) string   { return warnStyle.Render(s) }
func RenderFail(s string) string   { return failStyle.Render(s) }
func RenderMuted(s string) string  { return mutedStyle.Render(s) }
func RenderPoints(s string) string { return pointsStyle.Render(s) }
