package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	colorType   = lipgloss.Color("#06b6d4") // cyan-500
	colorParam  = lipgloss.Color("#9ca3af") // gray-400
	colorDim    = lipgloss.Color("#6b7280") // gray-500
	colorAccent = lipgloss.Color("#3b82f6") // blue-500
	colorError  = lipgloss.Color("#ef4444") // red-500
)

// Styles holds the lipgloss styles of the terminal output.
type Styles struct {
	TypeHint  lipgloss.Style
	ParamHint lipgloss.Style
	Marker    lipgloss.Style
	Path      lipgloss.Style
	Error     lipgloss.Style
	Help      lipgloss.Style

	// Open and Close delimit an inlined hint.
	Open  string
	Close string
}

// DefaultStyles returns colored styles.
func DefaultStyles() *Styles {
	return &Styles{
		TypeHint:  lipgloss.NewStyle().Foreground(colorType).Italic(true),
		ParamHint: lipgloss.NewStyle().Foreground(colorParam).Italic(true),
		Marker:    lipgloss.NewStyle().Foreground(colorDim),
		Path:      lipgloss.NewStyle().Foreground(colorAccent).Bold(true),
		Error:     lipgloss.NewStyle().Foreground(colorError).Bold(true),
		Help:      lipgloss.NewStyle().Foreground(colorDim),
		Open:      "<# ",
		Close:     " #>",
	}
}

// PlainStyles returns styles that render text unchanged.
func PlainStyles() *Styles {
	s := DefaultStyles()
	plain := lipgloss.NewStyle()

	s.TypeHint, s.ParamHint, s.Marker, s.Path, s.Error, s.Help = plain, plain, plain, plain, plain, plain

	return s
}

// colorEnabled resolves the --color flag: "always", "never" or "auto",
// which colors only when stdout is a terminal.
func colorEnabled(mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}
}
