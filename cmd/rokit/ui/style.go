package ui

import "github.com/fatih/color"

// Style holds the common color/glyph set CLI output draws from.
type Style struct {
	SuccessMark string
	FailMark    string
	WarnMark    string
	Header      *color.Color
	Path        *color.Color
	Success     *color.Color
	Fail        *color.Color
	Step        *color.Color
}

// NewStyle returns the standard rokit color scheme.
func NewStyle() *Style {
	return &Style{
		SuccessMark: color.New(color.FgGreen).Sprint("✓"),
		FailMark:    color.New(color.FgRed).Sprint("✗"),
		WarnMark:    color.New(color.FgYellow).Sprint("!"),
		Header:      color.New(color.FgCyan, color.Bold),
		Path:        color.New(color.FgCyan),
		Success:     color.New(color.FgGreen, color.Bold),
		Fail:        color.New(color.FgRed, color.Bold),
		Step:        color.New(color.FgYellow),
	}
}
