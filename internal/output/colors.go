package output

import (
	"github.com/fatih/color"
)

// ColorScheme defines the colors used for different elements in the output
type ColorScheme struct {
	Title     *color.Color
	Rule      *color.Color
	Label     *color.Color
	Value     *color.Color
	Rate      *color.Color
	Latency   *color.Color
	Success   *color.Color
	Warn      *color.Color
	Error     *color.Color
	Dim       *color.Color
	Highlight *color.Color
}

// DefaultColorScheme returns the default color scheme
func DefaultColorScheme() *ColorScheme {
	s := &ColorScheme{
		Title:     color.New(color.Bold),
		Rule:      color.New(color.FgCyan),
		Label:     color.New(color.FgWhite),
		Value:     color.New(color.FgCyan),
		Rate:      color.New(color.FgGreen),
		Latency:   color.New(color.FgBlue),
		Success:   color.New(color.FgGreen, color.Bold),
		Warn:      color.New(color.FgYellow, color.Bold),
		Error:     color.New(color.FgRed, color.Bold),
		Dim:       color.New(color.Faint),
		Highlight: color.New(color.FgMagenta, color.Bold),
	}
	s.each(func(c *color.Color) { c.EnableColor() })
	return s
}

// NoColorScheme returns a color scheme with all colors disabled
func NoColorScheme() *ColorScheme {
	s := DefaultColorScheme()
	s.each(func(c *color.Color) { c.DisableColor() })
	return s
}

func (s *ColorScheme) each(fn func(*color.Color)) {
	for _, c := range []*color.Color{
		s.Title, s.Rule, s.Label, s.Value, s.Rate, s.Latency,
		s.Success, s.Warn, s.Error, s.Dim, s.Highlight,
	} {
		fn(c)
	}
}

// StatusColor picks a color for an HTTP status class such as "2xx".
func (s *ColorScheme) StatusColor(class string) *color.Color {
	switch class {
	case "2xx":
		return s.Success
	case "4xx":
		return s.Warn
	default:
		return s.Error
	}
}
