package logging

import "fmt"

// Color represents a terminal ANSI color escape code.
type Color = string

// Reset code
const (
	Reset Color = "\033[0m"
)

// Foreground colors
const (
	Red    Color = "\033[31m"
	Green  Color = "\033[32m"
	Yellow Color = "\033[33m"
	Blue   Color = "\033[34m"
	Purple Color = "\033[35m"
	Cyan   Color = "\033[36m"
	White  Color = "\033[37m"
	Gray   Color = "\033[90m"
)

// Bold foreground colors
const (
	BoldRed    Color = "\033[1;31m"
	BoldGreen  Color = "\033[1;32m"
	BoldYellow Color = "\033[1;33m"
	BoldBlue   Color = "\033[1;34m"
	BoldPurple Color = "\033[1;35m"
	BoldCyan   Color = "\033[1;36m"
	BoldWhite  Color = "\033[1;37m"
)

// Background colors
const (
	BgRed Color = "\033[41m"
)

// Colorize wraps text with the given color and reset code.
func Colorize(color Color, text string) string {
	if color == "" {
		return text
	}
	return color + text + Reset
}

// Colorizef wraps formatted text with the given color.
func Colorizef(color Color, format string, args ...any) string {
	return Colorize(color, fmt.Sprintf(format, args...))
}

// Combine combines multiple colors/styles into one.
// Example: Combine(BoldWhite, BgRed) for bold white text on red background.
func Combine(colors ...Color) Color {
	var result Color
	for _, c := range colors {
		result += c
	}
	return result
}

// Pad returns text padded to specified width with color applied.
func Pad(color Color, text string, width int) string {
	return Colorizef(color, "%-*s", width, text)
}
