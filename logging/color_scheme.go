package logging

import (
	"hash/fnv"
	"net/http"
	"time"
)

// ColorScheme maps semantic elements to colors.
// Implement this interface to fully customize color behavior.
type ColorScheme interface {
	// StatusColor returns the color for an HTTP status code.
	StatusColor(code int) Color
	// MethodColor returns the color for an HTTP method.
	MethodColor(method string) Color
	// DurationColor returns the color based on request duration.
	DurationColor(d time.Duration) Color
	// SourceColor returns the color for a log source (plugin short name).
	SourceColor(source string) Color
}

// DefaultColorScheme provides configurable color mappings with sensible defaults.
// Zero values fall back to sensible defaults.
type DefaultColorScheme struct {
	Status2xx Color
	Status3xx Color
	Status4xx Color
	Status5xx Color

	MethodGET    Color
	MethodPOST   Color
	MethodPUT    Color
	MethodDELETE Color
	MethodPATCH  Color

	DurationFast          Color
	DurationMedium        Color
	DurationSlow          Color
	DurationFastThreshold time.Duration // Default: 100ms
	DurationSlowThreshold time.Duration // Default: 500ms

	// Sources are picked from this palette by a stable hash of the source name.
	Sources []Color
}

// NewDefaultColorScheme returns a scheme with sensible defaults.
func NewDefaultColorScheme() *DefaultColorScheme {
	return &DefaultColorScheme{
		Status2xx: Green,
		Status3xx: Cyan,
		Status4xx: Yellow,
		Status5xx: Red,

		MethodGET:    Blue,
		MethodPOST:   Cyan,
		MethodPUT:    Yellow,
		MethodDELETE: Red,
		MethodPATCH:  Purple,

		DurationFast:          Green,
		DurationMedium:        Yellow,
		DurationSlow:          Red,
		DurationFastThreshold: 100 * time.Millisecond,
		DurationSlowThreshold: 500 * time.Millisecond,

		Sources: []Color{BoldBlue, BoldGreen, BoldPurple, BoldCyan, BoldYellow, BoldWhite},
	}
}

// StatusColor returns the color for an HTTP status code.
func (s *DefaultColorScheme) StatusColor(code int) Color {
	switch {
	case code >= 200 && code < 300:
		return s.withDefault(s.Status2xx, Green)
	case code >= 300 && code < 400:
		return s.withDefault(s.Status3xx, Cyan)
	case code >= 400 && code < 500:
		return s.withDefault(s.Status4xx, Yellow)
	case code >= 500:
		return s.withDefault(s.Status5xx, Red)
	default:
		return White
	}
}

// MethodColor returns the color for an HTTP method.
func (s *DefaultColorScheme) MethodColor(method string) Color {
	switch method {
	case http.MethodGet:
		return s.withDefault(s.MethodGET, Blue)
	case http.MethodPost:
		return s.withDefault(s.MethodPOST, Cyan)
	case http.MethodPut:
		return s.withDefault(s.MethodPUT, Yellow)
	case http.MethodDelete:
		return s.withDefault(s.MethodDELETE, Red)
	case http.MethodPatch:
		return s.withDefault(s.MethodPATCH, Purple)
	default:
		return White
	}
}

// DurationColor returns the color based on request duration.
func (s *DefaultColorScheme) DurationColor(d time.Duration) Color {
	fastThreshold := s.DurationFastThreshold
	if fastThreshold == 0 {
		fastThreshold = 100 * time.Millisecond
	}
	slowThreshold := s.DurationSlowThreshold
	if slowThreshold == 0 {
		slowThreshold = 500 * time.Millisecond
	}

	switch {
	case d < fastThreshold:
		return s.withDefault(s.DurationFast, Green)
	case d < slowThreshold:
		return s.withDefault(s.DurationMedium, Yellow)
	default:
		return s.withDefault(s.DurationSlow, Red)
	}
}

// SourceColor returns the same color for the same source on every call.
func (s *DefaultColorScheme) SourceColor(source string) Color {
	if len(s.Sources) == 0 {
		return White
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(source))
	return s.Sources[h.Sum32()%uint32(len(s.Sources))]
}

// withDefault returns the value if not empty, otherwise returns the default.
func (s *DefaultColorScheme) withDefault(value, defaultValue Color) Color {
	if value == "" {
		return defaultValue
	}
	return value
}

// Ensure DefaultColorScheme implements ColorScheme.
var _ ColorScheme = (*DefaultColorScheme)(nil)
