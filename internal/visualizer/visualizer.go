// Package visualizer draws stage frames as terminal art.
package visualizer

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/olivier-w/djstage/internal/stage"
)

// Visualizer renders stage frames as ASCII art.
type Visualizer interface {
	Name() string
	Update(f stage.Frame, width, height int)
	View() string
}

// Modes returns all available visualizers. fps tunes the spring smoothing
// to the frame rate.
func Modes(fps int) []Visualizer {
	return []Visualizer{
		NewAvatar(fps),
		NewBars(fps),
		NewMeter(),
	}
}

// The stage palette: phosphor green on black, hot on peaks.
var (
	dimGreen  = lipgloss.Color("#1f6f3a")
	green     = lipgloss.Color("#3ce074")
	lime      = lipgloss.Color("#b4ff6e")
	amber     = lipgloss.Color("#f0c648")
	hot       = lipgloss.Color("#f26056")
	peakWhite = lipgloss.Color("#fffcd2")
)

// levelColor picks a palette color for a 0..1 level.
func levelColor(level float64) lipgloss.Color {
	switch {
	case level < 0.35:
		return dimGreen
	case level < 0.6:
		return green
	case level < 0.8:
		return lime
	case level < 0.92:
		return amber
	default:
		return hot
	}
}

func paint(c lipgloss.Color, s string) string {
	return lipgloss.NewStyle().Foreground(c).Render(s)
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
