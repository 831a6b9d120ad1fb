package visualizer

import (
	"fmt"
	"strings"

	"github.com/olivier-w/djstage/internal/stage"
)

var meterLabels = [4]string{"BASS", "MID ", "TREB", "VOL "}

// Meter renders the four signal channels as horizontal meters with peak hold.
type Meter struct {
	levels [4]float64
	peaks  [4]float64
	output string
}

// NewMeter creates a new meter visualizer.
func NewMeter() *Meter {
	return &Meter{}
}

func (m *Meter) Name() string { return "meters" }

func (m *Meter) Update(f stage.Frame, width, height int) {
	sig := f.Signal
	targets := [4]float64{sig.Bass, sig.Mid, sig.Treble, sig.Volume}

	const (
		attack    = 0.6
		release   = 0.15
		peakDecay = 0.02
	)
	for i, target := range targets {
		if target > m.levels[i] {
			m.levels[i] = m.levels[i]*(1-attack) + target*attack
		} else {
			m.levels[i] = m.levels[i]*(1-release) + target*release
		}
		if m.levels[i] > m.peaks[i] {
			m.peaks[i] = m.levels[i]
		} else {
			m.peaks[i] = max(m.peaks[i]-peakDecay, 0)
		}
	}

	barWidth := max(width-14, 10)
	spacer := height >= 8

	var sb strings.Builder
	for i := range m.levels {
		if i > 0 {
			sb.WriteString("\n")
			if spacer {
				sb.WriteString("\n")
			}
		}
		fmt.Fprintf(&sb, " %s %s %3d", meterLabels[i], renderMeterBar(m.levels[i], m.peaks[i], barWidth), int(targets[i]*100))
	}
	m.output = sb.String()
}

func renderMeterBar(level, peak float64, width int) string {
	filled := int(clamp01(level) * float64(width))
	peakPos := min(int(clamp01(peak)*float64(width)), width-1)

	var sb strings.Builder
	for i := range width {
		switch {
		case i < filled:
			sb.WriteString(paint(levelColor(float64(i)/float64(width)), "█"))
		case i == peakPos && peakPos > 0:
			sb.WriteString(paint(peakWhite, "│"))
		default:
			sb.WriteString(paint(dimGreen, "─"))
		}
	}
	return sb.String()
}

func (m *Meter) View() string {
	return m.output
}
