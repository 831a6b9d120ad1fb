package visualizer

import (
	"math"
	"strings"

	"github.com/olivier-w/djstage/internal/stage"
)

var barChars = []rune(" ▁▂▃▄▅▆▇█")

// Bars renders the stage floor: one vertical bar per stage bar, eased with
// springs so the random texture reads as motion rather than flicker.
type Bars struct {
	springs springField
	output  string
}

// NewBars creates a new bars visualizer.
func NewBars(fps int) *Bars {
	return &Bars{springs: newSpringField(fps, stage.BarCount, 8, 0.7)}
}

func (b *Bars) Name() string { return "bars" }

func (b *Bars) Update(f stage.Frame, width, height int) {
	var levels [stage.BarCount]float64
	for i, h := range f.Visuals.Bars {
		levels[i] = clamp01(b.springs.step(i, h/100))
	}

	height = max(height, 1)
	colWidth := max((width-2)/stage.BarCount, 1)
	gap := 1
	if colWidth <= 1 {
		gap = 0
	}

	rows := make([]string, height)
	for row := range height {
		var line strings.Builder
		rowFromBottom := float64(height - 1 - row)
		for i, level := range levels {
			if i > 0 && gap > 0 {
				line.WriteByte(' ')
			}
			scaled := level * float64(height)
			charIdx := 0
			switch {
			case scaled > rowFromBottom+1:
				charIdx = len(barChars) - 1
			case scaled > rowFromBottom:
				charIdx = int(math.Round((scaled - rowFromBottom) * float64(len(barChars)-1)))
			}
			cell := strings.Repeat(string(barChars[charIdx]), max(colWidth-gap, 1))
			if charIdx > 0 {
				cell = paint(levelColor((rowFromBottom+1)/float64(height)), cell)
			}
			line.WriteString(cell)
		}
		rows[row] = line.String()
	}
	b.output = strings.Join(rows, "\n")
}

func (b *Bars) View() string {
	return b.output
}
