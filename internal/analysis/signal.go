// Package analysis turns spectrum snapshots, or a synthetic stand-in, into
// the four control signals that drive the stage.
package analysis

import "fmt"

// Signal is one frame of perceptual band intensities, each in [0,1].
type Signal struct {
	Bass   float64
	Mid    float64
	Treble float64
	Volume float64
}

// Clamp returns s with every channel limited to [0,1].
func (s Signal) Clamp() Signal {
	return Signal{
		Bass:   clamp01(s.Bass),
		Mid:    clamp01(s.Mid),
		Treble: clamp01(s.Treble),
		Volume: clamp01(s.Volume),
	}
}

func (s Signal) String() string {
	return fmt.Sprintf("bass=%.2f mid=%.2f treble=%.2f vol=%.2f", s.Bass, s.Mid, s.Treble, s.Volume)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
