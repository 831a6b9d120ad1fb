package visualizer

import "github.com/charmbracelet/harmonica"

// springField eases a set of values toward per-frame targets, one damped
// spring per value.
type springField struct {
	spring harmonica.Spring
	pos    []float64
	vel    []float64
}

func newSpringField(fps int, n int, frequency, damping float64) springField {
	if fps <= 0 {
		fps = 60
	}
	return springField{
		spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping),
		pos:    make([]float64, n),
		vel:    make([]float64, n),
	}
}

func (s *springField) step(i int, target float64) float64 {
	s.pos[i], s.vel[i] = s.spring.Update(s.pos[i], s.vel[i], target)
	return s.pos[i]
}
