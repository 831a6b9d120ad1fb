package analysis

import (
	"math"
	"math/rand"
	"time"
)

// SimStep is the virtual time added to the clock on every tick.
const SimStep = 0.1

// Clock is the simulator's monotonic virtual time.
type Clock struct {
	t float64
}

// Advance moves the clock forward by one step and returns the new time.
func (c *Clock) Advance() float64 {
	c.t += SimStep
	return c.t
}

// Now returns the current virtual time.
func (c *Clock) Now() float64 { return c.t }

// Reset rewinds the clock to zero.
func (c *Clock) Reset() { c.t = 0 }

// Simulator produces a plausible Signal without audio input: a periodic base
// per channel plus bounded jitter, with distinct periods so channels
// decorrelate.
type Simulator struct {
	clock Clock
	rng   *rand.Rand
}

// NewSimulator creates a simulator. A nil rng seeds one from the wall clock.
func NewSimulator(rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{rng: rng}
}

// Tick advances the clock by the fixed step and returns the next signal.
// dt is ignored so that output depends only on the tick count and the rng.
func (s *Simulator) Tick(dt time.Duration) Signal {
	t := s.clock.Advance()

	beat := math.Abs(math.Sin(2 * t))
	sig := Signal{
		Bass:   0.8*beat + s.rng.Float64()*0.2,
		Mid:    0.6*math.Abs(math.Sin(1.5*t)) + s.rng.Float64()*0.3,
		Treble: 0.5*math.Abs(math.Cos(3*t)) + s.rng.Float64()*0.4,
		Volume: 0.5 + s.rng.Float64()*0.3,
	}
	return sig.Clamp()
}

// Time returns the virtual time of the last tick.
func (s *Simulator) Time() float64 { return s.clock.Now() }

// Reset rewinds the clock.
func (s *Simulator) Reset() { s.clock.Reset() }
