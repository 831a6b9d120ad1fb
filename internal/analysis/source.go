package analysis

import (
	"sync"
	"time"
)

// Mode selects where the stage reads its signal from.
type Mode uint8

const (
	ModeSimulated Mode = iota
	ModeReal
)

func (m Mode) String() string {
	if m == ModeReal {
		return "real"
	}
	return "simulated"
}

// Source yields one Signal per frame.
type Source interface {
	Mode() Mode
	Next(dt time.Duration) Signal
}

// RealSource samples the analyser and reduces the spectrum to bands. While
// the audio context is not running it yields a zero signal.
type RealSource struct {
	mu      *sync.Mutex
	sampler *Sampler
	running func() bool
}

func (r *RealSource) Mode() Mode { return ModeReal }

func (r *RealSource) Next(time.Duration) Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running != nil && !r.running() {
		return Signal{}
	}
	return ExtractBands(r.sampler.Sample())
}

// SimulatedSource reads from the Simulator.
type SimulatedSource struct {
	mu  *sync.Mutex
	sim *Simulator
}

func (s *SimulatedSource) Mode() Mode { return ModeSimulated }

func (s *SimulatedSource) Next(dt time.Duration) Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Tick(dt)
}
