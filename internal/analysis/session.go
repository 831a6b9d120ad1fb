package analysis

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"sync"

	"github.com/olivier-w/djstage/internal/audio"
)

// ErrTapFailed is returned when a media handle cannot be routed into the
// analysis graph. Callers are expected to fall back to simulation.
var ErrTapFailed = errors.New("analysis: tap failed")

// ConnState is the tap state of a Session.
type ConnState uint8

const (
	Disconnected ConnState = iota
	Connected
	Failed
)

func (c ConnState) String() string {
	switch c {
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return "disconnected"
	}
}

// MediaHandle is a playable element handed over by the playback subsystem.
type MediaHandle interface {
	Name() string
}

// Tappable is a MediaHandle whose decoded PCM can feed the analyser.
// Handles that are not Tappable (opaque external players) can only be
// visualized in simulation mode.
type Tappable interface {
	MediaHandle
	AttachTap(sink audio.SampleSink) error
	DetachTap(sink audio.SampleSink)
}

// Status is a snapshot of a Session.
type Status struct {
	Context    audio.State
	Connection ConnState
	Mode       Mode
	Simulation bool   // explicit override
	Handle     string // name of the tapped handle
}

// Options configures a Session.
type Options struct {
	// Rand drives simulation jitter; nil seeds from the wall clock.
	Rand   *rand.Rand
	Logger *log.Logger
}

// Session owns one analysis connection: the audio context, the tap on the
// current media handle and the choice between real and simulated signal.
type Session struct {
	mu          sync.Mutex
	ctx         *audio.Context
	sampler     *Sampler
	sim         *Simulator
	real        *RealSource
	simulated   *SimulatedSource
	handle      Tappable
	sink        *audio.Analyser
	conn        ConnState
	simulation  bool
	initialized bool
	closed      bool
	logger      *log.Logger

	// srcMu serializes frame reads against Initialize rebinding the sampler.
	srcMu sync.Mutex
}

// NewSession creates a session on ctx. The session takes ownership of ctx
// and closes it in Close.
func NewSession(ctx *audio.Context, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	s := &Session{
		ctx:     ctx,
		sampler: NewSampler(audio.FFTSize / 2),
		sim:     NewSimulator(opts.Rand),
		logger:  opts.Logger,
	}
	s.real = &RealSource{
		mu:      &s.srcMu,
		sampler: s.sampler,
		running: func() bool { return ctx.State() == audio.StateRunning },
	}
	s.simulated = &SimulatedSource{mu: &s.srcMu, sim: s.sim}
	return s
}

// Initialize builds the audio graph and binds the sampler to the analyser.
// Repeated calls are no-ops.
func (s *Session) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	if err := s.ctx.Initialize(); err != nil {
		return err
	}
	s.srcMu.Lock()
	s.sampler.Bind(s.ctx.Analyser())
	s.sim.Reset()
	s.srcMu.Unlock()
	s.initialized = true
	return nil
}

// Resume starts the audio context. It is safe before Initialize, safe to
// repeat, and safe to race with ConnectSource. On failure the context stays
// suspended and whatever mode is active keeps driving the stage.
func (s *Session) Resume() error {
	return s.ctx.Resume()
}

// ConnectSource taps h. While a tap exists the call is a no-op, even for a
// different handle; use SwitchSource to replace it.
func (s *Session) ConnectSource(h MediaHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked(h)
}

func (s *Session) connectLocked(h MediaHandle) error {
	if s.closed {
		return fmt.Errorf("%w: session closed", ErrTapFailed)
	}
	if h == nil {
		return fmt.Errorf("%w: no media handle", ErrTapFailed)
	}
	if s.conn == Connected {
		s.logger.Printf("analysis: %s already tapped, ignoring %s", s.handle.Name(), h.Name())
		return nil
	}

	analyser := s.ctx.Analyser()
	if analyser == nil {
		s.conn = Failed
		return fmt.Errorf("%w: %w", ErrTapFailed, audio.ErrNotInitialized)
	}

	t, ok := h.(Tappable)
	if !ok {
		s.conn = Failed
		s.logger.Printf("analysis: %s has no pcm access", h.Name())
		return fmt.Errorf("%w: %s is not tappable", ErrTapFailed, h.Name())
	}
	if err := t.AttachTap(analyser); err != nil {
		s.conn = Failed
		s.logger.Printf("analysis: tapping %s failed: %v", h.Name(), err)
		return fmt.Errorf("%w: %w", ErrTapFailed, err)
	}

	s.handle = t
	s.sink = analyser
	s.conn = Connected
	s.simulation = false
	s.logger.Printf("analysis: source connected: %s", h.Name())
	return nil
}

// DisconnectSource releases the current tap and clears the analyser history.
func (s *Session) DisconnectSource() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnectLocked()
}

func (s *Session) disconnectLocked() {
	if s.conn == Connected {
		s.handle.DetachTap(s.sink)
		s.sink.Reset()
		s.logger.Printf("analysis: source disconnected: %s", s.handle.Name())
	}
	s.handle = nil
	s.sink = nil
	s.conn = Disconnected
}

// SwitchSource disconnects the current tap, if any, then connects h.
func (s *Session) SwitchSource(h MediaHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnectLocked()
	return s.connectLocked(h)
}

// SetSimulationMode forces (or releases) the simulated signal regardless of
// tap state. The change is seen by the next Source call.
func (s *Session) SetSimulationMode(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.simulation != enabled {
		s.logger.Printf("analysis: simulation mode %v", enabled)
	}
	s.simulation = enabled
}

// Mode reports which variant Source currently returns.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modeLocked()
}

func (s *Session) modeLocked() Mode {
	if s.simulation || s.conn != Connected {
		return ModeSimulated
	}
	return ModeReal
}

// Source returns the signal source a consumer should read this frame.
func (s *Session) Source() Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.modeLocked() == ModeReal {
		return s.real
	}
	return s.simulated
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Context:    s.ctx.State(),
		Connection: s.conn,
		Mode:       s.modeLocked(),
		Simulation: s.simulation,
	}
	if s.handle != nil {
		st.Handle = s.handle.Name()
	}
	return st
}

// Close releases the tap and the audio context. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.disconnectLocked()
	s.closed = true
	s.mu.Unlock()

	s.srcMu.Lock()
	s.sampler.Bind(nil)
	s.srcMu.Unlock()
	return s.ctx.Close()
}
