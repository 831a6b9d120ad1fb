package audio

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
)

// State is the lifecycle state of a Context.
type State uint8

const (
	StateUninitialized State = iota
	StateSuspended
	StateRunning
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateSuspended:
		return "suspended"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	default:
		return "uninitialized"
	}
}

var (
	// ErrResumeFailed is returned when the output refuses to start. The
	// context stays suspended.
	ErrResumeFailed = errors.New("audio: resume failed")
	// ErrClosed is returned by operations on a closed context.
	ErrClosed = errors.New("audio: context closed")
	// ErrNotInitialized is returned when the graph has not been built yet.
	ErrNotInitialized = errors.New("audio: context not initialized")
)

// Format describes the PCM produced by decoders: signed 16-bit little-endian,
// interleaved.
type Format struct {
	SampleRate int
	Channels   int
}

// BytesPerSec returns the PCM byte rate for f.
func (f Format) BytesPerSec() int {
	return f.SampleRate * f.Channels * 2
}

// Voice plays one PCM stream on an Output.
type Voice interface {
	Play()
	Pause()
	IsPlaying() bool
	SetVolume(v float64)
	Close() error
}

// Output is the device side of the graph.
type Output interface {
	NewVoice(r io.Reader) Voice
	Suspend() error
	Resume() error
	Close() error
}

// OpenFunc opens an Output for the given format.
type OpenFunc func(Format) (Output, error)

// Options configures a Context.
type Options struct {
	Format Format
	// Open defaults to the oto-backed device output.
	Open   OpenFunc
	Logger *log.Logger
}

// Context owns the audio graph: the device output and the analyser node.
// It is created explicitly and handed to whoever needs it.
type Context struct {
	mu       sync.Mutex
	format   Format
	open     OpenFunc
	out      Output
	analyser *Analyser
	state    State
	logger   *log.Logger
}

// NewContext creates an uninitialized context.
func NewContext(opts Options) *Context {
	if opts.Format.SampleRate <= 0 {
		opts.Format.SampleRate = 44100
	}
	if opts.Format.Channels <= 0 {
		opts.Format.Channels = 2
	}
	if opts.Open == nil {
		opts.Open = OpenDevice
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	return &Context{
		format: opts.Format,
		open:   opts.Open,
		logger: opts.Logger,
	}
}

// Initialize opens the output and builds the analyser. The output starts
// suspended; Resume must be called before audio flows. Calling Initialize
// again is a no-op.
func (c *Context) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateClosed:
		return ErrClosed
	case StateUninitialized:
	default:
		return nil
	}

	out, err := c.open(c.format)
	if err != nil {
		return fmt.Errorf("opening audio output: %w", err)
	}
	if err := out.Suspend(); err != nil {
		c.logger.Printf("audio: initial suspend failed: %v", err)
	}
	c.out = out
	c.analyser = NewAnalyser(c.format.SampleRate)
	c.state = StateSuspended
	c.logger.Printf("audio: context initialized (%d Hz, %d ch)", c.format.SampleRate, c.format.Channels)
	return nil
}

// Resume starts the output. It is a no-op before Initialize, after Close and
// while already running.
func (c *Context) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateSuspended {
		return nil
	}
	if err := c.out.Resume(); err != nil {
		c.logger.Printf("audio: resume failed: %v", err)
		return fmt.Errorf("%w: %v", ErrResumeFailed, err)
	}
	c.state = StateRunning
	c.logger.Printf("audio: context running")
	return nil
}

// Suspend pauses the output. No-op unless running.
func (c *Context) Suspend() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		return nil
	}
	if err := c.out.Suspend(); err != nil {
		return fmt.Errorf("suspending audio output: %w", err)
	}
	c.state = StateSuspended
	return nil
}

// State returns the current lifecycle state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Format returns the PCM format of the graph.
func (c *Context) Format() Format {
	return c.format
}

// Analyser returns the analyser node, or nil before Initialize.
func (c *Context) Analyser() *Analyser {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.analyser
}

// NewVoice creates a voice on the output.
func (c *Context) NewVoice(r io.Reader) (Voice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateUninitialized:
		return nil, ErrNotInitialized
	case StateClosed:
		return nil, ErrClosed
	}
	return c.out.NewVoice(r), nil
}

// Close releases the output. Safe to call more than once.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return nil
	}
	prev := c.state
	c.state = StateClosed
	if prev == StateUninitialized {
		return nil
	}
	c.analyser.Reset()
	if err := c.out.Close(); err != nil {
		return fmt.Errorf("closing audio output: %w", err)
	}
	c.logger.Printf("audio: context closed")
	return nil
}
