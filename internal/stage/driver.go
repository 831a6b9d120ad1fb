package stage

import (
	"io"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/olivier-w/djstage/internal/analysis"
)

// SourceProvider hands out the signal source for the current mode.
type SourceProvider interface {
	Source() analysis.Source
}

// Frame is what the driver publishes every animation frame.
type Frame struct {
	Seq     uint64
	Time    time.Time
	Mode    analysis.Mode
	Signal  analysis.Signal
	Visuals Visuals
}

// Options configures a Driver.
type Options struct {
	// Rand adds texture to bar heights; nil seeds from the wall clock.
	Rand   *rand.Rand
	Logger *log.Logger
}

// Driver runs the frame chain: each frame reads the current source, maps the
// signal to visuals, publishes the result and requests the next frame. The
// source is resolved at the start of every frame, so mode switches land on
// frame boundaries.
type Driver struct {
	sched    Scheduler
	provider SourceProvider
	publish  func(Frame)
	rng      *rand.Rand
	logger   *log.Logger

	mu       sync.Mutex
	running  bool
	pending  FrameID
	hasFrame bool
	gen      uint64 // identifies the callback allowed to run next
	seq      uint64
	last     time.Time
	lastMode analysis.Mode
}

// NewDriver creates a stopped driver. publish is called from the frame
// callback and must not block.
func NewDriver(sched Scheduler, provider SourceProvider, publish func(Frame), opts Options) *Driver {
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	return &Driver{
		sched:    sched,
		provider: provider,
		publish:  publish,
		rng:      opts.Rand,
		logger:   opts.Logger,
	}
}

// Start schedules the first frame. Starting a running driver is a no-op.
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.running = true
	d.last = time.Time{}
	d.requestLocked()
}

func (d *Driver) requestLocked() {
	d.gen++
	gen := d.gen
	d.pending = d.sched.RequestFrame(func(now time.Time) { d.frame(gen, now) })
	d.hasFrame = true
}

// Stop cancels the pending frame. No frame callback runs after Stop returns.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}
	d.running = false
	if d.hasFrame {
		d.sched.CancelFrame(d.pending)
		d.hasFrame = false
	}
}

// Running reports whether the frame chain is active.
func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Frames returns the number of frames published so far.
func (d *Driver) Frames() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq
}

func (d *Driver) frame(gen uint64, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// A callback that escaped cancellation must not fork a second chain
	// after Stop and Start.
	if gen != d.gen || !d.running {
		return
	}
	d.hasFrame = false

	var dt time.Duration
	if !d.last.IsZero() {
		dt = now.Sub(d.last)
	}
	d.last = now

	src := d.provider.Source()
	mode := src.Mode()
	if d.seq > 0 && mode != d.lastMode {
		d.logger.Printf("stage: source switched to %s at frame %d", mode, d.seq)
	}
	d.lastMode = mode
	sig := src.Next(dt)

	d.seq++
	f := Frame{
		Seq:     d.seq,
		Time:    now,
		Mode:    mode,
		Signal:  sig,
		Visuals: MapSignal(sig, now, d.rng),
	}
	if d.publish != nil {
		d.publish(f)
	}

	d.requestLocked()
}
