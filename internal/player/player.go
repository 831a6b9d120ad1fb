// Package player plays tracks through the shared audio context. Local files
// and direct audio URLs are decoded in-process and can be tapped for
// analysis; page URLs are handed to an external player and stay opaque.
package player

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/olivier-w/djstage/internal/audio"
	"github.com/olivier-w/djstage/internal/media"
)

// ErrNotSeekable is returned by Seek on unbounded streams.
var ErrNotSeekable = errors.New("player: source is not seekable")

const defaultVolume = 0.8

// Handle is a playing track, tappable or not.
type Handle interface {
	Name() string
	Play()
	Pause()
	TogglePause()
	Paused() bool
	Position() time.Duration
	Duration() time.Duration
	Volume() float64
	SetVolume(v float64)
	AdjustVolume(delta float64)
	// Done closes when playback ends on its own or the handle is closed.
	Done() <-chan struct{}
	// Err reports why playback ended early, if it did.
	Err() error
	Close() error
}

// countingReader wraps a reader and tracks bytes read and the terminal error.
type countingReader struct {
	reader io.Reader
	mu     sync.Mutex
	pos    int64
	err    error
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.reader.Read(p)
	cr.mu.Lock()
	cr.pos += int64(n)
	if err != nil && cr.err == nil {
		cr.err = err
	}
	cr.mu.Unlock()
	return n, err
}

func (cr *countingReader) Pos() int64 {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	return cr.pos
}

// Err returns the first error the wrapped reader produced.
func (cr *countingReader) Err() error {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	return cr.err
}

func (cr *countingReader) SetPos(pos int64) {
	cr.mu.Lock()
	cr.pos = pos
	cr.err = nil
	cr.mu.Unlock()
}

// Player decodes a track to PCM and plays it on a voice of the audio
// context. The PCM passes through a tap so the analyser can listen in.
type Player struct {
	name        string
	ctx         *audio.Context
	decoder     audioDecoder
	counter     *countingReader
	tap         *audio.TapReader
	voice       audio.Voice
	bytesPerSec int
	duration    time.Duration
	canSeek     bool
	cleanup     func()

	mu      sync.Mutex
	volume  float64
	paused  bool
	done    chan struct{}
	ended   bool
	err     error
	stopMon chan struct{}
	closed  bool
}

// New opens a local audio file. The context must be initialized.
// Playback starts paused.
func New(ctx *audio.Context, path string) (*Player, error) {
	if media.NeedsFFmpeg(filepath.Ext(path)) {
		return newFFmpegFile(ctx, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec, err := newDecoder(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	p, err := newPlayer(ctx, ReadMetadata(path).String(), dec, func() { f.Close() })
	if err != nil {
		f.Close()
		return nil, err
	}
	return p, nil
}

// NewStream plays a direct audio URL decoded by ffmpeg.
func NewStream(ctx *audio.Context, url string) (*Player, error) {
	return openFFmpeg(ctx, url, url)
}

// newFFmpegFile plays a local file the in-process decoders cannot read.
func newFFmpegFile(ctx *audio.Context, path string) (*Player, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return openFFmpeg(ctx, ReadMetadata(path).String(), path)
}

func openFFmpeg(ctx *audio.Context, name, input string) (*Player, error) {
	dec, err := newStreamDecoder(input)
	if err != nil {
		return nil, err
	}
	p, err := newPlayer(ctx, name, dec, func() { dec.Close() })
	if err != nil {
		dec.Close()
		return nil, err
	}
	return p, nil
}

func newPlayer(ctx *audio.Context, name string, src audioDecoder, cleanup func()) (*Player, error) {
	dec, err := newConverter(src)
	if err != nil {
		return nil, err
	}
	format := audio.Format{SampleRate: dec.SampleRate(), Channels: dec.ChannelCount()}
	counter := &countingReader{reader: dec}
	tap := audio.NewTapReader(counter, format.Channels)
	voice, err := ctx.NewVoice(tap)
	if err != nil {
		return nil, err
	}

	p := &Player{
		name:        name,
		ctx:         ctx,
		decoder:     dec,
		counter:     counter,
		tap:         tap,
		voice:       voice,
		bytesPerSec: format.BytesPerSec(),
		canSeek:     dec.Length() >= 0,
		cleanup:     cleanup,
		volume:      defaultVolume,
		paused:      true,
		done:        make(chan struct{}),
		stopMon:     make(chan struct{}),
	}
	if p.canSeek {
		p.duration = p.bytesToDuration(dec.Length())
	}
	voice.SetVolume(p.volume)

	go p.monitor()
	return p, nil
}

func (p *Player) bytesToDuration(n int64) time.Duration {
	return time.Duration(float64(n) / float64(p.bytesPerSec) * float64(time.Second))
}

func (p *Player) monitor() {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopMon:
			return
		case <-ticker.C:
		}

		err := p.counter.Err()
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return
		}
		finished := err != nil && !p.paused
		if finished {
			if err != io.EOF {
				p.err = err
			}
			p.endLocked()
		}
		p.mu.Unlock()
		if finished {
			return
		}
	}
}

// Name returns the track title.
func (p *Player) Name() string { return p.name }

// AttachTap routes decoded PCM into sink.
func (p *Player) AttachTap(sink audio.SampleSink) error { return p.tap.Attach(sink) }

// DetachTap stops routing PCM into sink.
func (p *Player) DetachTap(sink audio.SampleSink) { p.tap.Detach(sink) }

// Done returns a channel that closes when playback finishes.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Err returns the decode error that ended playback, if any.
func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || !p.paused || p.voice == nil {
		return
	}
	p.voice.Play()
	p.paused = false
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.paused {
		return
	}
	if p.voice != nil {
		p.voice.Pause()
	}
	p.paused = true
}

// TogglePause toggles between play and pause.
func (p *Player) TogglePause() {
	if p.Paused() {
		p.Play()
	} else {
		p.Pause()
	}
}

// Paused returns whether playback is paused.
func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Position returns the current playback position.
func (p *Player) Position() time.Duration {
	return p.bytesToDuration(p.counter.Pos())
}

// Duration returns the total duration of the track, or 0 for streams.
func (p *Player) Duration() time.Duration {
	return p.duration
}

func clampSeekByteOffset(target time.Duration, bytesPerSec int, total int64, frameSize int64) int64 {
	pos := int64(target.Seconds() * float64(bytesPerSec))
	if pos < 0 {
		pos = 0
	}
	if pos > total {
		pos = total
	}
	return pos - pos%frameSize
}

// Seek moves playback by delta from the current position.
func (p *Player) Seek(delta time.Duration) error {
	return p.SeekTo(p.Position()+delta, !p.Paused())
}

// SeekTo jumps to an absolute position. The voice is recreated so buffered
// audio from the old position is dropped.
func (p *Player) SeekTo(target time.Duration, resume bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.canSeek {
		return ErrNotSeekable
	}
	pos := clampSeekByteOffset(target, p.bytesPerSec, p.decoder.Length(), outFrameSize)
	if _, err := p.decoder.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	p.counter.SetPos(pos)

	if p.voice != nil {
		p.voice.Pause()
		p.voice.Close()
		p.voice = nil
	}
	p.paused = true
	if p.ctx == nil {
		return nil
	}
	voice, err := p.ctx.NewVoice(p.tap)
	if err != nil {
		return err
	}
	voice.SetVolume(p.volume)
	p.voice = voice
	if resume {
		voice.Play()
		p.paused = false
	}
	return nil
}

// Volume returns current volume (0.0 to 1.0).
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetVolume sets volume (clamped to 0.0 - 1.0).
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	v = min(max(v, 0), 1)
	p.volume = v
	if p.voice != nil {
		p.voice.SetVolume(v)
	}
}

// AdjustVolume adjusts volume by delta.
func (p *Player) AdjustVolume(delta float64) {
	p.mu.Lock()
	v := p.volume + delta
	p.mu.Unlock()
	p.SetVolume(v)
}

// Close releases the voice and the decoder.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.stopMon)
	p.endLocked()
	if p.voice != nil {
		p.voice.Pause()
		p.voice.Close()
	}
	if p.cleanup != nil {
		p.cleanup()
	}
	return nil
}

func (p *Player) endLocked() {
	if !p.ended {
		p.ended = true
		close(p.done)
	}
}
