package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"sync"
)

// ErrAlreadyTapped is returned when a stream already feeds an analysis graph.
var ErrAlreadyTapped = errors.New("audio: stream already tapped")

// SampleSink receives decoded interleaved PCM.
type SampleSink interface {
	WriteSamples(pcm []int16, channels int)
}

// TapReader sits between a decoder and its voice. While a sink is attached
// every block read by the voice is copied into the sink.
type TapReader struct {
	r        io.Reader
	channels int

	mu      sync.Mutex
	sink    SampleSink
	carry   []byte // odd trailing byte from the previous read
	samples []int16
}

// NewTapReader wraps r, which must yield 16-bit little-endian PCM with the
// given channel count.
func NewTapReader(r io.Reader, channels int) *TapReader {
	return &TapReader{r: r, channels: channels}
}

func (t *TapReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 {
		t.forward(p[:n])
	}
	return n, err
}

func (t *TapReader) forward(b []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sink == nil {
		return
	}
	if len(t.carry) > 0 {
		b = append(t.carry, b...)
		t.carry = nil
	}
	count := len(b) / 2
	if len(b)%2 != 0 {
		t.carry = []byte{b[len(b)-1]}
	}
	if cap(t.samples) < count {
		t.samples = make([]int16, count)
	}
	s := t.samples[:count]
	for i := range s {
		s[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	t.sink.WriteSamples(s, t.channels)
}

// Attach routes the stream into sink.
func (t *TapReader) Attach(sink SampleSink) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sink != nil {
		return ErrAlreadyTapped
	}
	t.sink = sink
	return nil
}

// Detach stops forwarding to sink. Detaching a sink that is not attached is
// a no-op.
func (t *TapReader) Detach(sink SampleSink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sink == sink {
		t.sink = nil
		t.carry = nil
	}
}

// Tapped reports whether a sink is attached.
func (t *TapReader) Tapped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sink != nil
}
