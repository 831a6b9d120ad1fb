package player

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	outRate      = 44100
	outChannels  = 2
	outFrameSize = outChannels * 2
	chunkFrames  = 2048
)

// converter presents any decoder as 44.1 kHz stereo s16le, the format the
// audio graph runs at. Rate changes use linear interpolation.
type converter struct {
	src         audioDecoder
	srcRate     int
	srcChannels int
	passthrough bool

	length   int64 // output bytes, -1 when unbounded
	pos      int64
	outFrame int64

	// frames holds decoded source frames already widened to stereo;
	// frames[0] is source frame base.
	frames []int16
	base   int64
	eof    bool
	srcBuf []byte
	out    []byte
	rest   []byte
}

func newConverter(src audioDecoder) (*converter, error) {
	rate := src.SampleRate()
	if rate <= 0 {
		return nil, fmt.Errorf("unsupported sample rate: %d", rate)
	}
	ch := src.ChannelCount()
	if ch < 1 || ch > outChannels {
		return nil, fmt.Errorf("unsupported channel count: %d", ch)
	}

	c := &converter{
		src:         src,
		srcRate:     rate,
		srcChannels: ch,
		passthrough: rate == outRate && ch == outChannels,
		length:      -1,
	}
	if n := src.Length(); n >= 0 {
		srcFrames := n / int64(ch*2)
		c.length = srcFrames * outRate / int64(rate) * outFrameSize
		if c.passthrough {
			c.length = n
		}
	}
	return c, nil
}

func (c *converter) Length() int64     { return c.length }
func (c *converter) SampleRate() int   { return outRate }
func (c *converter) ChannelCount() int { return outChannels }

func (c *converter) Read(p []byte) (int, error) {
	if c.passthrough {
		n, err := c.src.Read(p)
		c.pos += int64(n)
		return n, err
	}
	if len(c.rest) > 0 {
		n := copy(p, c.rest)
		c.rest = c.rest[n:]
		c.pos += int64(n)
		return n, nil
	}

	want := max((len(p)+outFrameSize-1)/outFrameSize, 1)
	raw, err := c.generate(want)
	if len(raw) == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	n := copy(p, raw)
	c.rest = raw[n:]
	c.pos += int64(n)
	return n, nil
}

func (c *converter) generate(count int) ([]byte, error) {
	if cap(c.out) < count*outFrameSize {
		c.out = make([]byte, count*outFrameSize)
	}
	raw := c.out[:0]
	for range count {
		if c.length >= 0 && c.pos+int64(len(raw)) >= c.length {
			break
		}
		num := c.outFrame * int64(c.srcRate)
		idx := num / outRate
		frac := num % outRate

		if err := c.fill(idx + 1); err != nil && err != io.EOF {
			return raw, err
		}
		avail := c.base + int64(len(c.frames)/outChannels)
		if idx >= avail {
			break
		}
		next := idx
		if idx+1 < avail {
			next = idx + 1
		}
		a := c.frames[(idx-c.base)*outChannels:]
		b := c.frames[(next-c.base)*outChannels:]
		for ch := range outChannels {
			raw = binary.LittleEndian.AppendUint16(raw, uint16(lerp(a[ch], b[ch], frac)))
		}
		c.outFrame++
		c.drop(idx)
	}
	if len(raw) == 0 {
		return nil, io.EOF
	}
	return raw, nil
}

// fill decodes until source frame idx is buffered or the source ends.
func (c *converter) fill(idx int64) error {
	for idx >= c.base+int64(len(c.frames)/outChannels) {
		if c.eof {
			return io.EOF
		}
		size := chunkFrames * c.srcChannels * 2
		if cap(c.srcBuf) < size {
			c.srcBuf = make([]byte, size)
		}
		n, err := io.ReadFull(c.src, c.srcBuf[:size])
		frames := n / (c.srcChannels * 2)
		for i := range frames {
			l := int16(binary.LittleEndian.Uint16(c.srcBuf[i*c.srcChannels*2:]))
			r := l
			if c.srcChannels == 2 {
				r = int16(binary.LittleEndian.Uint16(c.srcBuf[i*4+2:]))
			}
			c.frames = append(c.frames, l, r)
		}
		switch err {
		case nil:
		case io.EOF, io.ErrUnexpectedEOF:
			c.eof = true
		default:
			return err
		}
	}
	return nil
}

// drop discards buffered frames before idx.
func (c *converter) drop(idx int64) {
	n := int(idx - c.base)
	if n <= chunkFrames {
		return
	}
	copy(c.frames, c.frames[n*outChannels:])
	c.frames = c.frames[:len(c.frames)-n*outChannels]
	c.base = idx
}

func (c *converter) Seek(offset int64, whence int) (int64, error) {
	var p int64
	switch whence {
	case io.SeekStart:
		p = offset
	case io.SeekCurrent:
		p = c.pos + offset
	case io.SeekEnd:
		if c.length < 0 {
			return c.pos, fmt.Errorf("seek from end of unbounded stream")
		}
		p = c.length + offset
	default:
		return c.pos, fmt.Errorf("invalid seek whence: %d", whence)
	}
	if p < 0 {
		p = 0
	}
	if c.length >= 0 && p > c.length {
		p = c.length
	}
	p -= p % outFrameSize

	if c.passthrough {
		got, err := c.src.Seek(p, io.SeekStart)
		if err != nil {
			return c.pos, err
		}
		c.pos = got
		return got, nil
	}

	outFrame := p / outFrameSize
	srcFrame := outFrame * int64(c.srcRate) / outRate
	if _, err := c.src.Seek(srcFrame*int64(c.srcChannels*2), io.SeekStart); err != nil {
		return c.pos, err
	}
	c.pos = p
	c.outFrame = outFrame
	c.frames = c.frames[:0]
	c.base = srcFrame
	c.eof = false
	c.rest = nil
	return p, nil
}

func lerp(a, b int16, frac int64) int16 {
	if frac == 0 || a == b {
		return a
	}
	d := int64(b) - int64(a)
	return int16(int64(a) + (d*frac+outRate/2)/outRate)
}
