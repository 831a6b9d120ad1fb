package player

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// audioDecoder yields signed 16-bit little-endian interleaved PCM.
// Length is the total PCM byte count, or -1 for unbounded streams.
type audioDecoder interface {
	io.ReadSeeker
	Length() int64
	SampleRate() int
	ChannelCount() int
}

// newDecoder picks a decoder from the file extension.
func newDecoder(f *os.File) (audioDecoder, error) {
	ext := strings.ToLower(filepath.Ext(f.Name()))
	switch ext {
	case ".mp3":
		return newMP3Decoder(f)
	case ".wav":
		return newWAVDecoder(f)
	case ".flac":
		return newFLACDecoder(f)
	case ".ogg":
		return newOGGDecoder(f)
	default:
		return nil, fmt.Errorf("unsupported format: %s", ext)
	}
}

// pcmState carries what every block decoder needs: leftover output bytes
// from the last block and the output byte position.
type pcmState struct {
	buf        []byte
	pos        int64
	totalBytes int64
	sampleRate int
	channels   int
}

func (s *pcmState) Length() int64     { return s.totalBytes }
func (s *pcmState) SampleRate() int   { return s.sampleRate }
func (s *pcmState) ChannelCount() int { return s.channels }

// drain serves buffered bytes first. It reports false when nothing was
// buffered.
func (s *pcmState) drain(p []byte) (int, bool) {
	if len(s.buf) == 0 {
		return 0, false
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	s.pos += int64(n)
	return n, true
}

// emit copies a freshly decoded block into p and keeps the remainder.
func (s *pcmState) emit(p, raw []byte) int {
	n := copy(p, raw)
	if n < len(raw) {
		s.buf = raw[n:]
	}
	s.pos += int64(n)
	return n
}

// target resolves a Seek request to an absolute output byte offset, clamped
// and aligned to a whole sample frame.
func (s *pcmState) target(offset int64, whence int) int64 {
	var p int64
	switch whence {
	case io.SeekStart:
		p = offset
	case io.SeekCurrent:
		p = s.pos + offset
	case io.SeekEnd:
		p = s.totalBytes + offset
	}
	if p < 0 {
		p = 0
	}
	if p > s.totalBytes {
		p = s.totalBytes
	}
	frame := int64(s.channels) * 2
	return p - p%frame
}

func (s *pcmState) moved(p int64) {
	s.buf = nil
	s.pos = p
}

func clampInt16(v int) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// --- MP3 ---

type mp3Decoder struct {
	dec *mp3.Decoder
}

func newMP3Decoder(f *os.File) (*mp3Decoder, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("decoding MP3: %w", err)
	}
	return &mp3Decoder{dec: dec}, nil
}

func (d *mp3Decoder) Read(p []byte) (int, error) { return d.dec.Read(p) }
func (d *mp3Decoder) Seek(offset int64, whence int) (int64, error) {
	return d.dec.Seek(offset, whence)
}
func (d *mp3Decoder) Length() int64     { return d.dec.Length() }
func (d *mp3Decoder) SampleRate() int   { return d.dec.SampleRate() }
func (d *mp3Decoder) ChannelCount() int { return 2 }

// --- WAV ---

type wavDecoder struct {
	pcmState
	file         *os.File
	pcmStart     int64
	srcBitDepth  int
	srcFrameSize int64
}

func newWAVDecoder(f *os.File) (*wavDecoder, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	channels := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported WAV bit depth: %d", bitDepth)
	}
	srcFrameSize := int64(channels) * int64(bitDepth) / 8
	frames := dec.PCMLen() / srcFrameSize

	pcmStart, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("locating WAV PCM data: %w", err)
	}

	return &wavDecoder{
		pcmState: pcmState{
			totalBytes: frames * int64(channels) * 2,
			sampleRate: int(dec.SampleRate),
			channels:   channels,
		},
		file:         f,
		pcmStart:     pcmStart,
		srcBitDepth:  bitDepth,
		srcFrameSize: srcFrameSize,
	}, nil
}

func (d *wavDecoder) Read(p []byte) (int, error) {
	if n, ok := d.drain(p); ok {
		return n, nil
	}

	width := d.srcBitDepth / 8
	want := len(p) / 2
	if want == 0 {
		want = 1
	}
	src := make([]byte, want*width)
	n, err := io.ReadFull(d.file, src)
	samples := n / width
	if samples == 0 {
		if err == nil || err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return 0, err
	}

	raw := make([]byte, samples*2)
	for i := range samples {
		b := src[i*width:]
		var v int
		switch d.srcBitDepth {
		case 8:
			v = (int(b[0]) - 128) << 8
		case 16:
			v = int(int16(binary.LittleEndian.Uint16(b)))
		case 24:
			s := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
			if s&0x800000 != 0 {
				s |= ^0xFFFFFF
			}
			v = int(s >> 8)
		case 32:
			v = int(int32(binary.LittleEndian.Uint32(b)) >> 16)
		}
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(clampInt16(v)))
	}

	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return d.emit(p, raw), err
}

func (d *wavDecoder) Seek(offset int64, whence int) (int64, error) {
	p := d.target(offset, whence)
	frame := p / (int64(d.channels) * 2)
	if _, err := d.file.Seek(d.pcmStart+frame*d.srcFrameSize, io.SeekStart); err != nil {
		return d.pos, err
	}
	d.moved(p)
	return p, nil
}

// --- FLAC ---

type flacDecoder struct {
	pcmState
	stream *flac.Stream
	bps    int
}

func newFLACDecoder(f *os.File) (*flacDecoder, error) {
	stream, err := flac.NewSeek(f)
	if err != nil {
		return nil, fmt.Errorf("decoding FLAC: %w", err)
	}
	info := stream.Info
	channels := int(info.NChannels)
	return &flacDecoder{
		pcmState: pcmState{
			totalBytes: int64(info.NSamples) * int64(channels) * 2,
			sampleRate: int(info.SampleRate),
			channels:   channels,
		},
		stream: stream,
		bps:    int(info.BitsPerSample),
	}, nil
}

func (d *flacDecoder) Read(p []byte) (int, error) {
	if n, ok := d.drain(p); ok {
		return n, nil
	}

	frame, err := d.stream.ParseNext()
	if err != nil {
		return 0, err
	}

	n := int(frame.Subframes[0].NSamples)
	raw := make([]byte, n*d.channels*2)
	for i := range n {
		for ch := range d.channels {
			v := int(frame.Subframes[ch].Samples[i])
			switch {
			case d.bps > 16:
				v >>= d.bps - 16
			case d.bps < 16:
				v <<= 16 - d.bps
			}
			binary.LittleEndian.PutUint16(raw[(i*d.channels+ch)*2:], uint16(clampInt16(v)))
		}
	}
	return d.emit(p, raw), nil
}

func (d *flacDecoder) Seek(offset int64, whence int) (int64, error) {
	p := d.target(offset, whence)
	if _, err := d.stream.Seek(uint64(p / (int64(d.channels) * 2))); err != nil {
		return d.pos, err
	}
	d.moved(p)
	return p, nil
}

// --- OGG Vorbis ---

type oggDecoder struct {
	pcmState
	reader *oggvorbis.Reader
}

func newOGGDecoder(f *os.File) (*oggDecoder, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decoding OGG: %w", err)
	}
	channels := reader.Channels()
	return &oggDecoder{
		pcmState: pcmState{
			totalBytes: reader.Length() * int64(channels) * 2,
			sampleRate: reader.SampleRate(),
			channels:   channels,
		},
		reader: reader,
	}, nil
}

func (d *oggDecoder) Read(p []byte) (int, error) {
	if n, ok := d.drain(p); ok {
		return n, nil
	}

	samples := make([]float32, max(len(p)/2, 1))
	n, err := d.reader.Read(samples)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}

	raw := make([]byte, n*2)
	for i, s := range samples[:n] {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(clampInt16(int(s*32767))))
	}
	return d.emit(p, raw), err
}

func (d *oggDecoder) Seek(offset int64, whence int) (int64, error) {
	p := d.target(offset, whence)
	if err := d.reader.SetPosition(p / (int64(d.channels) * 2)); err != nil {
		return d.pos, err
	}
	d.moved(p)
	return p, nil
}
