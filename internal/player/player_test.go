package player

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/olivier-w/djstage/internal/audio"
)

type stubPCMDecoder struct {
	data       []byte
	pos        int64
	sampleRate int
	channels   int
}

func (d *stubPCMDecoder) Read(p []byte) (int, error) {
	if d.pos >= int64(len(d.data)) {
		return 0, io.EOF
	}
	n := copy(p, d.data[d.pos:])
	d.pos += int64(n)
	if d.pos >= int64(len(d.data)) {
		return n, io.EOF
	}
	return n, nil
}

func (d *stubPCMDecoder) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = d.pos + offset
	case io.SeekEnd:
		next = int64(len(d.data)) + offset
	}
	d.pos = min(max(next, 0), int64(len(d.data)))
	return d.pos, nil
}

func (d *stubPCMDecoder) Length() int64     { return int64(len(d.data)) }
func (d *stubPCMDecoder) SampleRate() int   { return d.sampleRate }
func (d *stubPCMDecoder) ChannelCount() int { return d.channels }

func pcm16(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
	}
	return out
}

// recordingVoice hands its reader to the test, which plays the device.
type recordingVoice struct {
	r       io.Reader
	playing bool
	volume  float64
}

func (v *recordingVoice) Play()               { v.playing = true }
func (v *recordingVoice) Pause()              { v.playing = false }
func (v *recordingVoice) IsPlaying() bool     { return v.playing }
func (v *recordingVoice) SetVolume(x float64) { v.volume = x }
func (v *recordingVoice) Close() error        { return nil }

type recordingOutput struct {
	mu     sync.Mutex
	voices []*recordingVoice
}

func (o *recordingOutput) NewVoice(r io.Reader) audio.Voice {
	o.mu.Lock()
	defer o.mu.Unlock()
	v := &recordingVoice{r: r}
	o.voices = append(o.voices, v)
	return v
}

func (o *recordingOutput) last() *recordingVoice {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.voices[len(o.voices)-1]
}

func (o *recordingOutput) Suspend() error { return nil }
func (o *recordingOutput) Resume() error  { return nil }
func (o *recordingOutput) Close() error   { return nil }

func newTestContext(t *testing.T) (*audio.Context, *recordingOutput) {
	t.Helper()
	out := &recordingOutput{}
	ctx := audio.NewContext(audio.Options{
		Open: func(audio.Format) (audio.Output, error) { return out, nil },
	})
	if err := ctx.Initialize(); err != nil {
		t.Fatal(err)
	}
	return ctx, out
}

func TestConverterUpmixesMono(t *testing.T) {
	src := &stubPCMDecoder{data: pcm16(1000, -2000, 3000), sampleRate: outRate, channels: 1}

	dec, err := newConverter(src)
	if err != nil {
		t.Fatalf("newConverter() error = %v", err)
	}
	out, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	want := pcm16(1000, 1000, -2000, -2000, 3000, 3000)
	if !bytes.Equal(out, want) {
		t.Fatalf("upmixed PCM mismatch:\n got %v\nwant %v", out, want)
	}
	if dec.ChannelCount() != outChannels {
		t.Fatalf("ChannelCount() = %d, want %d", dec.ChannelCount(), outChannels)
	}
}

func TestConverterResamplesAndSeeks(t *testing.T) {
	src := &stubPCMDecoder{
		data:       pcm16(0, 1000, 10000, 11000, 20000, 21000),
		sampleRate: 22050,
		channels:   2,
	}

	dec, err := newConverter(src)
	if err != nil {
		t.Fatalf("newConverter() error = %v", err)
	}
	out, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	want := pcm16(
		0, 1000,
		5000, 6000,
		10000, 11000,
		15000, 16000,
		20000, 21000,
		20000, 21000,
	)
	if !bytes.Equal(out, want) {
		t.Fatalf("resampled PCM mismatch:\n got %v\nwant %v", out, want)
	}
	if got := dec.Length(); got != int64(len(want)) {
		t.Fatalf("Length() = %d, want %d", got, len(want))
	}

	if _, err := dec.Seek(8, io.SeekStart); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	buf := make([]byte, 4)
	if n, err := dec.Read(buf); n != len(buf) || (err != nil && err != io.EOF) {
		t.Fatalf("Read() after seek = %d, %v", n, err)
	}
	if !bytes.Equal(buf, pcm16(10000, 11000)) {
		t.Fatalf("seeked PCM mismatch:\n got %v\nwant %v", buf, pcm16(10000, 11000))
	}
}

func TestConverterPassthrough(t *testing.T) {
	data := pcm16(1, 2, 3, 4)
	dec, err := newConverter(&stubPCMDecoder{data: data, sampleRate: outRate, channels: outChannels})
	if err != nil {
		t.Fatal(err)
	}
	if !dec.passthrough {
		t.Fatal("expected passthrough for graph-format source")
	}
	out, _ := io.ReadAll(dec)
	if !bytes.Equal(out, data) {
		t.Fatalf("passthrough PCM mismatch: got %v", out)
	}
}

func TestConverterRejectsSurround(t *testing.T) {
	if _, err := newConverter(&stubPCMDecoder{sampleRate: 48000, channels: 6}); err == nil {
		t.Fatal("expected error for 6-channel source")
	}
}

func TestClampSeekByteOffsetClampsAndAligns(t *testing.T) {
	got := clampSeekByteOffset(3900*time.Millisecond, 10, 10, 4)
	if got != 8 {
		t.Fatalf("expected clamped aligned seek offset 8, got %d", got)
	}

	got = clampSeekByteOffset(-1*time.Second, 10, 100, 4)
	if got != 0 {
		t.Fatalf("expected negative seek to clamp to 0, got %d", got)
	}
}

func TestPauseSetsPausedWithoutToggle(t *testing.T) {
	p := &Player{}
	p.Pause()
	if !p.paused {
		t.Fatal("expected pause to set paused state")
	}
	p.Pause()
	if !p.paused {
		t.Fatal("expected second pause to keep paused state")
	}
}

func TestSeekToClampsAndAlignsToFrameBoundary(t *testing.T) {
	dec := &stubPCMDecoder{data: make([]byte, 41), sampleRate: outRate, channels: outChannels}
	counter := &countingReader{}
	p := &Player{
		decoder:     dec,
		counter:     counter,
		bytesPerSec: 10,
		canSeek:     true,
	}

	if err := p.SeekTo(3900*time.Millisecond, false); err != nil {
		t.Fatalf("SeekTo returned error: %v", err)
	}
	if dec.pos != 36 {
		t.Fatalf("expected decoder seek position 36, got %d", dec.pos)
	}
	if got := counter.Pos(); got != 36 {
		t.Fatalf("expected counter position 36, got %d", got)
	}
	if !p.paused {
		t.Fatal("expected paused state after non-resuming seek")
	}
}

func TestSeekOnStreamIsRejected(t *testing.T) {
	p := &Player{}
	if err := p.SeekTo(time.Second, true); err != ErrNotSeekable {
		t.Fatalf("SeekTo() error = %v, want ErrNotSeekable", err)
	}
}

func TestPlayerCloseRunsCleanupOnce(t *testing.T) {
	calls := 0
	p := &Player{
		stopMon: make(chan struct{}),
		done:    make(chan struct{}),
		cleanup: func() {
			calls++
		},
	}

	p.Close()
	p.Close()

	if calls != 1 {
		t.Fatalf("expected cleanup to run once, got %d", calls)
	}
}

func TestPlayerFeedsTapAndFinishes(t *testing.T) {
	ctx, out := newTestContext(t)
	samples := make([]int16, 4*audio.FFTSize)
	for i := range samples {
		samples[i] = int16(8000 * (i % 2))
	}
	src := &stubPCMDecoder{data: pcm16(samples...), sampleRate: outRate, channels: outChannels}

	p, err := newPlayer(ctx, "tone", src, nil)
	if err != nil {
		t.Fatalf("newPlayer() error = %v", err)
	}
	defer p.Close()
	if !p.Paused() {
		t.Fatal("expected player to start paused")
	}

	a := audio.NewAnalyser(outRate)
	if err := p.AttachTap(a); err != nil {
		t.Fatalf("AttachTap() error = %v", err)
	}
	p.Play()
	voice := out.last()
	if !voice.IsPlaying() || voice.volume != defaultVolume {
		t.Fatalf("expected voice playing at default volume, got playing=%v volume=%v", voice.playing, voice.volume)
	}
	if _, err := io.ReadAll(voice.r); err != nil {
		t.Fatal(err)
	}

	bins := make([]uint8, a.FrequencyBinCount())
	a.ByteFrequencyData(bins)
	if bins[0] == 0 {
		t.Fatal("expected tapped PCM to reach the analyser")
	}

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expected Done after the decoder drained")
	}
	if p.Err() != nil {
		t.Fatalf("Err() = %v, want nil", p.Err())
	}
}

func TestPlayerSeekRecreatesVoice(t *testing.T) {
	ctx, out := newTestContext(t)
	src := &stubPCMDecoder{data: make([]byte, 4*outRate*2), sampleRate: outRate, channels: outChannels}
	p, err := newPlayer(ctx, "long", src, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	p.Play()
	p.SetVolume(0.3)

	if err := p.Seek(time.Second); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	if len(out.voices) != 2 {
		t.Fatalf("expected a fresh voice after seek, got %d voices", len(out.voices))
	}
	v := out.last()
	if !v.IsPlaying() || v.volume != 0.3 {
		t.Fatalf("expected new voice playing at 0.3, got playing=%v volume=%v", v.playing, v.volume)
	}
	if got := p.Position(); got != time.Second {
		t.Fatalf("Position() = %v, want 1s", got)
	}
	if p.Duration() != 2*time.Second {
		t.Fatalf("Duration() = %v, want 2s", p.Duration())
	}
}

func TestNewRequiresInitializedContext(t *testing.T) {
	ctx := audio.NewContext(audio.Options{
		Open: func(audio.Format) (audio.Output, error) { return &recordingOutput{}, nil },
	})
	src := &stubPCMDecoder{data: pcm16(0, 0), sampleRate: outRate, channels: outChannels}
	if _, err := newPlayer(ctx, "early", src, nil); err != audio.ErrNotInitialized {
		t.Fatalf("newPlayer() error = %v, want ErrNotInitialized", err)
	}
}

func writeWAV(t *testing.T, path string, rate, channels int, samples []int16) {
	t.Helper()
	data := pcm16(samples...)
	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+len(data)))
	b.WriteString("WAVEfmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1))
	binary.Write(&b, binary.LittleEndian, uint16(channels))
	binary.Write(&b, binary.LittleEndian, uint32(rate))
	binary.Write(&b, binary.LittleEndian, uint32(rate*channels*2))
	binary.Write(&b, binary.LittleEndian, uint16(channels*2))
	binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(len(data)))
	b.Write(data)
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
}

func TestNewOpensWAVFile(t *testing.T) {
	ctx, out := newTestContext(t)
	path := filepath.Join(t.TempDir(), "kick.wav")
	writeWAV(t, path, 22050, 1, make([]int16, 22050))

	p, err := New(ctx, path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Close()

	if p.Name() != "kick" {
		t.Fatalf("Name() = %q, want kick", p.Name())
	}
	if p.Duration() != time.Second {
		t.Fatalf("Duration() = %v, want 1s", p.Duration())
	}
	pcm, err := io.ReadAll(out.last().r)
	if err != nil {
		t.Fatal(err)
	}
	if len(pcm) != outRate*outFrameSize {
		t.Fatalf("decoded %d bytes, want %d", len(pcm), outRate*outFrameSize)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	ctx, _ := newTestContext(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(ctx, path); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestPlayerDoneClosesOnClose(t *testing.T) {
	ctx, _ := newTestContext(t)
	src := &stubPCMDecoder{data: pcm16(make([]int16, 8*outRate)...), sampleRate: outRate, channels: outChannels}
	p, err := newPlayer(ctx, "long", src, nil)
	if err != nil {
		t.Fatalf("newPlayer() error = %v", err)
	}
	p.Play()
	p.Close()

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("expected Done to close after Close")
	}
	if p.Err() != nil {
		t.Fatalf("Err() = %v, want nil after Close", p.Err())
	}
}

func TestFFmpegArgsReconnectOnlyForURLs(t *testing.T) {
	file := ffmpegArgs("/music/set.m4a")
	if slices.Contains(file, "-reconnect") {
		t.Fatalf("expected no reconnect options for a file, got %v", file)
	}
	if i := slices.Index(file, "-i"); i < 0 || file[i+1] != "/music/set.m4a" {
		t.Fatalf("expected input path after -i, got %v", file)
	}

	url := ffmpegArgs("https://radio.example/live.aac")
	if !slices.Contains(url, "-reconnect") {
		t.Fatalf("expected reconnect options for a URL, got %v", url)
	}
}

// stubCommands replaces the external binaries with name, which must exist
// on the host.
func stubCommands(t *testing.T, name string, arg ...string) *[]string {
	t.Helper()
	bin, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
	origLook, origCmd := lookPath, commandFn
	t.Cleanup(func() { lookPath, commandFn = origLook, origCmd })

	var got []string
	lookPath = func(file string) (string, error) { return "/usr/bin/" + file, nil }
	commandFn = func(_ string, args ...string) *exec.Cmd {
		got = args
		return exec.Command(bin, arg...)
	}
	return &got
}

func TestNewDecodesM4AThroughFFmpeg(t *testing.T) {
	args := stubCommands(t, "true")
	ctx, _ := newTestContext(t)
	path := filepath.Join(t.TempDir(), "mix.m4a")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := New(ctx, path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Close()

	if !slices.Contains(*args, path) {
		t.Fatalf("expected ffmpeg to read %s, got %v", path, *args)
	}
	if p.Name() != "mix" {
		t.Fatalf("Name() = %q, want mix", p.Name())
	}
	if p.Duration() != 0 {
		t.Fatalf("expected unknown duration, got %v", p.Duration())
	}
}

func TestNewFFmpegFileMissing(t *testing.T) {
	stubCommands(t, "true")
	ctx, _ := newTestContext(t)
	if _, err := New(ctx, filepath.Join(t.TempDir(), "gone.aac")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
