package player

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/olivier-w/djstage/internal/media"
)

// lookPath and commandFn are swapped out in tests.
var (
	lookPath  = exec.LookPath
	commandFn = exec.Command
)

// streamDecoder adapts an ffmpeg decode subprocess to the audioDecoder
// interface. ffmpeg resamples to the graph format, so the converter passes
// it through untouched.
type streamDecoder struct {
	cmd       *exec.Cmd
	stdout    io.ReadCloser
	waitDone  chan struct{}
	closeOnce sync.Once
}

func newStreamDecoder(input string) (*streamDecoder, error) {
	ffmpeg, err := lookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found (required for %s)", input)
	}

	cmd := commandFn(ffmpeg, ffmpegArgs(input)...)
	cmd.Stdin = nil
	cmd.Stderr = io.Discard

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("setting up ffmpeg stream: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting ffmpeg stream: %w", err)
	}

	d := &streamDecoder{
		cmd:      cmd,
		stdout:   stdout,
		waitDone: make(chan struct{}),
	}
	go func() {
		_ = cmd.Wait()
		close(d.waitDone)
	}()
	return d, nil
}

func ffmpegArgs(input string) []string {
	args := []string{"-nostdin", "-hide_banner", "-loglevel", "error"}
	if media.IsURL(input) {
		// reconnect options belong to the http protocol; ffmpeg rejects them
		// for files.
		args = append(args, "-reconnect", "1", "-reconnect_streamed", "1", "-reconnect_delay_max", "5")
	}
	return append(args,
		"-i", input,
		"-vn",
		"-ac", "2",
		"-ar", "44100",
		"-f", "s16le",
		"pipe:1",
	)
}

func (d *streamDecoder) Read(p []byte) (int, error) {
	n, err := d.stdout.Read(p)
	if errors.Is(err, io.ErrClosedPipe) {
		err = io.EOF
	}
	return n, err
}

func (d *streamDecoder) Seek(int64, int) (int64, error) {
	return 0, ErrNotSeekable
}

func (d *streamDecoder) Length() int64     { return -1 }
func (d *streamDecoder) SampleRate() int   { return outRate }
func (d *streamDecoder) ChannelCount() int { return outChannels }

func (d *streamDecoder) Close() error {
	d.closeOnce.Do(func() {
		if d.stdout != nil {
			_ = d.stdout.Close()
		}
		if d.cmd != nil && d.cmd.Process != nil {
			_ = d.cmd.Process.Kill()
		}
		<-d.waitDone
	})
	return nil
}
