package audio

import (
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single device context per process, so the device is opened
// once and shared by every Output handed out by OpenDevice.
var (
	deviceOnce    sync.Once
	deviceCtx     *oto.Context
	deviceFormat  Format
	deviceInitErr error
)

func openOto(f Format) (*oto.Context, error) {
	deviceOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   f.SampleRate,
			ChannelCount: f.Channels,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		deviceCtx, ready, deviceInitErr = oto.NewContext(op)
		if deviceInitErr == nil {
			<-ready
			deviceFormat = f
		}
	})
	if deviceInitErr != nil {
		return nil, deviceInitErr
	}
	if f != deviceFormat {
		return nil, fmt.Errorf("audio device already opened at %d Hz/%d ch", deviceFormat.SampleRate, deviceFormat.Channels)
	}
	return deviceCtx, nil
}

// OpenDevice opens the system audio device through oto.
func OpenDevice(f Format) (Output, error) {
	ctx, err := openOto(f)
	if err != nil {
		return nil, err
	}
	return &deviceOutput{ctx: ctx}, nil
}

type deviceOutput struct {
	ctx *oto.Context
}

func (o *deviceOutput) NewVoice(r io.Reader) Voice {
	return &deviceVoice{p: o.ctx.NewPlayer(r)}
}

func (o *deviceOutput) Suspend() error { return o.ctx.Suspend() }

func (o *deviceOutput) Resume() error {
	if err := o.ctx.Err(); err != nil {
		return err
	}
	return o.ctx.Resume()
}

// Close suspends the shared device; oto contexts cannot be released.
func (o *deviceOutput) Close() error { return o.ctx.Suspend() }

type deviceVoice struct {
	p *oto.Player
}

func (v *deviceVoice) Play()               { v.p.Play() }
func (v *deviceVoice) Pause()              { v.p.Pause() }
func (v *deviceVoice) IsPlaying() bool     { return v.p.IsPlaying() }
func (v *deviceVoice) SetVolume(x float64) { v.p.SetVolume(x) }

func (v *deviceVoice) Close() error {
	v.p.Pause()
	return nil
}
