package audio

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	// FFTSize trades frequency resolution for responsiveness: 256 samples
	// give 128 bins of ~172 Hz at 44.1 kHz.
	FFTSize = 256
	// Smoothing blends each frame's magnitudes with the previous frame.
	Smoothing   = 0.8
	minDecibels = -100.0
	maxDecibels = -30.0
)

// Analyser is a real-time frequency analysis node. PCM written through
// WriteSamples is kept in a window of the latest FFTSize mono samples;
// ByteFrequencyData transforms that window on demand.
type Analyser struct {
	mu         sync.Mutex
	sampleRate int
	ring       *sampleRing
	win        []float64
	frame      []float64
	smoothed   []float64
}

// NewAnalyser creates an analyser for PCM at the given sample rate.
func NewAnalyser(sampleRate int) *Analyser {
	return &Analyser{
		sampleRate: sampleRate,
		ring:       newSampleRing(FFTSize),
		win:        window.Blackman(FFTSize),
		frame:      make([]float64, FFTSize),
		smoothed:   make([]float64, FFTSize/2),
	}
}

// FrequencyBinCount returns the number of bins produced per frame.
func (a *Analyser) FrequencyBinCount() int { return FFTSize / 2 }

// BinWidth returns the width of one bin in Hz.
func (a *Analyser) BinWidth() float64 {
	return float64(a.sampleRate) / FFTSize
}

// WriteSamples mixes interleaved int16 PCM down to mono and appends it to the
// analysis window.
func (a *Analyser) WriteSamples(pcm []int16, channels int) {
	if channels < 1 {
		channels = 1
	}
	frames := len(pcm) / channels
	if frames == 0 {
		return
	}
	mono := make([]float64, frames)
	for i := range frames {
		sum := 0
		for ch := range channels {
			sum += int(pcm[i*channels+ch])
		}
		mono[i] = float64(sum) / float64(channels) / 32768.0
	}

	a.mu.Lock()
	a.ring.write(mono)
	a.mu.Unlock()
}

// ByteFrequencyData fills dst with the current spectrum scaled to 0..255,
// low frequencies first. dst may be shorter than FrequencyBinCount.
func (a *Analyser) ByteFrequencyData(dst []uint8) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ring.readInto(a.frame)
	for i := range a.frame {
		a.frame[i] *= a.win[i]
	}
	spectrum := fft.FFTReal(a.frame)

	n := len(a.smoothed)
	if len(dst) < n {
		n = len(dst)
	}
	const scale = 255.0 / (maxDecibels - minDecibels)
	for k := range a.smoothed {
		mag := cmplx.Abs(spectrum[k]) / FFTSize
		a.smoothed[k] = Smoothing*a.smoothed[k] + (1-Smoothing)*mag
		if k >= n {
			continue
		}
		db := minDecibels
		if a.smoothed[k] > 0 {
			db = 20 * math.Log10(a.smoothed[k])
		}
		v := math.Floor(scale * (db - minDecibels))
		switch {
		case v < 0:
			v = 0
		case v > 255:
			v = 255
		}
		dst[k] = uint8(v)
	}
}

// Reset drops the sample history and smoothing state.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ring.clear()
	for i := range a.smoothed {
		a.smoothed[i] = 0
	}
}
