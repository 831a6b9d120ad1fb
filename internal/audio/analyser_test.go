package audio

import (
	"math"
	"testing"
)

func TestByteFrequencyDataSilenceIsZero(t *testing.T) {
	a := NewAnalyser(44100)
	a.WriteSamples(make([]int16, FFTSize*2), 2)

	bins := make([]uint8, a.FrequencyBinCount())
	a.ByteFrequencyData(bins)
	for i, v := range bins {
		if v != 0 {
			t.Fatalf("bin %d = %d, want 0 for silence", i, v)
		}
	}
}

func TestByteFrequencyDataPeaksAtToneBin(t *testing.T) {
	const sampleRate = 44100
	const bin = 10
	a := NewAnalyser(sampleRate)
	freq := float64(bin) * a.BinWidth()

	pcm := make([]int16, FFTSize)
	for i := range pcm {
		pcm[i] = int16(16000 * math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
	}
	a.WriteSamples(pcm, 1)

	bins := make([]uint8, a.FrequencyBinCount())
	a.ByteFrequencyData(bins)

	peak := 0
	for i, v := range bins {
		if v > bins[peak] {
			peak = i
		}
	}
	if peak != bin {
		t.Fatalf("expected peak at bin %d, got %d (%v)", bin, peak, bins[:16])
	}
	if bins[bin] < 200 {
		t.Fatalf("expected strong tone bin, got %d", bins[bin])
	}
}

func TestByteFrequencyDataSmoothsAcrossFrames(t *testing.T) {
	const sampleRate = 44100
	a := NewAnalyser(sampleRate)
	freq := 20 * a.BinWidth()
	pcm := make([]int16, FFTSize)
	for i := range pcm {
		pcm[i] = int16(16000 * math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
	}
	a.WriteSamples(pcm, 1)

	bins := make([]uint8, a.FrequencyBinCount())
	a.ByteFrequencyData(bins)
	loud := bins[20]

	a.WriteSamples(make([]int16, FFTSize), 1)
	a.ByteFrequencyData(bins)
	if bins[20] == 0 || bins[20] >= loud {
		t.Fatalf("expected decaying value below %d after silence, got %d", loud, bins[20])
	}

	a.Reset()
	a.ByteFrequencyData(bins)
	if bins[20] != 0 {
		t.Fatalf("expected reset to clear smoothing, got %d", bins[20])
	}
}

func TestByteFrequencyDataShortDestination(t *testing.T) {
	a := NewAnalyser(44100)
	dst := make([]uint8, 4)
	a.ByteFrequencyData(dst)
	if len(dst) != 4 {
		t.Fatalf("unexpected length %d", len(dst))
	}
}

func TestSampleRingReadPadsMissingHistory(t *testing.T) {
	r := newSampleRing(4)
	r.write([]float64{1, 2})

	dst := make([]float64, 4)
	r.readInto(dst)
	want := []float64{0, 0, 1, 2}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("readInto() = %v, want %v", dst, want)
		}
	}

	r.write([]float64{3, 4, 5, 6, 7})
	r.readInto(dst)
	want = []float64{4, 5, 6, 7}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("readInto() after wrap = %v, want %v", dst, want)
		}
	}
}
