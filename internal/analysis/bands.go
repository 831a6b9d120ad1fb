package analysis

// Bin ranges for a 256-point transform at ~44.1 kHz (~172 Hz per bin).
// This is a coarse heuristic split, not a calibrated filter bank.
const (
	bassLo, bassHi     = 0, 3
	midLo, midHi       = 3, 20
	trebleLo, trebleHi = 20, 100
)

// ExtractBands reduces a byte spectrum to bass/mid/treble/volume. Ranges that
// run past the end of bins are averaged over the bins that exist; an empty
// range yields 0.
func ExtractBands(bins []uint8) Signal {
	return Signal{
		Bass:   average(bins, bassLo, bassHi) / 255,
		Mid:    average(bins, midLo, midHi) / 255,
		Treble: average(bins, trebleLo, trebleHi) / 255,
		Volume: average(bins, 0, len(bins)) / 255,
	}
}

func average(bins []uint8, lo, hi int) float64 {
	if hi > len(bins) {
		hi = len(bins)
	}
	if lo >= hi {
		return 0
	}
	sum := 0
	for _, v := range bins[lo:hi] {
		sum += int(v)
	}
	return float64(sum) / float64(hi-lo)
}
