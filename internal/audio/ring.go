package audio

// sampleRing holds the most recent mono samples fed to the analyser.
// It is not safe for concurrent use; the Analyser serializes access.
type sampleRing struct {
	buf []float64
	w   int // write position
	len int // current fill level
}

func newSampleRing(size int) *sampleRing {
	return &sampleRing{buf: make([]float64, size)}
}

// write appends samples, overwriting the oldest once full.
func (r *sampleRing) write(p []float64) {
	size := len(r.buf)
	if len(p) > size {
		p = p[len(p)-size:]
	}
	for _, s := range p {
		r.buf[r.w] = s
		r.w = (r.w + 1) % size
	}
	r.len += len(p)
	if r.len > size {
		r.len = size
	}
}

// readInto copies the newest len(dst) samples into dst in chronological
// order. Missing history is zero-filled at the front.
func (r *sampleRing) readInto(dst []float64) {
	size := len(r.buf)
	n := len(dst)
	have := r.len
	if have > n {
		have = n
	}
	pad := n - have
	for i := range pad {
		dst[i] = 0
	}
	start := (r.w - have + size) % size
	for i := range have {
		dst[pad+i] = r.buf[(start+i)%size]
	}
}

func (r *sampleRing) clear() {
	r.w = 0
	r.len = 0
}
