package analysis

// Node is a frequency analysis node that can be sampled once per frame.
type Node interface {
	FrequencyBinCount() int
	ByteFrequencyData(dst []uint8)
}

// Sampler pulls byte spectrum snapshots from a Node. The bin count is fixed
// when the sampler is created.
type Sampler struct {
	node Node
	bins []uint8
}

// NewSampler creates a sampler producing binCount values per snapshot.
func NewSampler(binCount int) *Sampler {
	return &Sampler{bins: make([]uint8, binCount)}
}

// Bind attaches the analysis node. A nil node unbinds.
func (s *Sampler) Bind(n Node) {
	s.node = n
}

// Bound reports whether a node is attached.
func (s *Sampler) Bound() bool { return s.node != nil }

// BinCount returns the fixed snapshot length.
func (s *Sampler) BinCount() int { return len(s.bins) }

// Sample returns the current spectrum, low frequencies first. Without a node
// it returns all zeros. The returned slice is reused by the next call.
func (s *Sampler) Sample() []uint8 {
	if s.node == nil {
		clear(s.bins)
		return s.bins
	}
	s.node.ByteFrequencyData(s.bins)
	return s.bins
}
