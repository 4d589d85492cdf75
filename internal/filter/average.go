package filter

import "fmt"

// MovingAverage is a fixed-size circular sample buffer.
//
// Mean always divides by the configured sample count, so until the buffer has
// been filled once the unwritten (zero) slots pull the average down. Filled
// reports when that warm-up is over.
//
// Not safe for concurrent use.
type MovingAverage struct {
	samples    []int
	index      int
	written    int
	spikeLimit int
}

// New returns a moving average over count samples. Readings above spikeLimit
// are replaced with the previously written value; spikeLimit <= 0 disables
// that rejection.
func New(count int, spikeLimit int) (*MovingAverage, error) {
	if count <= 0 {
		return nil, fmt.Errorf("filter: sample count must be > 0, got %d", count)
	}
	return &MovingAverage{samples: make([]int, count), spikeLimit: spikeLimit}, nil
}

// Add stores v at the current write index and advances the index, wrapping
// at the sample count. It reports whether v was rejected as a spike.
func (m *MovingAverage) Add(v int) (rejected bool) {
	if m.spikeLimit > 0 && v > m.spikeLimit {
		v = m.samples[m.prevIndex()]
		rejected = true
	}
	m.samples[m.index] = v
	m.index++
	if m.index >= len(m.samples) {
		m.index = 0
	}
	if m.written < len(m.samples) {
		m.written++
	}
	return rejected
}

func (m *MovingAverage) prevIndex() int {
	if m.index == 0 {
		return len(m.samples) - 1
	}
	return m.index - 1
}

// Mean recomputes the integer mean over the whole buffer.
func (m *MovingAverage) Mean() int {
	sum := 0
	for _, v := range m.samples {
		sum += v
	}
	return sum / len(m.samples)
}

// Index is the slot the next sample will be written to.
func (m *MovingAverage) Index() int { return m.index }

// Count is the fixed sample count (buffer capacity).
func (m *MovingAverage) Count() int { return len(m.samples) }

// Filled reports whether every slot has been written at least once.
func (m *MovingAverage) Filled() bool { return m.written >= len(m.samples) }

// Samples returns a copy of the buffer in slot order.
func (m *MovingAverage) Samples() []int {
	out := make([]int, len(m.samples))
	copy(out, m.samples)
	return out
}
