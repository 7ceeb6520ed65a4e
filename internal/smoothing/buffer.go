// Package smoothing provides the fixed-window moving average applied to raw
// joint angles.
package smoothing

// DefaultWindowSize is the number of raw samples averaged per smoothed angle.
const DefaultWindowSize = 10

// Buffer is a fixed-capacity FIFO of samples. Once full, each Push evicts the
// oldest sample. A Buffer is not safe for concurrent use.
type Buffer struct {
	samples []float64
	head    int
	count   int
}

// NewBuffer returns a Buffer holding at most size samples. A non-positive
// size falls back to DefaultWindowSize.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultWindowSize
	}

	return &Buffer{samples: make([]float64, size)}
}

// Push appends a sample, evicting the oldest one when the buffer is full.
func (b *Buffer) Push(value float64) {
	b.samples[b.head] = value
	b.head = (b.head + 1) % len(b.samples)
	if b.count < len(b.samples) {
		b.count++
	}
}

// Average returns the mean of all held samples. It returns 0 for an empty
// buffer; callers push at least once before relying on the value.
func (b *Buffer) Average() float64 {
	if b.count == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range b.Values() {
		sum += v
	}

	return sum / float64(b.count)
}

// Values returns the held samples, oldest first.
func (b *Buffer) Values() []float64 {
	out := make([]float64, 0, b.count)
	start := (b.head - b.count + len(b.samples)) % len(b.samples)
	for i := 0; i < b.count; i++ {
		out = append(out, b.samples[(start+i)%len(b.samples)])
	}

	return out
}

func (b *Buffer) Len() int { return b.count }

func (b *Buffer) Cap() int { return len(b.samples) }

// Reset drops all samples.
func (b *Buffer) Reset() {
	b.head = 0
	b.count = 0
}
