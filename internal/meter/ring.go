package meter

// RingBuffer keeps the most recent entries up to a fixed capacity. When
// full, Push overwrites the oldest entry. It is not safe for concurrent use;
// the engine owns it on its loop.
type RingBuffer[T any] struct {
	buf  []T
	head int // index of the oldest entry
	n    int
}

// NewRingBuffer creates a RingBuffer holding at most size entries.
func NewRingBuffer[T any](size int) *RingBuffer[T] {
	if size < 1 {
		size = 1
	}
	return &RingBuffer[T]{buf: make([]T, size)}
}

// Push appends v, evicting the oldest entry when full.
func (rb *RingBuffer[T]) Push(v T) {
	if rb.n < len(rb.buf) {
		rb.buf[(rb.head+rb.n)%len(rb.buf)] = v
		rb.n++
		return
	}
	rb.buf[rb.head] = v
	rb.head = (rb.head + 1) % len(rb.buf)
}

// Snapshot returns a copy of the contents, oldest first. It never returns
// nil.
func (rb *RingBuffer[T]) Snapshot() []T {
	out := make([]T, rb.n)
	for i := 0; i < rb.n; i++ {
		out[i] = rb.buf[(rb.head+i)%len(rb.buf)]
	}
	return out
}

// Len returns the number of stored entries.
func (rb *RingBuffer[T]) Len() int { return rb.n }

// Cap returns the capacity.
func (rb *RingBuffer[T]) Cap() int { return len(rb.buf) }

// Reset empties the buffer.
func (rb *RingBuffer[T]) Reset() {
	clear(rb.buf)
	rb.head = 0
	rb.n = 0
}
