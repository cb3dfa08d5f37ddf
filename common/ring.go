package common

import (
	"sync"
)

// RingBuffer is a fixed-size FIFO that overwrites its oldest element when full.
type RingBuffer[T any] struct {
	buffer []T
	size   int
	mu     sync.Mutex
	write  int
	count  int
}

// NewRingBuffer creates a new ring buffer with a fixed size.
func NewRingBuffer[T any](size int) *RingBuffer[T] {
	if size < 1 {
		size = 1
	}
	return &RingBuffer[T]{
		buffer: make([]T, size),
		size:   size,
	}
}

// Add inserts a new element into the buffer, overwriting the oldest if full.
func (rb *RingBuffer[T]) Add(value T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.buffer[rb.write] = value
	rb.write = (rb.write + 1) % rb.size

	if rb.count < rb.size {
		rb.count++
	}
}

// Get returns the contents of the buffer in FIFO order.
func (rb *RingBuffer[T]) Get() []T {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	result := make([]T, 0, rb.count)
	for i := 0; i < rb.count; i++ {
		index := (rb.write + rb.size - rb.count + i) % rb.size
		result = append(result, rb.buffer[index])
	}
	return result
}

// DropWhile removes elements from the oldest end while drop is true.
func (rb *RingBuffer[T]) DropWhile(drop func(T) bool) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := 0
	for rb.count > 0 {
		oldest := (rb.write + rb.size - rb.count) % rb.size
		if !drop(rb.buffer[oldest]) {
			break
		}
		var zero T
		rb.buffer[oldest] = zero
		rb.count--
		n++
	}
	return n
}

func (rb *RingBuffer[T]) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

func (rb *RingBuffer[T]) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.buffer = make([]T, rb.size)
	rb.write = 0
	rb.count = 0
}
