// Package buffer provides a fixed-capacity ring buffer used to hold the most
// recent gaze samples and parsed link events without unbounded growth.
package buffer

import "sync"

// Ring is a fixed-capacity circular buffer. Once full, Push overwrites the
// oldest element. A Ring with capacity 0 discards everything it is given,
// which lets callers keep the push path unconditional when buffering is off.
type Ring[T any] struct {
	mu    sync.Mutex
	items []T
	head  int // index of the next write
	count int
}

// NewRing returns a Ring holding at most capacity elements.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends v, evicting the oldest element when the buffer is full.
func (r *Ring[T]) Push(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return
	}
	r.items[r.head] = v
	r.head = (r.head + 1) % len(r.items)
	if r.count < len(r.items) {
		r.count++
	}
}

// Newest returns the most recently pushed element. The second return value is
// false when the buffer is empty.
func (r *Ring[T]) Newest() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	if r.count == 0 {
		return zero, false
	}
	idx := (r.head - 1 + len(r.items)) % len(r.items)
	return r.items[idx], true
}

// Snapshot returns the buffered elements in arrival order, oldest first.
func (r *Ring[T]) Snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, 0, r.count)
	if r.count == 0 {
		return out
	}
	start := (r.head - r.count + len(r.items)) % len(r.items)
	for i := 0; i < r.count; i++ {
		out = append(out, r.items[(start+i)%len(r.items)])
	}
	return out
}

// Len returns the number of buffered elements.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the buffer capacity.
func (r *Ring[T]) Cap() int {
	return len(r.items)
}

// Reset discards all buffered elements.
func (r *Ring[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head = 0
	r.count = 0
}
