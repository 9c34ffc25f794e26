package store

// Ring is a fixed-capacity most-recent-first buffer. PushFront and tail
// eviction are O(1); index 0 is always the newest entry.
type Ring[T any] struct {
	buf  []T
	head int
	size int
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// PushFront inserts v as the newest entry. When the ring is full the oldest
// entry is evicted and returned with ok=true.
func (r *Ring[T]) PushFront(v T) (evicted T, ok bool) {
	r.head--
	if r.head < 0 {
		r.head = len(r.buf) - 1
	}
	if r.size == len(r.buf) {
		evicted, ok = r.buf[r.head], true
	} else {
		r.size++
	}
	r.buf[r.head] = v
	return evicted, ok
}

func (r *Ring[T]) Len() int {
	return r.size
}

// At returns the entry at position i, where 0 is the newest.
func (r *Ring[T]) At(i int) T {
	return r.buf[(r.head+i)%len(r.buf)]
}

// Items returns a snapshot slice ordered newest first.
func (r *Ring[T]) Items() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.At(i)
	}
	return out
}
