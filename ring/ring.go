// Package ring provides a fixed-capacity lock-free queue for exactly
// one producer and one consumer thread.
package ring

import "sync/atomic"

// Queue is a single-producer single-consumer lock-free FIFO queue.
//
// Backing storage is capacity+1 slots with modular indexing, so that
// full and empty states are distinguishable without a counter. The
// queue never allocates after construction and never blocks.
//
// Thread assignment is part of the contract: exactly one goroutine may
// call Push, exactly one (possibly different) goroutine may call Pop.
// Mixing that assignment is undefined. Go's sync/atomic gives
// sequentially consistent ordering, so the consumer observes a slot's
// content no later than the position update that published it.
type Queue[T any] struct {
	slots []T
	read  atomic.Int64
	write atomic.Int64
}

// New returns an empty queue with fixed capacity. Capacity must be
// positive.
func New[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		panic("ring: capacity must be positive")
	}
	return &Queue[T]{slots: make([]T, capacity+1)}
}

func (q *Queue[T]) next(pos int64) int64 {
	return (pos + 1) % int64(len(q.slots))
}

// Push stores an item at the tail of the queue. It returns false and
// leaves the queue unchanged when the queue is full. Producer only.
func (q *Queue[T]) Push(item T) bool {
	write := q.write.Load()
	nextWrite := q.next(write)
	if nextWrite == q.read.Load() {
		return false
	}
	q.slots[write] = item
	q.write.Store(nextWrite)
	return true
}

// Pop removes and returns the item at the head of the queue. It
// returns a zero value and false when the queue is empty. Consumer
// only.
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	read := q.read.Load()
	if read == q.write.Load() {
		return zero, false
	}
	item := q.slots[read]
	// drop the slot's reference so popped items can be collected
	q.slots[read] = zero
	q.read.Store(q.next(read))
	return item, true
}

// Len returns the number of queued items. The value is advisory: it
// may be stale as soon as it is returned when the peer is active.
func (q *Queue[T]) Len() int {
	write := q.write.Load()
	read := q.read.Load()
	diff := write - read
	if diff < 0 {
		diff += int64(len(q.slots))
	}
	return int(diff)
}

// Empty reports whether the queue has no items. Advisory, like Len.
func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return len(q.slots) - 1
}

// Reset drops all queued items. It is only safe to call while both
// producer and consumer are quiescent.
func (q *Queue[T]) Reset() {
	var zero T
	for i := range q.slots {
		q.slots[i] = zero
	}
	q.read.Store(0)
	q.write.Store(0)
}
