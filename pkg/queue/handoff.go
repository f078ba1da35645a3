package queue

import "sync/atomic"

// Handoff is a bounded multi-producer, single-consumer queue. Put never blocks:
// when the buffer is full the item is rejected and the caller is told so. An
// accepted item stays queued until a Drain returns it.
type Handoff[T any] struct {
	ch       chan T
	rejected atomic.Uint64
}

// DefaultCapacity bounds the queue when no capacity is given.
const DefaultCapacity = 1024

func New[T any](capacity int) *Handoff[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Handoff[T]{ch: make(chan T, capacity)}
}

// Put enqueues v and reports whether it was accepted.
func (q *Handoff[T]) Put(v T) bool {
	select {
	case q.ch <- v:
		return true
	default:
		q.rejected.Add(1)
		return false
	}
}

// Drain removes and returns the items queued at the time of the call, oldest
// first. Items put concurrently may be left for the next Drain. It returns nil
// when the queue is empty and never blocks.
func (q *Handoff[T]) Drain() []T {
	n := len(q.ch)
	if n == 0 {
		return nil
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		select {
		case v := <-q.ch:
			out = append(out, v)
		default:
			return out
		}
	}
	return out
}

func (q *Handoff[T]) Len() int { return len(q.ch) }

func (q *Handoff[T]) Cap() int { return cap(q.ch) }

// Rejected is the number of Put calls refused because the queue was full.
func (q *Handoff[T]) Rejected() uint64 { return q.rejected.Load() }
