package bridge

import (
	"context"
	"sync"
)

// queue is an unbounded FIFO connecting two pipeline stages.
//
// It is unbounded so a burst of discovered contracts never blocks the pollers,
// and signal-based so Get can wait for work without spinning while still
// observing context cancellation.
type queue[T any] struct {
	mu     sync.Mutex
	items  []T
	signal chan struct{} // signals item availability (buffered, size 1)
}

func newQueue[T any]() *queue[T] {
	return &queue[T]{
		items:  make([]T, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Put appends an item to the back of the queue. Safe for any goroutine.
func (q *queue[T]) Put(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Get removes and returns the item at the front of the queue, blocking until
// one is available or the context is cancelled.
func (q *queue[T]) Get(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			notEmpty := len(q.items) > 0
			q.mu.Unlock()
			if notEmpty {
				// Re-arm the signal for the next waiter.
				select {
				case q.signal <- struct{}{}:
				default:
				}
			}
			return item, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-q.signal:
		}
	}
}

// Len returns the current queue depth.
func (q *queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
