// Package note holds the in-memory note document and the machinery that
// keeps it persisted: a serial queue every mutation runs on, a single-slot
// timer and the debounced autosave scheduler.
package note

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Do once the queue has been closed
var ErrQueueClosed = errors.New("queue closed")

// Queue runs posted functions one at a time, in order, on a single
// goroutine. State owned by a queue is only touched from functions running
// on it, so it needs no further locking.
type Queue struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool

	wake chan struct{}
	done chan struct{}
}

// NewQueue starts a queue
func NewQueue() *Queue {
	q := &Queue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.tasks) == 0 {
			if q.closed {
				q.mu.Unlock()
				return
			}
			q.mu.Unlock()
			<-q.wake
			q.mu.Lock()
		}
		fn := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		fn()
	}
}

// Post schedules fn and returns immediately. It reports false when the
// queue is already closed and fn will never run. Safe to call from any
// goroutine, including the queue's own.
func (q *Queue) Post(fn func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the queue and waits for it to finish or for ctx to end.
// Calling Do from a function already running on the queue deadlocks.
func (q *Queue) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !q.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrQueueClosed
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work. Functions already posted still run.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Done is closed once the queue has drained after Close
func (q *Queue) Done() <-chan struct{} {
	return q.done
}
