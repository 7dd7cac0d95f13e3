package note

import "time"

// Timer is a single-slot delayed action bound to a queue. Arming it again
// supersedes the previous action, so there are never two competing timers
// for the same state. All methods must be called on the queue.
type Timer struct {
	q       *Queue
	gen     uint64
	pending *time.Timer
}

// NewTimer creates an unarmed timer that fires on q
func NewTimer(q *Queue) *Timer {
	return &Timer{q: q}
}

// Reset arms the timer to run fn on the queue after d, cancelling whatever
// was armed before
func (t *Timer) Reset(d time.Duration, fn func()) {
	t.Stop()
	gen := t.gen
	t.pending = time.AfterFunc(d, func() {
		t.q.Post(func() {
			// A callback from a superseded arm can still land here if
			// Stop raced the underlying timer.
			if t.gen != gen {
				return
			}
			t.pending = nil
			fn()
		})
	})
}

// Stop disarms the timer
func (t *Timer) Stop() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	t.gen++
}

// Armed reports whether an action is waiting to fire
func (t *Timer) Armed() bool {
	return t.pending != nil
}
