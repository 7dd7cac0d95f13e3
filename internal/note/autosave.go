package note

import (
	"context"
	"time"
)

// DefaultAutosaveDelay is the debounce window between the last edit and the save
const DefaultAutosaveDelay = 900 * time.Millisecond

// SaveFunc writes content to storage. It runs off the queue.
type SaveFunc func(ctx context.Context, content string) error

// AutosaveOptions configures an Autosaver
type AutosaveOptions struct {
	Delay   time.Duration
	Save    SaveFunc
	OnSaved func(content string) // called on the queue
	OnError func(err error)      // called on the queue
}

// Autosaver debounces document mutations into save calls. At most one save
// is in flight; edits that land during a save are picked up by exactly one
// follow-up save. Failed saves are reported and not retried.
//
// Every method must be called on the queue.
type Autosaver struct {
	q     *Queue
	doc   *Document
	timer *Timer
	opts  AutosaveOptions

	inFlight bool
	pending  bool
	stopped  bool
	waiters  []func()
}

// NewAutosaver wires an autosaver to doc. Build it after the document has
// been loaded, or the load itself looks like an edit.
func NewAutosaver(q *Queue, doc *Document, opts AutosaveOptions) *Autosaver {
	if opts.Delay <= 0 {
		opts.Delay = DefaultAutosaveDelay
	}
	if opts.OnSaved == nil {
		opts.OnSaved = func(string) {}
	}
	if opts.OnError == nil {
		opts.OnError = func(error) {}
	}
	return &Autosaver{
		q:     q,
		doc:   doc,
		timer: NewTimer(q),
		opts:  opts,
	}
}

// Touch restarts the debounce window after a mutation
func (a *Autosaver) Touch() {
	if a.stopped {
		return
	}
	a.timer.Reset(a.opts.Delay, a.fire)
}

// Flush skips the debounce window and saves now. With a save in flight the
// follow-up save is queued instead.
func (a *Autosaver) Flush() {
	a.timer.Stop()
	if a.inFlight {
		a.pending = true
		return
	}
	if a.doc.Dirty() {
		a.start()
		return
	}
	a.notifyIdle()
}

// Saving reports whether a save is in flight
func (a *Autosaver) Saving() bool {
	return a.inFlight
}

// Idle reports whether nothing is in flight, queued or armed
func (a *Autosaver) Idle() bool {
	return !a.inFlight && !a.pending && !a.timer.Armed()
}

// Wait calls fn on the queue as soon as the autosaver is idle
func (a *Autosaver) Wait(fn func()) {
	if a.Idle() {
		fn()
		return
	}
	a.waiters = append(a.waiters, fn)
}

// Stop disarms the timer and ignores further Touch calls. A save already
// in flight still completes.
func (a *Autosaver) Stop() {
	a.stopped = true
	a.timer.Stop()
	a.notifyIdle()
}

func (a *Autosaver) fire() {
	if a.inFlight {
		a.pending = true
		return
	}
	if !a.doc.Dirty() {
		a.notifyIdle()
		return
	}
	a.start()
}

// start sends the buffer as it is right now
func (a *Autosaver) start() {
	content := a.doc.Content()
	a.inFlight = true
	a.pending = false

	go func() {
		err := a.opts.Save(context.Background(), content)
		a.q.Post(func() { a.finish(content, err) })
	}()
}

func (a *Autosaver) finish(sent string, err error) {
	a.inFlight = false
	if err != nil {
		a.opts.OnError(err)
	} else {
		a.doc.MarkPersisted(sent)
		a.opts.OnSaved(sent)
	}

	if a.pending {
		a.pending = false
		if a.doc.Dirty() {
			a.start()
			return
		}
	} else if err == nil && a.doc.Dirty() && !a.timer.Armed() && !a.stopped {
		a.timer.Reset(a.opts.Delay, a.fire)
	}
	a.notifyIdle()
}

func (a *Autosaver) notifyIdle() {
	if !a.Idle() || len(a.waiters) == 0 {
		return
	}
	waiters := a.waiters
	a.waiters = nil
	for _, fn := range waiters {
		fn()
	}
}
