package session

import (
	"github.com/balkashynov/relay/internal/note"
)

// EventKind identifies what an Event reports
type EventKind int

const (
	EventNoteSaved EventKind = iota
	EventSaveFailed
	EventChatFailed
	EventHighlightChanged
	EventReloaded
	EventAuthExpired
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventNoteSaved:
		return "note-saved"
	case EventSaveFailed:
		return "save-failed"
	case EventChatFailed:
		return "chat-failed"
	case EventHighlightChanged:
		return "highlight-changed"
	case EventReloaded:
		return "reloaded"
	case EventAuthExpired:
		return "auth-expired"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is something the UI should react to
type Event struct {
	Kind      EventKind
	Err       error
	Highlight note.Highlight
}

// ChangeKind identifies an external change to a session
type ChangeKind int

const (
	ScreenshotCaptured ChangeKind = iota
	EntitiesChanged
)

// Change reports that a session's screenshots or entities changed outside
// the controller
type Change struct {
	Kind      ChangeKind
	SessionID string
}

// Notifier receives change notifications from the capture pipeline
type Notifier interface {
	Notify(Change)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Change)

func (f NotifierFunc) Notify(c Change) { f(c) }
