// Package mediator applies chat turns to a session note: a turn either
// rewrites the whole note or gets answered and appended as a transcript
// block, and whatever was inserted is highlighted for a while.
package mediator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/balkashynov/relay/internal/ai"
	"github.com/balkashynov/relay/internal/models"
	"github.com/balkashynov/relay/internal/note"
)

// DefaultDwell is how long a highlight stays before clearing itself
const DefaultDwell = 5 * time.Second

// Chatter is the chat operation of the analysis backend
type Chatter interface {
	Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatReply, error)
}

// MessageLog persists chat messages. Writes are best effort.
type MessageLog interface {
	AppendMessage(ctx context.Context, sessionID string, role models.ChatRole, content string) (*models.ChatMessage, error)
}

// Options configures a Mediator
type Options struct {
	SessionID string
	Chat      Chatter
	Messages  MessageLog // optional
	Saver     *note.Autosaver
	Dwell     time.Duration
	History   []models.ChatMessage

	// OnHighlight runs on the queue whenever the highlight is set or cleared
	OnHighlight func(note.Highlight)
	Log         *zap.Logger
}

// Outcome describes what a successful turn did to the note
type Outcome struct {
	Reply     string
	Modified  bool
	Highlight note.Highlight
}

// Mediator owns the chat transcript of one open session. Apart from Turn,
// every method must be called on the queue.
type Mediator struct {
	q     *note.Queue
	doc   *note.Document
	opts  Options
	clear *note.Timer
	log   *zap.Logger

	transcript []models.ChatMessage
}

// New creates a mediator over doc. All document access goes through q.
func New(q *note.Queue, doc *note.Document, opts Options) *Mediator {
	if opts.Dwell <= 0 {
		opts.Dwell = DefaultDwell
	}
	if opts.OnHighlight == nil {
		opts.OnHighlight = func(note.Highlight) {}
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &Mediator{
		q:          q,
		doc:        doc,
		opts:       opts,
		clear:      note.NewTimer(q),
		log:        log.Named("mediator").With(zap.String("session_id", opts.SessionID)),
		transcript: append([]models.ChatMessage(nil), opts.History...),
	}
}

// Turn runs one chat turn. It blocks until the reply has been applied to
// the document; call it off the queue. On failure an error line is added
// to the transcript and the note is left alone.
func (m *Mediator) Turn(ctx context.Context, message string, chatCtx *ai.ChatContext) (*Outcome, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("empty message: %w", models.ErrInvalid)
	}

	var (
		preLen  int
		content string
	)
	if err := m.q.Do(ctx, func() {
		// Measured before dispatch: the user may keep typing meanwhile.
		preLen = m.doc.Len()
		content = m.doc.Content()
		m.record(models.RoleUser, message, false)
	}); err != nil {
		return nil, err
	}
	m.persist(ctx, models.RoleUser, message)

	reply, chatErr := m.opts.Chat.Chat(ctx, ai.ChatRequest{
		SessionID:   m.opts.SessionID,
		Message:     message,
		NoteContent: content,
		Context:     chatCtx,
	})
	if chatErr == nil && reply == nil {
		chatErr = errors.New("empty chat reply")
	}

	var outcome *Outcome
	// The reply must land even if the caller gave up waiting.
	if err := m.q.Do(context.WithoutCancel(ctx), func() {
		if chatErr != nil {
			m.record(models.RoleAssistant, "Error: "+chatErr.Error(), true)
			return
		}
		outcome = m.apply(preLen, message, reply)
		m.record(models.RoleAssistant, reply.Reply, false)
	}); err != nil {
		return nil, err
	}

	if chatErr != nil {
		m.log.Warn("chat turn failed", zap.Error(chatErr))
		return nil, chatErr
	}
	m.persist(ctx, models.RoleAssistant, reply.Reply)
	return outcome, nil
}

// apply changes the document according to the reply
func (m *Mediator) apply(preLen int, message string, reply *ai.ChatReply) *Outcome {
	outcome := &Outcome{Reply: reply.Reply}

	if updated, ok := reply.Replacement(); ok {
		outcome.Modified = true
		m.doc.SetContent(updated)
		if note.UTF16Len(updated) > preLen {
			m.Mark(preLen)
		} else {
			// Nothing unambiguously new to point at.
			m.Unmark()
		}
	} else {
		start := m.doc.Append(note.TranscriptBlock(message, reply.Reply))
		m.Mark(start)
	}

	if m.opts.Saver != nil {
		m.opts.Saver.Touch()
	}
	outcome.Highlight = m.doc.Highlight()
	m.log.Debug("chat turn applied",
		zap.Bool("modified", outcome.Modified),
		zap.Int("highlight_start", outcome.Highlight.Start))
	return outcome
}

// Mark highlights from start and schedules the clear, superseding any
// earlier highlight
func (m *Mediator) Mark(start int) {
	m.doc.SetHighlight(start)
	m.clear.Reset(m.opts.Dwell, m.Unmark)
	m.opts.OnHighlight(m.doc.Highlight())
}

// Unmark clears the highlight now
func (m *Mediator) Unmark() {
	m.clear.Stop()
	if !m.doc.Highlight().Active {
		return
	}
	m.doc.ClearHighlight()
	m.opts.OnHighlight(m.doc.Highlight())
}

// Transcript returns a copy of the visible chat transcript
func (m *Mediator) Transcript() []models.ChatMessage {
	return append([]models.ChatMessage(nil), m.transcript...)
}

// ResetTranscript replaces the visible transcript, e.g. after a clear
func (m *Mediator) ResetTranscript(messages []models.ChatMessage) {
	m.transcript = append([]models.ChatMessage(nil), messages...)
}

// Stop cancels the pending highlight clear
func (m *Mediator) Stop() {
	m.clear.Stop()
}

func (m *Mediator) record(role models.ChatRole, content string, failed bool) {
	m.transcript = append(m.transcript, models.ChatMessage{
		SessionID: m.opts.SessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
		Failed:    failed,
	})
}

func (m *Mediator) persist(ctx context.Context, role models.ChatRole, content string) {
	if m.opts.Messages == nil {
		return
	}
	if _, err := m.opts.Messages.AppendMessage(context.WithoutCancel(ctx), m.opts.SessionID, role, content); err != nil {
		m.log.Warn("failed to persist chat message", zap.String("role", string(role)), zap.Error(err))
	}
}
