package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/balkashynov/relay/internal/ai"
	"github.com/balkashynov/relay/internal/mediator"
	"github.com/balkashynov/relay/internal/models"
	"github.com/balkashynov/relay/internal/note"
	"github.com/balkashynov/relay/internal/parser"
)

const (
	// contextScreenshots is how many recent screenshots go into a chat turn
	contextScreenshots = 5
	// contextOCRLimit caps the OCR text of each of those screenshots
	contextOCRLimit = 600

	eventBuffer = 64
)

// ErrNothingToSummarize is returned by Summarize when there are no entities
var ErrNothingToSummarize = errors.New("no entities to summarize")

// Snapshot is a consistent copy of the controller state for rendering
type Snapshot struct {
	Session     models.Session
	Screenshots []models.Screenshot
	Entities    []models.ExtractedInfo
	Messages    []models.ChatMessage
	Selected    map[string]bool

	Content   string
	Highlight note.Highlight
	Dirty     bool
	Saving    bool
}

// Controller owns the open state of one session. All of its state lives on
// a private queue; exported methods are safe to call from any goroutine.
type Controller struct {
	q        *note.Queue
	store    Store
	analyzer Analyzer
	log      *zap.Logger
	events   chan Event
	id       string
	once     sync.Once

	// Queue-confined state
	session     models.Session
	noteID      string
	doc         *note.Document
	saver       *note.Autosaver
	med         *mediator.Mediator
	screenshots []models.Screenshot
	entities    []models.ExtractedInfo
	selected    map[string]bool
	lastSaveErr error
}

// Open loads a session and everything it owns in parallel and returns a
// controller ready for editing
func Open(ctx context.Context, sessionID string, deps Deps) (*Controller, error) {
	if deps.Store == nil || deps.Analyzer == nil {
		return nil, errors.New("session: store and analyzer are required")
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("session").With(zap.String("session_id", sessionID))

	var (
		sess        *models.Session
		screenshots []models.Screenshot
		entities    []models.ExtractedInfo
		messages    []models.ChatMessage
		stored      *models.SessionNote
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sess, err = deps.Store.GetSession(gctx, sessionID)
		return err
	})
	g.Go(func() (err error) {
		screenshots, err = deps.Store.ListScreenshots(gctx, sessionID)
		return err
	})
	g.Go(func() (err error) {
		entities, err = deps.Store.ListEntities(gctx, sessionID, false)
		return err
	})
	g.Go(func() (err error) {
		messages, err = deps.Store.ListMessages(gctx, sessionID)
		return err
	})
	g.Go(func() (err error) {
		stored, err = deps.Store.FetchOrCreateNote(gctx, sessionID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to open session %s: %w", sessionID, err)
	}

	c := &Controller{
		q:           note.NewQueue(),
		store:       deps.Store,
		analyzer:    deps.Analyzer,
		log:         log,
		events:      make(chan Event, eventBuffer),
		id:          sessionID,
		session:     *sess,
		noteID:      stored.ID,
		screenshots: screenshots,
		entities:    entities,
		selected:    map[string]bool{},
	}

	// The document starts clean, before anything can observe mutations.
	c.doc = note.NewDocument(stored.Content)
	c.saver = note.NewAutosaver(c.q, c.doc, note.AutosaveOptions{
		Delay:   deps.AutosaveDelay,
		Save:    c.saveNote,
		OnSaved: c.noteSaved,
		OnError: c.noteSaveFailed,
	})
	c.med = mediator.New(c.q, c.doc, mediator.Options{
		SessionID: sessionID,
		Chat:      deps.Analyzer,
		Messages:  deps.Store,
		Saver:     c.saver,
		Dwell:     deps.HighlightDwell,
		History:   messages,
		OnHighlight: func(h note.Highlight) {
			c.emit(Event{Kind: EventHighlightChanged, Highlight: h})
		},
		Log: log,
	})

	log.Debug("session opened",
		zap.Int("screenshots", len(screenshots)),
		zap.Int("entities", len(entities)),
		zap.Int("messages", len(messages)))
	return c, nil
}

// SessionID returns the ID of the open session
func (c *Controller) SessionID() string {
	return c.id
}

// Events delivers notifications for the UI. It is closed by Close.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := c.q.Do(ctx, func() {
		selected := make(map[string]bool, len(c.selected))
		for id := range c.selected {
			selected[id] = true
		}
		snap = Snapshot{
			Session:     c.session,
			Screenshots: append([]models.Screenshot(nil), c.screenshots...),
			Entities:    append([]models.ExtractedInfo(nil), c.entities...),
			Messages:    c.med.Transcript(),
			Selected:    selected,
			Content:     c.doc.Content(),
			Highlight:   c.doc.Highlight(),
			Dirty:       c.doc.Dirty(),
			Saving:      c.saver.Saving(),
		}
	})
	return snap, err
}

// Edit replaces the note with what the user typed
func (c *Controller) Edit(ctx context.Context, text string) error {
	return c.q.Do(ctx, func() {
		if c.doc.SetContent(text) {
			c.saver.Touch()
		}
	})
}

// Ask runs one chat turn against the note, scoped to the selected entities
// when any are selected
func (c *Controller) Ask(ctx context.Context, message string) (*mediator.Outcome, error) {
	var chatCtx *ai.ChatContext
	if err := c.q.Do(ctx, func() { chatCtx = c.chatContext() }); err != nil {
		return nil, err
	}

	outcome, err := c.med.Turn(ctx, message, chatCtx)
	if err != nil {
		c.fail(EventChatFailed, err)
		return nil, err
	}
	return outcome, nil
}

// SummaryOutcome is what Summarize produced and wrote
type SummaryOutcome struct {
	Summary *ai.Summary
	// Markdown is the block written into the note, empty when the model had
	// nothing to say
	Markdown string
	// Entity is the stored ai-summary entity
	Entity *models.ExtractedInfo
}

// Summarize asks for a summary of the session's entities (or the selected
// ones), writes it into the note and keeps it as an ai-summary entity.
// Earlier summaries are not fed back into the request.
func (c *Controller) Summarize(ctx context.Context) (*SummaryOutcome, error) {
	var req ai.SummaryRequest
	if err := c.q.Do(ctx, func() {
		var source []models.ExtractedInfo
		for _, e := range c.scopedEntities() {
			if e.TypeName() != models.EntityTypeAISummary {
				source = append(source, e)
			}
		}
		req = ai.SummaryRequest{
			SessionID:   c.session.ID,
			SessionName: c.session.Name,
			Entities:    digests(source),
		}
	}); err != nil {
		return nil, err
	}
	if len(req.Entities) == 0 {
		return nil, ErrNothingToSummarize
	}

	summary, err := c.analyzer.Summarize(ctx, req)
	if err != nil {
		c.fail(EventError, err)
		return nil, fmt.Errorf("summarize failed: %w", err)
	}
	outcome := &SummaryOutcome{Summary: summary}
	if summary.Empty() {
		return outcome, nil
	}

	title := summary.SuggestedTitle
	if strings.TrimSpace(title) == "" {
		title = req.SessionName
	}
	outcome.Markdown = note.SummaryMarkdown(title, summary.CondensedSummary, summary.KeyHighlights, summary.Recommendations)

	if err := c.q.Do(context.WithoutCancel(ctx), func() {
		if strings.TrimSpace(c.doc.Content()) == "" {
			c.doc.SetContent(outcome.Markdown)
			c.med.Mark(0)
		} else {
			c.med.Mark(c.doc.Append(outcome.Markdown))
		}
		c.saver.Touch()
	}); err != nil {
		return outcome, err
	}

	entity, err := c.store.CreateEntity(ctx, summaryEntity(c.id, title, summary))
	if err != nil {
		c.fail(EventError, err)
		return outcome, fmt.Errorf("failed to store summary: %w", err)
	}
	outcome.Entity = entity
	return outcome, c.Reload(ctx)
}

// summaryEntity turns a summary into an entity that no screenshot produced
func summaryEntity(sessionID, title string, s *ai.Summary) *models.ExtractedInfo {
	kind := models.EntityTypeAISummary
	attrs := datatypes.JSONMap{"summary": s.CondensedSummary}
	if len(s.KeyHighlights) > 0 {
		attrs["highlights"] = s.KeyHighlights
	}
	if len(s.Recommendations) > 0 {
		attrs["recommendations"] = s.Recommendations
	}
	if len(s.Keywords) > 0 {
		attrs["keywords"] = s.Keywords
	}
	if len(s.MergedEntities) > 0 {
		merged := make([]string, 0, len(s.MergedEntities))
		for _, e := range s.MergedEntities {
			merged = append(merged, e.Title)
		}
		attrs["merged"] = merged
	}
	return &models.ExtractedInfo{
		SessionID:     sessionID,
		ScreenshotIDs: datatypes.JSONSlice[string]{},
		Type:          &kind,
		Title:         title,
		Attributes:    attrs,
	}
}

// ToggleEntity adds or removes an entity from the chat selection
func (c *Controller) ToggleEntity(ctx context.Context, id string) error {
	var err error
	if doErr := c.q.Do(ctx, func() {
		if c.selected[id] {
			delete(c.selected, id)
			return
		}
		for _, e := range c.entities {
			if e.ID == id {
				c.selected[id] = true
				return
			}
		}
		err = fmt.Errorf("entity %s: %w", id, models.ErrNotFound)
	}); doErr != nil {
		return doErr
	}
	return err
}

// ClearSelection empties the chat selection
func (c *Controller) ClearSelection(ctx context.Context) error {
	return c.q.Do(ctx, func() {
		c.selected = map[string]bool{}
	})
}

// DeleteEntity soft-deletes an entity and refreshes the live list
func (c *Controller) DeleteEntity(ctx context.Context, id string) error {
	if err := c.store.SoftDeleteEntity(ctx, id); err != nil {
		c.fail(EventError, err)
		return err
	}
	return c.Reload(ctx)
}

// ClearChat removes the persisted chat log and the visible transcript
func (c *Controller) ClearChat(ctx context.Context) error {
	if err := c.store.ClearMessages(ctx, c.id); err != nil {
		c.fail(EventError, err)
		return err
	}
	return c.q.Do(ctx, func() { c.med.ResetTranscript(nil) })
}

// Save writes the note now instead of waiting out the debounce window
func (c *Controller) Save(ctx context.Context) error {
	return c.q.Do(ctx, c.saver.Flush)
}

// Flush saves any pending edits and waits until storage has caught up.
// It returns the last save error if the note is still unsaved.
func (c *Controller) Flush(ctx context.Context) error {
	idle := make(chan struct{})
	if err := c.q.Do(ctx, func() {
		c.saver.Flush()
		c.saver.Wait(func() { close(idle) })
	}); err != nil {
		return err
	}

	select {
	case <-idle:
	case <-ctx.Done():
		return ctx.Err()
	}

	var err error
	_ = c.q.Do(context.WithoutCancel(ctx), func() {
		if c.doc.Dirty() {
			err = c.lastSaveErr
			if err == nil {
				err = errors.New("note has unsaved changes")
			}
		}
	})
	return err
}

// Notify reloads screenshots and entities when the change concerns this
// session. The note is never reloaded: it is only changed by edits made
// through this controller.
func (c *Controller) Notify(change Change) {
	if change.SessionID != c.id {
		return
	}
	go func() {
		if err := c.Reload(context.Background()); err != nil {
			c.log.Warn("reload after change failed", zap.Error(err))
		}
	}()
}

// Reload re-fetches screenshots and live entities
func (c *Controller) Reload(ctx context.Context) error {
	var (
		screenshots []models.Screenshot
		entities    []models.ExtractedInfo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		screenshots, err = c.store.ListScreenshots(gctx, c.id)
		return err
	})
	g.Go(func() (err error) {
		entities, err = c.store.ListEntities(gctx, c.id, false)
		return err
	})
	if err := g.Wait(); err != nil {
		c.fail(EventError, err)
		return err
	}

	sess, err := c.store.GetSession(ctx, c.id)
	if err != nil {
		c.fail(EventError, err)
		return err
	}

	return c.q.Do(context.WithoutCancel(ctx), func() {
		c.session = *sess
		c.screenshots = screenshots
		c.entities = entities

		live := make(map[string]bool, len(entities))
		for _, e := range entities {
			live[e.ID] = true
		}
		for id := range c.selected {
			if !live[id] {
				delete(c.selected, id)
			}
		}
		c.emit(Event{Kind: EventReloaded})
	})
}

// Close saves pending edits, waits for the save to land (or ctx to end)
// and shuts the controller down. Events is closed afterwards.
func (c *Controller) Close(ctx context.Context) error {
	err := c.Flush(ctx)
	if errors.Is(err, note.ErrQueueClosed) {
		return nil
	}
	c.once.Do(func() {
		_ = c.q.Do(context.WithoutCancel(ctx), func() {
			c.saver.Stop()
			c.med.Stop()
		})
		c.q.Close()
		<-c.q.Done()
		close(c.events)
	})
	return err
}

func (c *Controller) saveNote(ctx context.Context, content string) error {
	_, err := c.store.UpdateNote(ctx, c.noteID, content)
	return err
}

// noteSaved and noteSaveFailed run on the queue
func (c *Controller) noteSaved(content string) {
	c.lastSaveErr = nil
	c.emit(Event{Kind: EventNoteSaved})
}

func (c *Controller) noteSaveFailed(err error) {
	c.lastSaveErr = err
	c.log.Warn("note save failed", zap.Error(err))
	c.fail(EventSaveFailed, err)
}

// fail reports err as kind, or as an auth expiry when that is what it is.
// Safe to call from any goroutine.
func (c *Controller) fail(kind EventKind, err error) {
	if errors.Is(err, models.ErrAuthExpired) {
		kind = EventAuthExpired
	}
	c.q.Post(func() { c.emit(Event{Kind: kind, Err: err}) })
}

// emit runs on the queue, which is drained before Events is closed
func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.log.Warn("event dropped, nobody is listening", zap.Stringer("kind", ev.Kind))
	}
}

// chatContext runs on the queue
func (c *Controller) chatContext() *ai.ChatContext {
	shots := c.screenshots
	if len(shots) > contextScreenshots {
		shots = shots[len(shots)-contextScreenshots:]
	}
	recent := make([]ai.ScreenshotContext, 0, len(shots))
	for _, s := range shots {
		sc := ai.ScreenshotContext{Summary: s.Summary}
		if s.RawText != nil {
			sc.RawText = parser.Truncate(*s.RawText, contextOCRLimit)
		}
		recent = append(recent, sc)
	}

	return &ai.ChatContext{
		SessionName: c.session.Name,
		Category:    c.session.Category,
		Screenshots: recent,
		Entities:    digests(c.scopedEntities()),
	}
}

// scopedEntities runs on the queue
func (c *Controller) scopedEntities() []models.ExtractedInfo {
	if len(c.selected) == 0 {
		return c.entities
	}
	var scoped []models.ExtractedInfo
	for _, e := range c.entities {
		if c.selected[e.ID] {
			scoped = append(scoped, e)
		}
	}
	return scoped
}

func digests(entities []models.ExtractedInfo) []ai.EntityDigest {
	out := make([]ai.EntityDigest, 0, len(entities))
	for _, e := range entities {
		out = append(out, ai.EntityDigest{
			Type:       e.TypeName(),
			Title:      e.Title,
			Attributes: e.Attributes,
		})
	}
	return out
}

// SelectedIDs returns the selected entity IDs in a stable order
func (s Snapshot) SelectedIDs() []string {
	ids := make([]string, 0, len(s.Selected))
	for id := range s.Selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
