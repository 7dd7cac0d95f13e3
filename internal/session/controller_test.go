package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/relay/internal/ai"
	"github.com/balkashynov/relay/internal/db"
	"github.com/balkashynov/relay/internal/models"
	"github.com/balkashynov/relay/internal/note"
)

// countingStore is the real SQLite store with note writes counted and,
// optionally, failed
type countingStore struct {
	*db.Store

	mu          sync.Mutex
	noteWrites  []string
	noteErr     error
	entityErrOn string
}

func (s *countingStore) UpdateNote(ctx context.Context, id, content string) (*models.SessionNote, error) {
	s.mu.Lock()
	s.noteWrites = append(s.noteWrites, content)
	err := s.noteErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Store.UpdateNote(ctx, id, content)
}

func (s *countingStore) CreateEntity(ctx context.Context, entity *models.ExtractedInfo) (*models.ExtractedInfo, error) {
	if s.entityErrOn != "" && entity.Title == s.entityErrOn {
		return nil, errors.New("write rejected")
	}
	return s.Store.CreateEntity(ctx, entity)
}

func (s *countingStore) writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.noteWrites...)
}

type fakeAnalyzer struct {
	mu       sync.Mutex
	analysis *ai.Analysis
	analyErr error
	reply    *ai.ChatReply
	chatErr  error
	summary  *ai.Summary
	chats    []ai.ChatRequest
	digests  [][]ai.EntityDigest
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, image []byte) (*ai.Analysis, error) {
	if f.analyErr != nil {
		return ai.DefaultAnalysis(), f.analyErr
	}
	return f.analysis, nil
}

func (f *fakeAnalyzer) Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, req)
	return f.reply, f.chatErr
}

func (f *fakeAnalyzer) Summarize(ctx context.Context, req ai.SummaryRequest) (*ai.Summary, error) {
	f.mu.Lock()
	f.digests = append(f.digests, req.Entities)
	f.mu.Unlock()
	if f.summary == nil {
		return ai.DefaultSummary(), errors.New("no summary")
	}
	return f.summary, nil
}

func (f *fakeAnalyzer) lastChat() ai.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chats[len(f.chats)-1]
}

func newStore(t *testing.T) *countingStore {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "relay.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return &countingStore{Store: store}
}

func seedSession(t *testing.T, store *countingStore, name, content string) *models.Session {
	t.Helper()
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, models.CreateSessionRequest{Name: name})
	require.NoError(t, err)
	if content != "" {
		n, err := store.Store.FetchOrCreateNote(ctx, sess.ID)
		require.NoError(t, err)
		_, err = store.Store.UpdateNote(ctx, n.ID, content)
		require.NoError(t, err)
	}
	return sess
}

func addEntity(t *testing.T, store *countingStore, sessionID, kind, title string) *models.ExtractedInfo {
	t.Helper()
	e, err := store.Store.CreateEntity(context.Background(), &models.ExtractedInfo{
		SessionID: sessionID,
		Type:      &kind,
		Title:     title,
	})
	require.NoError(t, err)
	return e
}

func openController(t *testing.T, store *countingStore, analyzer *fakeAnalyzer, sessionID string, delay time.Duration) *Controller {
	t.Helper()
	c, err := Open(context.Background(), sessionID, Deps{
		Store:          store,
		Analyzer:       analyzer,
		AutosaveDelay:  delay,
		HighlightDwell: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func waitFor(t *testing.T, c *Controller, kind EventKind) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-c.Events():
			require.True(t, ok, "events closed while waiting for %s", kind)
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func TestOpenLoadsWithoutSaving(t *testing.T) {
	store := newStore(t)
	sess := seedSession(t, store, "Tokyo", "# Tokyo\n\nHyatt")
	addEntity(t, store, sess.ID, "hotel", "Hyatt")

	c := openController(t, store, &fakeAnalyzer{}, sess.ID, 10*time.Millisecond)

	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "# Tokyo\n\nHyatt", snap.Content)
	assert.False(t, snap.Dirty)
	assert.Len(t, snap.Entities, 1)
	assert.Equal(t, "Tokyo", snap.Session.Name)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, store.writes())
}

func TestOpenCreatesMissingNote(t *testing.T) {
	store := newStore(t)
	sess := seedSession(t, store, "Fresh", "")

	c := openController(t, store, &fakeAnalyzer{}, sess.ID, time.Hour)
	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", snap.Content)

	_, err = Open(context.Background(), "missing", Deps{Store: store, Analyzer: &fakeAnalyzer{}})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestEditAutosaves(t *testing.T) {
	store := newStore(t)
	sess := seedSession(t, store, "Jobs", "")
	c := openController(t, store, &fakeAnalyzer{}, sess.ID, 10*time.Millisecond)

	for i := 1; i <= 3; i++ {
		require.NoError(t, c.Edit(context.Background(), fmt.Sprintf("draft %d", i)))
	}
	waitFor(t, c, EventNoteSaved)

	assert.Equal(t, []string{"draft 3"}, store.writes())
	stored, err := store.Store.FetchOrCreateNote(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft 3", stored.Content)
}

func TestNotifyNeverReloadsNote(t *testing.T) {
	store := newStore(t)
	sess := seedSession(t, store, "Hotels", "server copy")
	c := openController(t, store, &fakeAnalyzer{}, sess.ID, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Edit(ctx, "local edit in progress"))

	// Someone else writes the note and adds an entity.
	stored, err := store.Store.FetchOrCreateNote(ctx, sess.ID)
	require.NoError(t, err)
	_, err = store.Store.UpdateNote(ctx, stored.ID, "stale server state")
	require.NoError(t, err)
	addEntity(t, store, sess.ID, "hotel", "Hilton")

	c.Notify(Change{Kind: EntitiesChanged, SessionID: sess.ID})
	waitFor(t, c, EventReloaded)

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "local edit in progress", snap.Content)
	require.Len(t, snap.Entities, 1)
	assert.Equal(t, "Hilton", snap.Entities[0].Title)
}

func TestNotifyIgnoresOtherSessions(t *testing.T) {
	store := newStore(t)
	sess := seedSession(t, store, "Mine", "")
	other := seedSession(t, store, "Theirs", "")
	c := openController(t, store, &fakeAnalyzer{}, sess.ID, time.Hour)

	addEntity(t, store, sess.ID, "hotel", "Hyatt")
	c.Notify(Change{Kind: EntitiesChanged, SessionID: other.ID})
	time.Sleep(50 * time.Millisecond)

	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Entities)
}

func TestSelectionScopesChatContext(t *testing.T) {
	store := newStore(t)
	sess := seedSession(t, store, "Hotels", "")
	hyatt := addEntity(t, store, sess.ID, "hotel", "Hyatt")
	addEntity(t, store, sess.ID, "hotel", "Hilton")

	analyzer := &fakeAnalyzer{reply: &ai.ChatReply{Reply: "It has a pool."}}
	c := openController(t, store, analyzer, sess.ID, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.ToggleEntity(ctx, hyatt.ID))
	_, err := c.Ask(ctx, "Does it have a pool?")
	require.NoError(t, err)

	req := analyzer.lastChat()
	require.NotNil(t, req.Context)
	require.Len(t, req.Context.Entities, 1)
	assert.Equal(t, "Hyatt", req.Context.Entities[0].Title)
	assert.Equal(t, "Hotels", req.Context.SessionName)

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{hyatt.ID}, snap.SelectedIDs())

	require.NoError(t, c.ClearSelection(ctx))
	_, err = c.Ask(ctx, "And the others?")
	require.NoError(t, err)
	assert.Len(t, analyzer.lastChat().Context.Entities, 2)

	assert.ErrorIs(t, c.ToggleEntity(ctx, "nope"), models.ErrNotFound)
}

func TestDeleteEntityPrunesSelection(t *testing.T) {
	store := newStore(t)
	sess := seedSession(t, store, "Hotels", "")
	hyatt := addEntity(t, store, sess.ID, "hotel", "Hyatt")
	c := openController(t, store, &fakeAnalyzer{}, sess.ID, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.ToggleEntity(ctx, hyatt.ID))
	require.NoError(t, c.DeleteEntity(ctx, hyatt.ID))

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Entities)
	assert.Empty(t, snap.Selected)

	all, err := store.ListEntities(ctx, sess.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAskPersistsTranscriptAndNote(t *testing.T) {
	store := newStore(t)
	sess := seedSession(t, store, "Hotels", "")
	analyzer := &fakeAnalyzer{reply: &ai.ChatReply{Reply: "You looked at the Hyatt."}}
	c := openController(t, store, analyzer, sess.ID, time.Hour)
	ctx := context.Background()

	outcome, err := c.Ask(ctx, "What hotels did I look at?")
	require.NoError(t, err)
	assert.False(t, outcome.Modified)
	require.NoError(t, c.Flush(ctx))

	stored, err := store.Store.FetchOrCreateNote(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "---\n\n**You asked:** What hotels did I look at?\n\n**AI:** You looked at the Hyatt.", stored.Content)

	msgs, err := store.ListMessages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)

	require.NoError(t, c.ClearChat(ctx))
	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Messages)
}

func TestAskFailureEmitsEvent(t *testing.T) {
	store := newStore(t)
	sess := seedSession(t, store, "Hotels", "keep")
	analyzer := &fakeAnalyzer{chatErr: errors.New("502")}
	c := openController(t, store, analyzer, sess.ID, time.Hour)

	_, err := c.Ask(context.Background(), "rewrite")
	require.Error(t, err)
	ev := waitFor(t, c, EventChatFailed)
	assert.EqualError(t, ev.Err, "502")

	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "keep", snap.Content)
	require.NotEmpty(t, snap.Messages)
	assert.True(t, snap.Messages[len(snap.Messages)-1].Failed)
}

func TestSaveAuthExpiry(t *testing.T) {
	store := newStore(t)
	sess := seedSession(t, store, "Hotels", "")
	store.noteErr = fmt.Errorf("PATCH note: %w", models.ErrAuthExpired)
	c := openController(t, store, &fakeAnalyzer{}, sess.ID, 10*time.Millisecond)

	require.NoError(t, c.Edit(context.Background(), "unsaved"))
	ev := waitFor(t, c, EventAuthExpired)
	assert.ErrorIs(t, ev.Err, models.ErrAuthExpired)

	err := c.Flush(context.Background())
	assert.ErrorIs(t, err, models.ErrAuthExpired)
}

func TestSummarizeSeedsEmptyNote(t *testing.T) {
	store := newStore(t)
	sess := seedSession(t, store, "Tokyo", "")
	addEntity(t, store, sess.ID, "hotel", "Hyatt")
	analyzer := &fakeAnalyzer{summary: &ai.Summary{
		CondensedSummary: "One hotel so far.",
		KeyHighlights:    []string{"Hyatt has a pool"},
		SuggestedTitle:   "Tokyo stay",
	}}
	c := openController(t, store, analyzer, sess.ID, time.Hour)
	ctx := context.Background()

	outcome, err := c.Summarize(ctx)
	require.NoError(t, err)

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "# Tokyo stay\n\nOne hotel so far.\n\n## Highlights\n\n- Hyatt has a pool", snap.Content)
	assert.Equal(t, snap.Content, outcome.Markdown)
	assert.Equal(t, 0, snap.Highlight.Start)
	assert.True(t, snap.Highlight.Active)
	assert.True(t, snap.Dirty)
}

func TestSummarizeStoresSummaryEntity(t *testing.T) {
	store := newStore(t)
	sess := seedSession(t, store, "Tokyo", "")
	addEntity(t, store, sess.ID, "hotel", "Hyatt")
	analyzer := &fakeAnalyzer{summary: &ai.Summary{
		CondensedSummary: "One hotel so far.",
		KeyHighlights:    []string{"Hyatt has a pool"},
		MergedEntities:   []ai.EntityDigest{{Type: "hotel", Title: "Hyatt"}},
		SuggestedTitle:   "Tokyo stay",
	}}
	c := openController(t, store, analyzer, sess.ID, time.Hour)
	ctx := context.Background()

	outcome, err := c.Summarize(ctx)
	require.NoError(t, err)
	require.NotNil(t, outcome.Entity)

	entities, err := store.ListEntities(ctx, sess.ID, false)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	var stored *models.ExtractedInfo
	for i := range entities {
		if entities[i].ID == outcome.Entity.ID {
			stored = &entities[i]
		}
	}
	require.NotNil(t, stored)
	assert.Equal(t, models.EntityTypeAISummary, stored.TypeName())
	assert.Empty(t, stored.ScreenshotIDs)
	assert.Equal(t, "Tokyo stay", stored.Title)
	assert.Equal(t, "One hotel so far.", stored.Attributes["summary"])
	assert.Equal(t, []any{"Hyatt has a pool"}, stored.Attributes["highlights"])
	assert.Equal(t, []any{"Hyatt"}, stored.Attributes["merged"])

	// The controller picked it up without an external reload.
	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Entities, 2)

	// A second summary is built from the captured entities only.
	_, err = c.Summarize(ctx)
	require.NoError(t, err)
	require.Len(t, analyzer.digests, 2)
	require.Len(t, analyzer.digests[1], 1)
	assert.Equal(t, "Hyatt", analyzer.digests[1][0].Title)
}

func TestSummarizeHeadingFallsBackToSessionName(t *testing.T) {
	store := newStore(t)
	sess := seedSession(t, store, "Tokyo", "Existing")
	addEntity(t, store, sess.ID, "hotel", "Hyatt")
	analyzer := &fakeAnalyzer{summary: &ai.Summary{CondensedSummary: "One hotel so far."}}
	c := openController(t, store, analyzer, sess.ID, time.Hour)
	ctx := context.Background()

	outcome, err := c.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "# Tokyo\n\nOne hotel so far.", outcome.Markdown)
	assert.Equal(t, "Tokyo", outcome.Entity.Title)

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Existing\n\n"+outcome.Markdown, snap.Content)
	assert.Equal(t, note.UTF16Len("Existing\n\n"), snap.Highlight.Start)
}

func TestSummarizeEmptyReplyWritesNothing(t *testing.T) {
	store := newStore(t)
	sess := seedSession(t, store, "Tokyo", "")
	addEntity(t, store, sess.ID, "hotel", "Hyatt")
	c := openController(t, store, &fakeAnalyzer{summary: ai.DefaultSummary()}, sess.ID, time.Hour)
	ctx := context.Background()

	outcome, err := c.Summarize(ctx)
	require.NoError(t, err)
	assert.Empty(t, outcome.Markdown)
	assert.Nil(t, outcome.Entity)

	entities, err := store.ListEntities(ctx, sess.ID, false)
	require.NoError(t, err)
	assert.Len(t, entities, 1)
}

func TestSummarizeWithoutEntities(t *testing.T) {
	store := newStore(t)
	sess := seedSession(t, store, "Empty", "")
	c := openController(t, store, &fakeAnalyzer{}, sess.ID, time.Hour)

	_, err := c.Summarize(context.Background())
	assert.ErrorIs(t, err, ErrNothingToSummarize)
}

func TestCloseFlushesPendingEdit(t *testing.T) {
	store := newStore(t)
	sess := seedSession(t, store, "Hotels", "")
	c, err := Open(context.Background(), sess.ID, Deps{Store: store, Analyzer: &fakeAnalyzer{}, AutosaveDelay: time.Hour})
	require.NoError(t, err)

	require.NoError(t, c.Edit(context.Background(), "last words"))
	require.NoError(t, c.Close(context.Background()))

	assert.Equal(t, []string{"last words"}, store.writes())
	_, open := <-c.Events()
	for open {
		_, open = <-c.Events()
	}
	assert.NoError(t, c.Close(context.Background()), "second close is a no-op")
}

const (
	testWait = 2 * time.Second
	testTick = 10 * time.Millisecond
)
