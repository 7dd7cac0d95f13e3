package tui

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/relay/internal/ai"
	"github.com/balkashynov/relay/internal/db"
	"github.com/balkashynov/relay/internal/models"
	"github.com/balkashynov/relay/internal/session"
)

func openStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "relay.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestListModelFilterAndOpen(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	for _, name := range []string{"Tokyo trip", "Headphones", "Tokyo hotels"} {
		_, err := store.CreateSession(ctx, models.CreateSessionRequest{Name: name})
		require.NoError(t, err)
	}

	var m tea.Model = NewListModel(ctx, store)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = m.Update(m.(ListModel).loadSessions())
	require.Len(t, m.(ListModel).filtered, 3)

	m, _ = m.Update(key("/"))
	for _, r := range "tokyo" {
		m, _ = m.Update(key(string(r)))
	}
	m, _ = m.Update(key("enter"))
	assert.Len(t, m.(ListModel).filtered, 2)

	m, _ = m.Update(key("down"))
	m, cmd := m.Update(key("enter"))
	require.NotNil(t, cmd)

	action, id := m.(ListModel).Action()
	assert.Equal(t, ListOpen, action)
	s, err := store.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, s.Name, "Tokyo")
	assert.Contains(t, m.View(), "Sessions")
}

func TestListModelDeleteNeedsConfirmation(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	_, err := store.CreateSession(ctx, models.CreateSessionRequest{Name: "Doomed"})
	require.NoError(t, err)

	var m tea.Model = NewListModel(ctx, store)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = m.Update(m.(ListModel).loadSessions())

	// Anything but y keeps the session
	m, _ = m.Update(key("d"))
	m, cmd := m.Update(key("n"))
	assert.Nil(t, cmd)

	m, _ = m.Update(key("d"))
	m, cmd = m.Update(key("y"))
	require.NotNil(t, cmd)
	m, cmd = m.Update(cmd())
	require.NotNil(t, cmd)
	m, _ = m.Update(cmd())

	assert.Empty(t, m.(ListModel).sessions)
	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestAddSessionParsesInlineCategory(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	var m tea.Model = NewAddSessionModel(ctx, store, "Noise cancelling @shopping")
	m, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	m, _ = m.Update(key("enter")) // name
	assert.Equal(t, StepCategory, m.(AddSessionModel).currentStep)
	assert.Equal(t, "shopping", m.(AddSessionModel).value(StepCategory))

	m, _ = m.Update(key("enter")) // category
	m, _ = m.Update(key("enter")) // description
	m, cmd := m.Update(key("enter"))
	require.NotNil(t, cmd)
	m, _ = m.Update(cmd())

	created := m.(AddSessionModel).Created()
	require.NotNil(t, created)
	assert.Equal(t, "Noise cancelling", created.Name)
	assert.Equal(t, "shopping", created.Category)
}

func TestAddSessionRejectsUnknownCategory(t *testing.T) {
	var m tea.Model = NewAddSessionModel(context.Background(), openStore(t), "Jobs @careers")
	m, _ = m.Update(key("enter"))

	am := m.(AddSessionModel)
	assert.Equal(t, StepName, am.currentStep)
	assert.Contains(t, am.validationErr, "Unknown category")
}

type replyAnalyzer struct {
	reply *ai.ChatReply
}

func (a replyAnalyzer) Analyze(ctx context.Context, image []byte) (*ai.Analysis, error) {
	return ai.DefaultAnalysis(), errors.New("unused")
}

func (a replyAnalyzer) Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatReply, error) {
	return a.reply, nil
}

func (a replyAnalyzer) Summarize(ctx context.Context, req ai.SummaryRequest) (*ai.Summary, error) {
	return ai.DefaultSummary(), errors.New("unused")
}

func TestSessionModelAskHighlightsReply(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	sess, err := store.CreateSession(ctx, models.CreateSessionRequest{Name: "Greetings"})
	require.NoError(t, err)

	ctrl, err := session.Open(ctx, sess.ID, session.Deps{
		Store:          store,
		Analyzer:       replyAnalyzer{reply: &ai.ChatReply{Reply: "Hi there"}},
		AutosaveDelay:  time.Hour,
		HighlightDwell: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctrl.Close(context.Background()) })

	var m tea.Model = NewSessionModel(ctx, ctrl)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	m, _ = m.Update(m.(SessionModel).refresh())

	// Focus the chat pane
	m, _ = m.Update(key("tab"))
	m, _ = m.Update(key("tab"))
	for _, r := range "hello" {
		m, _ = m.Update(key(string(r)))
	}
	m, cmd := m.Update(key("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, "Thinking", m.(SessionModel).busy)

	m, cmd = m.Update(cmd())
	m, _ = m.Update(cmd())

	sm := m.(SessionModel)
	assert.Empty(t, sm.busy)
	assert.True(t, sm.snap.Highlight.Active)
	assert.Equal(t, 0, sm.snap.Highlight.Start)
	assert.Equal(t, "---\n\n**You asked:** hello\n\n**AI:** Hi there", sm.snap.Content)
	require.Len(t, sm.snap.Messages, 2)
	assert.Contains(t, sm.View(), "Hi there")
}

func TestSessionModelEditReachesController(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	sess, err := store.CreateSession(ctx, models.CreateSessionRequest{Name: "Drafts"})
	require.NoError(t, err)

	ctrl, err := session.Open(ctx, sess.ID, session.Deps{
		Store:         store,
		Analyzer:      replyAnalyzer{},
		AutosaveDelay: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctrl.Close(context.Background()) })

	var m tea.Model = NewSessionModel(ctx, ctrl)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	m, _ = m.Update(m.(SessionModel).refresh())

	m, _ = m.Update(key("tab")) // note pane
	m, _ = m.Update(key("e"))
	require.True(t, m.(SessionModel).editing)
	for _, r := range "abc" {
		m, _ = m.Update(key(string(r)))
	}

	snap, err := ctrl.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", snap.Content)
	assert.True(t, snap.Dirty)

	require.NoError(t, ctrl.Flush(ctx))
	n, err := store.FetchOrCreateNote(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "abc", n.Content)
}

func TestSessionModelShowsSelectionScope(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	sess, err := store.CreateSession(ctx, models.CreateSessionRequest{Name: "Hotels"})
	require.NoError(t, err)
	for _, title := range []string{"Hyatt", "Hilton"} {
		_, err := store.CreateEntity(ctx, &models.ExtractedInfo{SessionID: sess.ID, Title: title})
		require.NoError(t, err)
	}

	ctrl, err := session.Open(ctx, sess.ID, session.Deps{
		Store:         store,
		Analyzer:      replyAnalyzer{},
		AutosaveDelay: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctrl.Close(context.Background()) })

	var m tea.Model = NewSessionModel(ctx, ctrl)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	m, _ = m.Update(m.(SessionModel).refresh())
	assert.NotContains(t, m.View(), "Chat scoped")

	first := m.(SessionModel).snap.Entities[0].Title
	m, cmd := m.Update(key(" "))
	require.NotNil(t, cmd)
	m, cmd = m.Update(cmd())
	m, _ = m.Update(cmd())

	sm := m.(SessionModel)
	require.Len(t, sm.snap.SelectedIDs(), 1)
	assert.Contains(t, sm.View(), "Chat scoped to 1 selected: "+first)
}
