package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/relay/internal/models"
)

// openTestStore opens a fresh store in a temp directory
func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "relay.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newSession(t *testing.T, store *Store, name string) *models.Session {
	t.Helper()

	session, err := store.CreateSession(context.Background(), models.CreateSessionRequest{Name: name})
	require.NoError(t, err)
	return session
}

func strPtr(s string) *string { return &s }

func TestCreateSessionDefaultsName(t *testing.T) {
	store := openTestStore(t)

	session := newSession(t, store, "   ")
	assert.Equal(t, models.DefaultSessionName, session.Name)
	assert.NotEmpty(t, session.ID)
}

func TestRenameSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	session := newSession(t, store, "Tokyo")

	renamed, err := store.RenameSession(ctx, session.ID, "Tokyo trip")
	require.NoError(t, err)
	assert.Equal(t, "Tokyo trip", renamed.Name)

	_, err = store.RenameSession(ctx, session.ID, "")
	assert.ErrorIs(t, err, models.ErrInvalid)

	_, err = store.RenameSession(ctx, "missing", "x")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFetchOrCreateNoteIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	session := newSession(t, store, "Hotels")

	first, err := store.FetchOrCreateNote(ctx, session.ID)
	require.NoError(t, err)
	second, err := store.FetchOrCreateNote(ctx, session.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, "", first.Content)
}

func TestFetchOrCreateNoteUnknownSession(t *testing.T) {
	store := openTestStore(t)

	_, err := store.FetchOrCreateNote(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateNoteReturnsPersistedRow(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	session := newSession(t, store, "Hotels")

	note, err := store.FetchOrCreateNote(ctx, session.ID)
	require.NoError(t, err)

	saved, err := store.UpdateNote(ctx, note.ID, "# Hotels\n\nHyatt")
	require.NoError(t, err)
	assert.Equal(t, "# Hotels\n\nHyatt", saved.Content)
	assert.False(t, saved.UpdatedAt.Before(note.UpdatedAt))

	again, err := store.FetchOrCreateNote(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, note.ID, again.ID)
	assert.Equal(t, "# Hotels\n\nHyatt", again.Content)

	_, err = store.UpdateNote(ctx, "missing", "x")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestScreenshotPositionsAndTextUpdate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	session := newSession(t, store, "Shopping")

	first, err := store.CreateScreenshot(ctx, &models.Screenshot{SessionID: session.ID, ImagePath: "a.png"})
	require.NoError(t, err)
	second, err := store.CreateScreenshot(ctx, &models.Screenshot{SessionID: session.ID, ImagePath: "b.png"})
	require.NoError(t, err)

	assert.Equal(t, 0, first.Position)
	assert.Equal(t, 1, second.Position)
	assert.False(t, first.HasText())

	updated, err := store.UpdateScreenshot(ctx, first.ID, models.UpdateScreenshotRequest{
		RawText: strPtr("Sony WH-1000XM5 $348"),
		Summary: strPtr("A screenshot of a headphone listing."),
	})
	require.NoError(t, err)
	assert.True(t, updated.HasText())

	shots, err := store.ListScreenshots(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, shots, 2)
	assert.Equal(t, "a.png", shots[0].ImagePath)
	require.NotNil(t, shots[0].RawText)
	assert.Equal(t, "Sony WH-1000XM5 $348", *shots[0].RawText)
	assert.Equal(t, "A screenshot of a headphone listing.", shots[0].Summary)
}

func TestSoftDeleteEntity(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	session := newSession(t, store, "Hotels")

	hotel := "hotel"
	kept, err := store.CreateEntity(ctx, &models.ExtractedInfo{
		SessionID:     session.ID,
		ScreenshotIDs: []string{"s1"},
		Type:          &hotel,
		Title:         "Hyatt",
		Attributes:    map[string]any{"price": "$220", "amenities": []any{"pool", "gym"}},
	})
	require.NoError(t, err)
	dropped, err := store.CreateEntity(ctx, &models.ExtractedInfo{SessionID: session.ID, Title: "Hilton"})
	require.NoError(t, err)

	require.NoError(t, store.SoftDeleteEntity(ctx, dropped.ID))

	live, err := store.ListEntities(ctx, session.ID, false)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, kept.ID, live[0].ID)
	assert.Equal(t, "$220", live[0].Attributes["price"])
	assert.Equal(t, []string{"s1"}, []string(live[0].ScreenshotIDs))

	all, err := store.ListEntities(ctx, session.ID, true)
	require.NoError(t, err)
	require.Len(t, all, 2)

	seen := map[string]int{}
	for _, e := range all {
		seen[e.ID]++
		if e.ID == dropped.ID {
			assert.True(t, e.Deleted())
		}
	}
	assert.Equal(t, 1, seen[dropped.ID])
	assert.Equal(t, 1, seen[kept.ID])

	// Deleting twice is reported as not found rather than flipping anything.
	err = store.SoftDeleteEntity(ctx, dropped.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestChatLogAppendOnly(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	session := newSession(t, store, "Jobs")

	_, err := store.AppendMessage(ctx, session.ID, models.RoleUser, "Which roles are remote?")
	require.NoError(t, err)
	_, err = store.AppendMessage(ctx, session.ID, models.RoleAssistant, "Two of them.")
	require.NoError(t, err)

	_, err = store.AppendMessage(ctx, session.ID, models.ChatRole("system"), "nope")
	assert.ErrorIs(t, err, models.ErrInvalid)

	msgs, err := store.ListMessages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)

	require.NoError(t, store.ClearMessages(ctx, session.ID))
	msgs, err = store.ListMessages(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestDeleteSessionCascades(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	session := newSession(t, store, "Doomed")
	other := newSession(t, store, "Survivor")

	_, err := store.CreateScreenshot(ctx, &models.Screenshot{SessionID: session.ID})
	require.NoError(t, err)
	entity, err := store.CreateEntity(ctx, &models.ExtractedInfo{SessionID: session.ID, Title: "x"})
	require.NoError(t, err)
	require.NoError(t, store.SoftDeleteEntity(ctx, entity.ID))
	_, err = store.CreateEntity(ctx, &models.ExtractedInfo{SessionID: session.ID, Title: "y"})
	require.NoError(t, err)
	_, err = store.AppendMessage(ctx, session.ID, models.RoleUser, "hi")
	require.NoError(t, err)
	_, err = store.FetchOrCreateNote(ctx, session.ID)
	require.NoError(t, err)
	otherNote, err := store.FetchOrCreateNote(ctx, other.ID)
	require.NoError(t, err)

	require.NoError(t, store.DeleteSession(ctx, session.ID))

	_, err = store.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	shots, err := store.ListScreenshots(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, shots)
	entities, err := store.ListEntities(ctx, session.ID, true)
	require.NoError(t, err)
	assert.Empty(t, entities)
	msgs, err := store.ListMessages(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// Unrelated sessions are untouched.
	note, err := store.FetchOrCreateNote(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, otherNote.ID, note.ID)

	assert.ErrorIs(t, store.DeleteSession(ctx, session.ID), models.ErrNotFound)
}

func TestListSessionsMostRecentFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	older := newSession(t, store, "Older")
	newer := newSession(t, store, "Newer")

	// Writing a note bumps the session to the top.
	note, err := store.FetchOrCreateNote(ctx, older.ID)
	require.NoError(t, err)
	_, err = store.UpdateNote(ctx, note.ID, "touched")
	require.NoError(t, err)

	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, older.ID, sessions[0].ID)
	assert.Equal(t, newer.ID, sessions[1].ID)
}
