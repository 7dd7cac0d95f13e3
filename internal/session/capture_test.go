package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/relay/internal/ai"
	"github.com/balkashynov/relay/internal/models"
)

type changeLog struct {
	mu      sync.Mutex
	changes []Change
}

func (l *changeLog) Notify(c Change) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, c)
}

func (l *changeLog) kinds() []ChangeKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	var kinds []ChangeKind
	for _, c := range l.changes {
		kinds = append(kinds, c.Kind)
	}
	return kinds
}

func title(s string) *string { return &s }

func TestCaptureStoresEverything(t *testing.T) {
	store := newStore(t)
	sess := seedSession(t, store, models.DefaultSessionName, "")
	analyzer := &fakeAnalyzer{analysis: &ai.Analysis{
		RawText:  "Park Hyatt Tokyo $450",
		Summary:  "A screenshot of a hotel listing.",
		Category: "trip-planning",
		Entities: []ai.AnalyzedEntity{
			{Type: "hotel", Title: "Park Hyatt Tokyo", Attributes: map[string]any{"price": "$450"}},
			{Type: "", Title: "Shinjuku"},
		},
		SuggestedNotebookTitle: title("Tokyo hotels"),
	}}
	changes := &changeLog{}
	capturer := NewCapturer(store, analyzer, changes, nil)
	ctx := context.Background()

	shot, err := capturer.Capture(ctx, sess.ID, []byte("png"), "/tmp/a.png")
	require.NoError(t, err)
	require.True(t, shot.HasText())
	assert.Equal(t, "A screenshot of a hotel listing.", shot.Summary)

	entities, err := store.ListEntities(ctx, sess.ID, false)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, []string{shot.ID}, []string(entities[0].ScreenshotIDs))
	assert.Equal(t, "hotel", entities[0].TypeName())
	assert.Nil(t, entities[1].Type)

	renamed, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tokyo hotels", renamed.Name)
	assert.Equal(t, "trip-planning", renamed.Category)

	assert.Equal(t, []ChangeKind{ScreenshotCaptured, EntitiesChanged}, changes.kinds())
}

func TestCaptureKeepsScreenshotWhenAnalysisFails(t *testing.T) {
	store := newStore(t)
	sess := seedSession(t, store, "Shopping", "")
	changes := &changeLog{}
	capturer := NewCapturer(store, &fakeAnalyzer{analyErr: errors.New("model timeout")}, changes, nil)
	ctx := context.Background()

	shot, err := capturer.Capture(ctx, sess.ID, []byte("png"), "/tmp/b.png")
	require.Error(t, err)
	require.NotNil(t, shot)
	assert.False(t, shot.HasText())

	shots, err := store.ListScreenshots(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, shots, 1)
	assert.Equal(t, shot.ID, shots[0].ID)

	assert.Equal(t, []ChangeKind{ScreenshotCaptured}, changes.kinds())
}

func TestCaptureKeepsPartialEntities(t *testing.T) {
	store := newStore(t)
	store.entityErrOn = "Broken"
	sess := seedSession(t, store, "Jobs", "")
	analyzer := &fakeAnalyzer{analysis: &ai.Analysis{
		Category: "job-search",
		Entities: []ai.AnalyzedEntity{
			{Type: "job", Title: "Go engineer"},
			{Type: "job", Title: "Broken"},
			{Type: "job", Title: "SRE"},
		},
	}}
	capturer := NewCapturer(store, analyzer, nil, nil)
	ctx := context.Background()

	_, err := capturer.Capture(ctx, sess.ID, []byte("png"), "/tmp/c.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Broken")

	entities, err := store.ListEntities(ctx, sess.ID, false)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "Go engineer", entities[0].Title)
	assert.Equal(t, "SRE", entities[1].Title)

	// A named session keeps its name.
	got, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jobs", got.Name)
	assert.Equal(t, "job-search", got.Category)
}

func TestCaptureFeedsOpenController(t *testing.T) {
	store := newStore(t)
	sess := seedSession(t, store, "Hotels", "my notes")
	analyzer := &fakeAnalyzer{analysis: &ai.Analysis{
		RawText:  "Hilton",
		Category: "trip-planning",
		Entities: []ai.AnalyzedEntity{{Type: "hotel", Title: "Hilton"}},
	}}
	c := openController(t, store, analyzer, sess.ID, 0)
	capturer := NewCapturer(store, analyzer, c, nil)

	_, err := capturer.Capture(context.Background(), sess.ID, []byte("png"), "/tmp/d.png")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		snap, err := c.Snapshot(context.Background())
		return err == nil && len(snap.Entities) == 1 && len(snap.Screenshots) == 1
	}, testWait, testTick)

	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "my notes", snap.Content)
	assert.False(t, snap.Dirty)
}
