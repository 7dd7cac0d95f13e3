package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/relay/internal/ai"
	"github.com/balkashynov/relay/internal/api"
	"github.com/balkashynov/relay/internal/apitypes"
	"github.com/balkashynov/relay/internal/client"
	"github.com/balkashynov/relay/internal/db"
	"github.com/balkashynov/relay/internal/models"
	"github.com/balkashynov/relay/internal/session"
)

// Both implementations must keep satisfying the controller's interfaces.
var (
	_ session.Store    = (*client.Client)(nil)
	_ session.Analyzer = (*client.Client)(nil)
	_ session.Store    = (*db.Store)(nil)
	_ session.Analyzer = (*ai.Service)(nil)
)

type scriptedModel struct {
	response string
	err      error
}

func (m *scriptedModel) Complete(ctx context.Context, p ai.Prompt) (string, error) {
	return m.response, m.err
}

func newBackend(t *testing.T, model ai.Model, token string) string {
	t.Helper()

	store, err := db.Open(filepath.Join(t.TempDir(), "relay.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	srv := httptest.NewServer(api.New(store, ai.NewService(model, nil), token, nil).Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestStoreRoundTrip(t *testing.T) {
	url := newBackend(t, nil, "secret")
	c := client.New(url, "secret", 5*time.Second, nil)
	ctx := context.Background()

	sess, err := c.CreateSession(ctx, models.CreateSessionRequest{Name: "Tokyo"})
	require.NoError(t, err)

	shot, err := c.CreateScreenshot(ctx, &models.Screenshot{SessionID: sess.ID, ImagePath: "/tmp/a.png"})
	require.NoError(t, err)
	assert.Equal(t, 0, shot.Position)

	raw := "Park Hyatt"
	shot, err = c.UpdateScreenshot(ctx, shot.ID, models.UpdateScreenshotRequest{RawText: &raw})
	require.NoError(t, err)
	assert.True(t, shot.HasText())

	hotel := "hotel"
	entity, err := c.CreateEntity(ctx, &models.ExtractedInfo{
		SessionID:     sess.ID,
		ScreenshotIDs: []string{shot.ID},
		Type:          &hotel,
		Title:         "Park Hyatt",
		Attributes:    map[string]any{"rating": "4.8"},
	})
	require.NoError(t, err)
	assert.Equal(t, "4.8", entity.Attributes["rating"])

	n1, err := c.FetchOrCreateNote(ctx, sess.ID)
	require.NoError(t, err)
	n2, err := c.FetchOrCreateNote(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, n1.ID, n2.ID)

	saved, err := c.UpdateNote(ctx, n1.ID, "# Tokyo")
	require.NoError(t, err)
	assert.Equal(t, "# Tokyo", saved.Content)

	_, err = c.AppendMessage(ctx, sess.ID, models.RoleUser, "hi")
	require.NoError(t, err)
	msgs, err := c.ListMessages(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	require.NoError(t, c.ClearMessages(ctx, sess.ID))

	require.NoError(t, c.SoftDeleteEntity(ctx, entity.ID))
	live, err := c.ListEntities(ctx, sess.ID, false)
	require.NoError(t, err)
	assert.Empty(t, live)
	all, err := c.ListEntities(ctx, sess.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	renamed, err := c.RenameSession(ctx, sess.ID, "Tokyo trip")
	require.NoError(t, err)
	assert.Equal(t, "Tokyo trip", renamed.Name)

	sessions, err := c.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	require.NoError(t, c.DeleteSession(ctx, sess.ID))
	_, err = c.GetSession(ctx, sess.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAuthExpiryRoundTrip(t *testing.T) {
	url := newBackend(t, nil, "fresh")
	c := client.New(url, "stale", 5*time.Second, nil)

	_, err := c.ListSessions(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrAuthExpired)

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestAPIErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  *client.APIError
		want error
	}{
		{"expired code", &client.APIError{StatusCode: 401, Code: apitypes.CodeAuthExpired}, models.ErrAuthExpired},
		{"expired message", &client.APIError{StatusCode: 401, Message: "JWT expired"}, models.ErrAuthExpired},
		{"not found", &client.APIError{StatusCode: 404}, models.ErrNotFound},
		{"bad request", &client.APIError{StatusCode: 400}, models.ErrInvalid},
		{"plain 401", &client.APIError{StatusCode: 401, Message: "missing bearer token"}, nil},
		{"server error", &client.APIError{StatusCode: 500}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Unwrap(tt.err))
		})
	}
}

func TestAnalysisRoundTrip(t *testing.T) {
	url := newBackend(t, &scriptedModel{response: `{"reply":"You looked at the Hyatt.","updatedNote":"ignored","noteWasModified":false}`}, "")
	c := client.New(url, "", 5*time.Second, nil)
	ctx := context.Background()

	reply, err := c.Chat(ctx, ai.ChatRequest{SessionID: "s", Message: "What hotels did I look at?"})
	require.NoError(t, err)
	assert.Equal(t, "You looked at the Hyatt.", reply.Reply)
	assert.Nil(t, reply.UpdatedNote)

	// The same canned text is malformed for analyze, which falls back.
	analysis, err := c.Analyze(ctx, []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "other", analysis.Category)

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.True(t, health.ModelConfigured)
}

func TestChatFailureSurfaces(t *testing.T) {
	url := newBackend(t, &scriptedModel{err: errors.New("upstream down")}, "")
	c := client.New(url, "", 5*time.Second, nil)

	reply, err := c.Chat(context.Background(), ai.ChatRequest{SessionID: "s", Message: "hi"})
	assert.Nil(t, reply)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)

	summary, err := c.Summarize(context.Background(), ai.SummaryRequest{
		SessionID:   "s",
		SessionName: "Tokyo",
		Entities:    []ai.EntityDigest{{Title: "Hyatt"}},
	})
	require.NoError(t, err, "summarize fails closed on the server")
	assert.True(t, summary.Empty())
}

func TestTransportFailureFallsBack(t *testing.T) {
	c := client.New("http://127.0.0.1:1", "", time.Second, nil)

	analysis, err := c.Analyze(context.Background(), []byte("png"))
	require.Error(t, err)
	assert.Equal(t, ai.DefaultAnalysis(), analysis)
}
