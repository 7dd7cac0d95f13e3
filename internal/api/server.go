// Package api is the relay backend: analysis endpoints wrapping the model
// and a REST surface over the session store.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/balkashynov/relay/internal/ai"
	"github.com/balkashynov/relay/internal/db"
)

// Server serves the backend API
type Server struct {
	store *db.Store
	ai    *ai.Service
	token string
	log   *zap.Logger
}

// New creates a server. An empty token disables auth.
func New(store *db.Store, svc *ai.Service, token string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{store: store, ai: svc, token: token, log: log.Named("api")}
}

// Handler returns the routed, logged and authenticated handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.Handle("POST /api/analyze", s.auth(http.HandlerFunc(s.handleAnalyze)))
	mux.Handle("POST /api/chat", s.auth(http.HandlerFunc(s.handleChat)))
	mux.Handle("POST /api/summarize", s.auth(http.HandlerFunc(s.handleSummarize)))

	data := http.NewServeMux()
	data.HandleFunc("GET /v1/sessions", s.handleListSessions)
	data.HandleFunc("POST /v1/sessions", s.handleCreateSession)
	data.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	data.HandleFunc("PATCH /v1/sessions/{id}", s.handleUpdateSession)
	data.HandleFunc("DELETE /v1/sessions/{id}", s.handleDeleteSession)

	data.HandleFunc("GET /v1/sessions/{id}/screenshots", s.handleListScreenshots)
	data.HandleFunc("POST /v1/sessions/{id}/screenshots", s.handleCreateScreenshot)
	data.HandleFunc("PATCH /v1/screenshots/{id}", s.handleUpdateScreenshot)

	data.HandleFunc("GET /v1/sessions/{id}/entities", s.handleListEntities)
	data.HandleFunc("POST /v1/sessions/{id}/entities", s.handleCreateEntity)
	data.HandleFunc("DELETE /v1/entities/{id}", s.handleDeleteEntity)

	data.HandleFunc("GET /v1/sessions/{id}/note", s.handleFetchNote)
	data.HandleFunc("PATCH /v1/notes/{id}", s.handleUpdateNote)

	data.HandleFunc("GET /v1/sessions/{id}/messages", s.handleListMessages)
	data.HandleFunc("POST /v1/sessions/{id}/messages", s.handleAppendMessage)
	data.HandleFunc("DELETE /v1/sessions/{id}/messages", s.handleClearMessages)

	mux.Handle("/v1/", s.auth(data))

	return LoggingMiddleware(s.log, mux)
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr), zap.Bool("model_configured", s.ai.Configured()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
