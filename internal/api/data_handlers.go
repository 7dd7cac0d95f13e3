package api

import (
	"net/http"

	"github.com/balkashynov/relay/internal/apitypes"
	"github.com/balkashynov/relay/internal/models"
)

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListSessions(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	writeJSON(w, http.StatusOK, apitypes.SessionsResponse{Sessions: sessions})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	session, err := s.store.CreateSession(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	session, err := s.store.UpdateSession(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListScreenshots(w http.ResponseWriter, r *http.Request) {
	shots, err := s.store.ListScreenshots(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if shots == nil {
		shots = []models.Screenshot{}
	}
	writeJSON(w, http.StatusOK, apitypes.ScreenshotsResponse{Screenshots: shots})
}

func (s *Server) handleCreateScreenshot(w http.ResponseWriter, r *http.Request) {
	var req apitypes.CreateScreenshotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	shot, err := s.store.CreateScreenshot(r.Context(), &models.Screenshot{
		SessionID: r.PathValue("id"),
		ImagePath: req.ImagePath,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, shot)
}

func (s *Server) handleUpdateScreenshot(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateScreenshotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	shot, err := s.store.UpdateScreenshot(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shot)
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	includeDeleted := isTruthy(r.URL.Query().Get("include_deleted"))
	entities, err := s.store.ListEntities(r.Context(), r.PathValue("id"), includeDeleted)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entities == nil {
		entities = []models.ExtractedInfo{}
	}
	writeJSON(w, http.StatusOK, apitypes.EntitiesResponse{Entities: entities})
}

func (s *Server) handleCreateEntity(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEntityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	entity, err := s.store.CreateEntity(r.Context(), &models.ExtractedInfo{
		SessionID:     r.PathValue("id"),
		ScreenshotIDs: req.ScreenshotIDs,
		Type:          req.Type,
		Title:         req.Title,
		Attributes:    req.Attributes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entity)
}

func (s *Server) handleDeleteEntity(w http.ResponseWriter, r *http.Request) {
	if err := s.store.SoftDeleteEntity(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFetchNote(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.FetchOrCreateNote(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	n, err := s.store.UpdateNote(r.Context(), r.PathValue("id"), req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.store.ListMessages(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, apitypes.MessagesResponse{Messages: msgs})
}

func (s *Server) handleAppendMessage(w http.ResponseWriter, r *http.Request) {
	var req models.AppendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	msg, err := s.store.AppendMessage(r.Context(), r.PathValue("id"), req.Role, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearMessages(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func isTruthy(v string) bool {
	switch v {
	case "1", "true", "yes":
		return true
	}
	return false
}
