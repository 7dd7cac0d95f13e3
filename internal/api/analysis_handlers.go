package api

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/balkashynov/relay/internal/ai"
	"github.com/balkashynov/relay/internal/apitypes"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apitypes.HealthResponse{
		Status:          "ok",
		ModelConfigured: s.ai.Configured(),
	})
}

// handleAnalyze never fails on the model's account: the default analysis
// comes back instead so the capture pipeline can carry on
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req apitypes.AnalyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	image, err := decodeImage(req.Image)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.ai.Analyze(r.Context(), image)
	if err != nil {
		s.log.Warn("analyze fell back to default", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ai.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := s.ai.Chat(r.Context(), req)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, ai.ErrNotConfigured) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, "chat failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req ai.SummaryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	switch {
	case strings.TrimSpace(req.SessionID) == "":
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	case strings.TrimSpace(req.SessionName) == "":
		writeError(w, http.StatusBadRequest, "sessionName is required")
		return
	case req.Entities == nil:
		writeError(w, http.StatusBadRequest, "entities is required")
		return
	}

	result, err := s.ai.Summarize(r.Context(), req)
	if err != nil {
		s.log.Warn("summarize fell back to default", zap.String("session_id", req.SessionID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, result)
}

// decodeImage accepts raw base64 or a data URL
func decodeImage(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("image is required")
	}
	if strings.HasPrefix(s, "data:") {
		_, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, errors.New("malformed data URL")
		}
		s = payload
	}
	image, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.New("image is not valid base64")
	}
	return image, nil
}
