// Package apitypes holds the JSON bodies exchanged between the relay backend
// and its clients.
package apitypes

import (
	"github.com/balkashynov/relay/internal/models"
)

// CodeAuthExpired is the error code the backend sends with a 401 for a bad
// or expired token
const CodeAuthExpired = "auth_expired"

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type HealthResponse struct {
	Status          string `json:"status"`
	ModelConfigured bool   `json:"modelConfigured"`
}

type SessionsResponse struct {
	Sessions []models.Session `json:"sessions"`
}

type ScreenshotsResponse struct {
	Screenshots []models.Screenshot `json:"screenshots"`
}

type EntitiesResponse struct {
	Entities []models.ExtractedInfo `json:"entities"`
}

type MessagesResponse struct {
	Messages []models.ChatMessage `json:"messages"`
}

// CreateScreenshotRequest registers a captured image with a session
type CreateScreenshotRequest struct {
	ImagePath string `json:"image_path"`
}

// AnalyzeRequest carries a base64 image or data URL
type AnalyzeRequest struct {
	Image string `json:"image"`
}
