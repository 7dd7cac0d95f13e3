// Package session orchestrates one open capture session: it loads
// everything the session owns, keeps the note document in sync with
// storage, runs chat turns through the mediator, and reloads collections
// when the capture pipeline reports a change.
package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/balkashynov/relay/internal/ai"
	"github.com/balkashynov/relay/internal/models"
)

// Store is the entity store. Both the local database and the REST client
// implement it.
type Store interface {
	GetSession(ctx context.Context, id string) (*models.Session, error)
	UpdateSession(ctx context.Context, id string, req models.UpdateSessionRequest) (*models.Session, error)

	CreateScreenshot(ctx context.Context, shot *models.Screenshot) (*models.Screenshot, error)
	ListScreenshots(ctx context.Context, sessionID string) ([]models.Screenshot, error)
	UpdateScreenshot(ctx context.Context, id string, req models.UpdateScreenshotRequest) (*models.Screenshot, error)

	CreateEntity(ctx context.Context, entity *models.ExtractedInfo) (*models.ExtractedInfo, error)
	ListEntities(ctx context.Context, sessionID string, includeDeleted bool) ([]models.ExtractedInfo, error)
	SoftDeleteEntity(ctx context.Context, id string) error

	FetchOrCreateNote(ctx context.Context, sessionID string) (*models.SessionNote, error)
	UpdateNote(ctx context.Context, id, content string) (*models.SessionNote, error)

	AppendMessage(ctx context.Context, sessionID string, role models.ChatRole, content string) (*models.ChatMessage, error)
	ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	ClearMessages(ctx context.Context, sessionID string) error
}

// Analyzer is the analysis backend
type Analyzer interface {
	Analyze(ctx context.Context, image []byte) (*ai.Analysis, error)
	Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatReply, error)
	Summarize(ctx context.Context, req ai.SummaryRequest) (*ai.Summary, error)
}

// Deps are the collaborators a controller is built from
type Deps struct {
	Store    Store
	Analyzer Analyzer
	Log      *zap.Logger

	AutosaveDelay  time.Duration // zero means note.DefaultAutosaveDelay
	HighlightDwell time.Duration // zero means mediator.DefaultDwell
}
