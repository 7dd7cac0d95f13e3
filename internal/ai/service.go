package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/balkashynov/relay/internal/parser"
)

// Service implements analyze, chat and summarize on top of a Model.
// Every operation fails closed: a model or parse error never panics the
// caller, and analyze/summarize hand back a safe default alongside the error.
type Service struct {
	model Model
	log   *zap.Logger
}

// NewService wraps a model. model may be nil, in which case every call
// fails with ErrNotConfigured.
func NewService(model Model, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{model: model, log: log.Named("ai")}
}

// Configured reports whether a model is available
func (s *Service) Configured() bool {
	return s.model != nil
}

// Analyze runs OCR and entity extraction on one screenshot
func (s *Service) Analyze(ctx context.Context, image []byte) (*Analysis, error) {
	if len(image) == 0 {
		return DefaultAnalysis(), errors.New("empty image")
	}
	if s.model == nil {
		return DefaultAnalysis(), ErrNotConfigured
	}

	text, err := s.model.Complete(ctx, Prompt{System: systemPrompt, User: analyzePrompt, Image: image})
	if err != nil {
		s.log.Warn("analysis failed", zap.Error(err))
		return DefaultAnalysis(), err
	}

	var result Analysis
	if err := parser.DecodeModelJSON(text, &result); err != nil {
		s.log.Warn("analysis returned malformed output",
			zap.Error(err),
			zap.String("raw_response", parser.Truncate(text, 100)))
		return DefaultAnalysis(), err
	}

	normalizeAnalysis(&result)
	s.log.Debug("analysis complete",
		zap.String("category", result.Category),
		zap.Int("entities", len(result.Entities)))
	return &result, nil
}

// normalizeAnalysis fills in what a sloppy model left out
func normalizeAnalysis(a *Analysis) {
	a.Category = strings.TrimSpace(strings.ToLower(a.Category))
	known := false
	for _, c := range Categories {
		if a.Category == c {
			known = true
			break
		}
	}
	if !known {
		a.Category = "other"
	}
	if a.Entities == nil {
		a.Entities = []AnalyzedEntity{}
	}
	for i := range a.Entities {
		if a.Entities[i].Attributes == nil {
			a.Entities[i].Attributes = map[string]any{}
		}
		if strings.TrimSpace(a.Entities[i].Type) == "" {
			a.Entities[i].Type = "other"
		}
	}
	if a.SuggestedNotebookTitle != nil && strings.TrimSpace(*a.SuggestedNotebookTitle) == "" {
		a.SuggestedNotebookTitle = nil
	}
}

// chatEnvelope lets us tell a missing "reply" apart from an empty one
type chatEnvelope struct {
	Reply           *string `json:"reply"`
	UpdatedNote     *string `json:"updatedNote"`
	NoteWasModified bool    `json:"noteWasModified"`
}

// Chat runs one note-aware chat turn. Unlike analyze and summarize there is
// no safe default: a failed turn is returned as an error so the caller can
// leave the note untouched.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, errors.New("empty chat message")
	}
	if s.model == nil {
		return nil, ErrNotConfigured
	}

	text, err := s.model.Complete(ctx, Prompt{System: systemPrompt, User: buildChatPrompt(req)})
	if err != nil {
		s.log.Warn("chat failed", zap.String("session_id", req.SessionID), zap.Error(err))
		return nil, err
	}

	var env chatEnvelope
	if err := parser.DecodeModelJSON(text, &env); err != nil {
		s.log.Warn("chat returned malformed output",
			zap.String("session_id", req.SessionID),
			zap.Error(err),
			zap.String("raw_response", parser.Truncate(text, 100)))
		return nil, err
	}
	if env.Reply == nil {
		return nil, fmt.Errorf("chat response missing %q: %w", "reply", parser.ErrNoJSON)
	}

	reply := &ChatReply{
		Reply:           *env.Reply,
		NoteWasModified: env.NoteWasModified,
	}
	if env.NoteWasModified {
		reply.UpdatedNote = env.UpdatedNote
	}
	return reply, nil
}

// Summarize condenses a session's entities into a summary
func (s *Service) Summarize(ctx context.Context, req SummaryRequest) (*Summary, error) {
	if s.model == nil {
		return DefaultSummary(), ErrNotConfigured
	}

	text, err := s.model.Complete(ctx, Prompt{System: systemPrompt, User: buildSummarizePrompt(req)})
	if err != nil {
		s.log.Warn("summary failed", zap.String("session_id", req.SessionID), zap.Error(err))
		return DefaultSummary(), err
	}

	result := DefaultSummary()
	if err := parser.DecodeModelJSON(text, result); err != nil {
		s.log.Warn("summary returned malformed output",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		return DefaultSummary(), err
	}
	return result, nil
}
