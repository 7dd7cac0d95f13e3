package client

import (
	"context"
	"encoding/base64"
	"net/http"

	"go.uber.org/zap"

	"github.com/balkashynov/relay/internal/ai"
	"github.com/balkashynov/relay/internal/apitypes"
)

// Analyze sends a screenshot for OCR and entity extraction. Like the local
// service it hands back the default analysis alongside any error.
func (c *Client) Analyze(ctx context.Context, image []byte) (*ai.Analysis, error) {
	req := apitypes.AnalyzeRequest{Image: base64.StdEncoding.EncodeToString(image)}
	var result ai.Analysis
	if err := c.doJSON(ctx, http.MethodPost, "/api/analyze", req, &result); err != nil {
		c.log.Warn("analyze failed", zap.Error(err))
		return ai.DefaultAnalysis(), err
	}
	if result.Entities == nil {
		result.Entities = []ai.AnalyzedEntity{}
	}
	return &result, nil
}

// Chat runs one note-aware chat turn on the backend
func (c *Client) Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatReply, error) {
	var reply ai.ChatReply
	if err := c.doJSON(ctx, http.MethodPost, "/api/chat", req, &reply); err != nil {
		return nil, err
	}
	if !reply.NoteWasModified {
		reply.UpdatedNote = nil
	}
	return &reply, nil
}

// Summarize asks the backend for a session summary
func (c *Client) Summarize(ctx context.Context, req ai.SummaryRequest) (*ai.Summary, error) {
	result := ai.DefaultSummary()
	if err := c.doJSON(ctx, http.MethodPost, "/api/summarize", req, result); err != nil {
		return ai.DefaultSummary(), err
	}
	return result, nil
}
