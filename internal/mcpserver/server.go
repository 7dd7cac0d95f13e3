// Package mcpserver exposes relay sessions to AI assistants as MCP tools
package mcpserver

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/balkashynov/relay/internal/models"
	"github.com/balkashynov/relay/internal/session"
)

// Backend is the store plus session listing
type Backend interface {
	session.Store
	ListSessions(ctx context.Context) ([]models.Session, error)
}

// Server wraps relay's store and analyzer as MCP tools
type Server struct {
	server   *gomcp.Server
	backend  Backend
	analyzer session.Analyzer
	deps     session.Deps
	log      *zap.Logger
}

// NewServer creates the MCP server. deps configures the controller that
// ask_note opens; its Store and Analyzer are overridden.
func NewServer(backend Backend, analyzer session.Analyzer, deps session.Deps, version string) *Server {
	if version == "" {
		version = "dev"
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	deps.Store = backend
	deps.Analyzer = analyzer
	deps.Log = log

	s := &Server{
		backend:  backend,
		analyzer: analyzer,
		deps:     deps,
		log:      log.Named("mcp"),
	}
	s.server = gomcp.NewServer(&gomcp.Implementation{Name: "relay", Version: version}, nil)
	s.registerTools()
	return s
}

// Run serves over stdio until the client disconnects or ctx ends
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying server, for tests and custom transports
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

type listSessionsInput struct{}

type sessionOutput struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Updated  string `json:"updated"`
}

type listSessionsOutput struct {
	Sessions []sessionOutput `json:"sessions"`
	Count    int             `json:"count"`
}

type sessionInput struct {
	SessionID string `json:"session_id" jsonschema:"the session ID"`
}

type noteOutput struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
	Updated   string `json:"updated"`
}

type listEntitiesInput struct {
	SessionID      string `json:"session_id" jsonschema:"the session ID"`
	IncludeDeleted bool   `json:"include_deleted,omitempty" jsonschema:"also return soft-deleted entities"`
}

type entityOutput struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Deleted    bool           `json:"deleted,omitempty"`
}

type listEntitiesOutput struct {
	Entities []entityOutput `json:"entities"`
	Count    int            `json:"count"`
}

type askNoteInput struct {
	SessionID string `json:"session_id" jsonschema:"the session ID"`
	Message   string `json:"message" jsonschema:"a question about the note or an instruction to edit it"`
}

type askNoteOutput struct {
	Reply           string `json:"reply"`
	NoteWasModified bool   `json:"note_was_modified"`
	Content         string `json:"content"`
}

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_sessions",
		Description: "List capture sessions, most recently updated first.",
	}, s.handleListSessions)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_note",
		Description: "Get the markdown note of a session.",
	}, s.handleGetNote)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_entities",
		Description: "List the entities extracted from a session's screenshots.",
	}, s.handleListEntities)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "ask_note",
		Description: "Ask a question about a session or instruct the assistant to edit its note. The note is saved before this returns.",
	}, s.handleAskNote)
}

func (s *Server) handleListSessions(ctx context.Context, _ *gomcp.CallToolRequest, _ listSessionsInput) (*gomcp.CallToolResult, listSessionsOutput, error) {
	sessions, err := s.backend.ListSessions(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("listing sessions: %s", err)), listSessionsOutput{}, nil
	}

	out := listSessionsOutput{Sessions: make([]sessionOutput, len(sessions)), Count: len(sessions)}
	for i, sess := range sessions {
		out.Sessions[i] = sessionOutput{
			ID:       sess.ID,
			Name:     sess.Name,
			Category: sess.Category,
			Updated:  sess.UpdatedAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

func (s *Server) handleGetNote(ctx context.Context, _ *gomcp.CallToolRequest, input sessionInput) (*gomcp.CallToolResult, noteOutput, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), noteOutput{}, nil
	}
	n, err := s.backend.FetchOrCreateNote(ctx, input.SessionID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting note for %s: %s", input.SessionID, err)), noteOutput{}, nil
	}
	return nil, noteOutput{
		SessionID: input.SessionID,
		Content:   n.Content,
		Updated:   n.UpdatedAt.Format(time.RFC3339),
	}, nil
}

func (s *Server) handleListEntities(ctx context.Context, _ *gomcp.CallToolRequest, input listEntitiesInput) (*gomcp.CallToolResult, listEntitiesOutput, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), listEntitiesOutput{}, nil
	}
	entities, err := s.backend.ListEntities(ctx, input.SessionID, input.IncludeDeleted)
	if err != nil {
		return errorResult(fmt.Sprintf("listing entities for %s: %s", input.SessionID, err)), listEntitiesOutput{}, nil
	}

	out := listEntitiesOutput{Entities: make([]entityOutput, len(entities)), Count: len(entities)}
	for i, e := range entities {
		out.Entities[i] = entityOutput{
			ID:         e.ID,
			Type:       e.TypeName(),
			Title:      e.Title,
			Attributes: e.Attributes,
			Deleted:    e.Deleted(),
		}
	}
	return nil, out, nil
}

// handleAskNote opens the session for the length of one turn and waits
// for the resulting note to be saved
func (s *Server) handleAskNote(ctx context.Context, _ *gomcp.CallToolRequest, input askNoteInput) (*gomcp.CallToolResult, askNoteOutput, error) {
	if input.SessionID == "" || input.Message == "" {
		return errorResult("session_id and message are required"), askNoteOutput{}, nil
	}

	ctrl, err := session.Open(ctx, input.SessionID, s.deps)
	if err != nil {
		return errorResult(err.Error()), askNoteOutput{}, nil
	}
	defer func() {
		if err := ctrl.Close(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("closing session after ask_note", zap.Error(err))
		}
	}()
	go drain(ctrl.Events())

	outcome, err := ctrl.Ask(ctx, input.Message)
	if err != nil {
		return errorResult(fmt.Sprintf("chat failed: %s", err)), askNoteOutput{}, nil
	}
	if err := ctrl.Flush(ctx); err != nil {
		return errorResult(fmt.Sprintf("saving note: %s", err)), askNoteOutput{}, nil
	}

	snap, err := ctrl.Snapshot(ctx)
	if err != nil {
		return errorResult(err.Error()), askNoteOutput{}, nil
	}
	return nil, askNoteOutput{
		Reply:           outcome.Reply,
		NoteWasModified: outcome.Modified,
		Content:         snap.Content,
	}, nil
}

func drain(events <-chan session.Event) {
	for range events {
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
