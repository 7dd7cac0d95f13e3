package client

import (
	"context"
	"net/http"

	"github.com/balkashynov/relay/internal/apitypes"
	"github.com/balkashynov/relay/internal/models"
)

func (c *Client) ListSessions(ctx context.Context) ([]models.Session, error) {
	var resp apitypes.SessionsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/sessions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

func (c *Client) CreateSession(ctx context.Context, req models.CreateSessionRequest) (*models.Session, error) {
	var session models.Session
	if err := c.doJSON(ctx, http.MethodPost, "/v1/sessions", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := c.doJSON(ctx, http.MethodGet, "/v1/sessions/"+escape(id), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) UpdateSession(ctx context.Context, id string, req models.UpdateSessionRequest) (*models.Session, error) {
	var session models.Session
	if err := c.doJSON(ctx, http.MethodPatch, "/v1/sessions/"+escape(id), req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) RenameSession(ctx context.Context, id, name string) (*models.Session, error) {
	return c.UpdateSession(ctx, id, models.UpdateSessionRequest{Name: &name})
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/sessions/"+escape(id), nil, nil)
}

func (c *Client) CreateScreenshot(ctx context.Context, shot *models.Screenshot) (*models.Screenshot, error) {
	var created models.Screenshot
	path := "/v1/sessions/" + escape(shot.SessionID) + "/screenshots"
	if err := c.doJSON(ctx, http.MethodPost, path, apitypes.CreateScreenshotRequest{ImagePath: shot.ImagePath}, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) ListScreenshots(ctx context.Context, sessionID string) ([]models.Screenshot, error) {
	var resp apitypes.ScreenshotsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/sessions/"+escape(sessionID)+"/screenshots", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Screenshots, nil
}

func (c *Client) UpdateScreenshot(ctx context.Context, id string, req models.UpdateScreenshotRequest) (*models.Screenshot, error) {
	var shot models.Screenshot
	if err := c.doJSON(ctx, http.MethodPatch, "/v1/screenshots/"+escape(id), req, &shot); err != nil {
		return nil, err
	}
	return &shot, nil
}

func (c *Client) CreateEntity(ctx context.Context, entity *models.ExtractedInfo) (*models.ExtractedInfo, error) {
	req := models.CreateEntityRequest{
		ScreenshotIDs: entity.ScreenshotIDs,
		Type:          entity.Type,
		Title:         entity.Title,
		Attributes:    entity.Attributes,
	}
	var created models.ExtractedInfo
	path := "/v1/sessions/" + escape(entity.SessionID) + "/entities"
	if err := c.doJSON(ctx, http.MethodPost, path, req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) ListEntities(ctx context.Context, sessionID string, includeDeleted bool) ([]models.ExtractedInfo, error) {
	path := "/v1/sessions/" + escape(sessionID) + "/entities"
	if includeDeleted {
		path += "?include_deleted=1"
	}
	var resp apitypes.EntitiesResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entities, nil
}

func (c *Client) SoftDeleteEntity(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/entities/"+escape(id), nil, nil)
}

func (c *Client) FetchOrCreateNote(ctx context.Context, sessionID string) (*models.SessionNote, error) {
	var n models.SessionNote
	if err := c.doJSON(ctx, http.MethodGet, "/v1/sessions/"+escape(sessionID)+"/note", nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *Client) UpdateNote(ctx context.Context, id, content string) (*models.SessionNote, error) {
	var n models.SessionNote
	if err := c.doJSON(ctx, http.MethodPatch, "/v1/notes/"+escape(id), models.UpdateNoteRequest{Content: content}, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *Client) AppendMessage(ctx context.Context, sessionID string, role models.ChatRole, content string) (*models.ChatMessage, error) {
	var msg models.ChatMessage
	path := "/v1/sessions/" + escape(sessionID) + "/messages"
	if err := c.doJSON(ctx, http.MethodPost, path, models.AppendMessageRequest{Role: role, Content: content}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	var resp apitypes.MessagesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/sessions/"+escape(sessionID)+"/messages", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (c *Client) ClearMessages(ctx context.Context, sessionID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/sessions/"+escape(sessionID)+"/messages", nil, nil)
}
