package db

import (
	"context"
	"fmt"

	"github.com/balkashynov/relay/internal/models"
)

// AppendMessage adds one message to the chat log of a session
func (s *Store) AppendMessage(ctx context.Context, sessionID string, role models.ChatRole, content string) (*models.ChatMessage, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown chat role %q: %w", role, models.ErrInvalid)
	}
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	msg := models.ChatMessage{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages returns the chat log of a session, oldest first
func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// ClearMessages removes the whole chat log of a session. Individual
// messages are never edited or deleted.
func (s *Store) ClearMessages(ctx context.Context, sessionID string) error {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&models.ChatMessage{}).Error
}
