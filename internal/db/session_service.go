package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/balkashynov/relay/internal/models"
)

// CreateSession creates a new, empty session
func (s *Store) CreateSession(ctx context.Context, req models.CreateSessionRequest) (*models.Session, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = models.DefaultSessionName
	}

	session := models.Session{
		Owner:       req.Owner,
		Name:        name,
		Description: req.Description,
		Category:    req.Category,
	}

	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, err
	}

	s.log.Info("session created", zap.String("session_id", session.ID), zap.String("name", session.Name))
	return &session, nil
}

// GetSession retrieves a session by ID
func (s *Store) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := s.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "session", id)
	}
	return &session, nil
}

// ListSessions returns all sessions, most recently updated first
func (s *Store) ListSessions(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	if err := s.db.WithContext(ctx).Order("updated_at DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// UpdateSession renames a session or changes its description/category
func (s *Store) UpdateSession(ctx context.Context, id string, req models.UpdateSessionRequest) (*models.Session, error) {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("session name cannot be empty: %w", models.ErrInvalid)
		}
		session.Name = name
	}
	if req.Description != nil {
		session.Description = *req.Description
	}
	if req.Category != nil {
		session.Category = *req.Category
	}

	if err := s.db.WithContext(ctx).Save(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// RenameSession is a shorthand for UpdateSession with only a name
func (s *Store) RenameSession(ctx context.Context, id, name string) (*models.Session, error) {
	return s.UpdateSession(ctx, id, models.UpdateSessionRequest{Name: &name})
}

// DeleteSession removes a session and every row it owns. Entities are removed
// physically here: the session they were traceable to no longer exists.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.GetSession(ctx, id); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&models.Screenshot{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("session_id = ?", id).Delete(&models.ExtractedInfo{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", id).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", id).Delete(&models.SessionNote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Session{}, "id = ?", id).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}

	s.log.Info("session deleted", zap.String("session_id", id))
	return nil
}

// touchSession bumps the session's updated_at so recently worked-on
// sessions sort first
func touchSession(tx *gorm.DB, sessionID string) error {
	return tx.Model(&models.Session{}).Where("id = ?", sessionID).Update("updated_at", time.Now()).Error
}
