package db

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/balkashynov/relay/internal/models"
)

// FetchOrCreateNote returns the note of a session, creating an empty one on
// first access. Calling it repeatedly returns the same row.
func (s *Store) FetchOrCreateNote(ctx context.Context, sessionID string) (*models.SessionNote, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	var note models.SessionNote
	err := s.db.WithContext(ctx).
		Where(models.SessionNote{SessionID: sessionID}).
		FirstOrCreate(&note).Error
	if err != nil {
		// Another writer may have created it between our read and insert;
		// the unique index on session_id makes the second insert fail.
		var existing models.SessionNote
		if readErr := s.db.WithContext(ctx).First(&existing, "session_id = ?", sessionID).Error; readErr == nil {
			return &existing, nil
		}
		return nil, err
	}
	return &note, nil
}

// UpdateNote overwrites the note content (last write wins) and returns the
// persisted row with its new updated_at
func (s *Store) UpdateNote(ctx context.Context, id, content string) (*models.SessionNote, error) {
	var note models.SessionNote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&note, "id = ?", id).Error; err != nil {
			return err
		}
		note.Content = content
		if err := tx.Save(&note).Error; err != nil {
			return err
		}
		return touchSession(tx, note.SessionID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(err, "note", id)
		}
		return nil, err
	}

	s.log.Debug("note saved", zap.String("note_id", id), zap.Int("bytes", len(content)))
	return &note, nil
}
