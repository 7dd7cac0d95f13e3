package db

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/balkashynov/relay/internal/models"
)

// CreateEntity stores one extracted entity. Each call is its own row and its
// own transaction; callers extracting several entities from one screenshot
// get partial success rather than all-or-nothing.
func (s *Store) CreateEntity(ctx context.Context, entity *models.ExtractedInfo) (*models.ExtractedInfo, error) {
	if entity == nil || entity.SessionID == "" {
		return nil, fmt.Errorf("entity needs a session: %w", models.ErrInvalid)
	}
	if _, err := s.GetSession(ctx, entity.SessionID); err != nil {
		return nil, err
	}

	created := *entity
	created.DeletedAt = gorm.DeletedAt{}
	if created.ScreenshotIDs == nil {
		created.ScreenshotIDs = []string{}
	}
	if created.Attributes == nil {
		created.Attributes = map[string]any{}
	}

	if err := s.db.WithContext(ctx).Create(&created).Error; err != nil {
		return nil, err
	}

	s.log.Debug("entity stored",
		zap.String("session_id", created.SessionID),
		zap.String("entity_id", created.ID),
		zap.String("type", created.TypeName()))
	return &created, nil
}

// ListEntities returns the entities of a session in creation order.
// Soft-deleted rows are only included when includeDeleted is set.
func (s *Store) ListEntities(ctx context.Context, sessionID string, includeDeleted bool) ([]models.ExtractedInfo, error) {
	q := s.db.WithContext(ctx)
	if includeDeleted {
		q = q.Unscoped()
	}

	var entities []models.ExtractedInfo
	err := q.Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// SoftDeleteEntity flags an entity as deleted. The row stays in place so
// it can still be traced back to its screenshots.
func (s *Store) SoftDeleteEntity(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.ExtractedInfo{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("entity %s: %w", id, models.ErrNotFound)
	}

	s.log.Debug("entity soft-deleted", zap.String("entity_id", id))
	return nil
}
