package db

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/balkashynov/relay/internal/models"
)

// CreateScreenshot stores a freshly captured screenshot. The position is
// assigned here as the next index in the session.
func (s *Store) CreateScreenshot(ctx context.Context, shot *models.Screenshot) (*models.Screenshot, error) {
	if shot == nil || shot.SessionID == "" {
		return nil, fmt.Errorf("screenshot needs a session: %w", models.ErrInvalid)
	}
	if _, err := s.GetSession(ctx, shot.SessionID); err != nil {
		return nil, err
	}

	created := *shot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Screenshot{}).Where("session_id = ?", shot.SessionID).Count(&count).Error; err != nil {
			return err
		}
		created.Position = int(count)
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		return touchSession(tx, shot.SessionID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("screenshot stored",
		zap.String("session_id", created.SessionID),
		zap.String("screenshot_id", created.ID),
		zap.Int("position", created.Position))
	return &created, nil
}

// GetScreenshot retrieves a screenshot by ID
func (s *Store) GetScreenshot(ctx context.Context, id string) (*models.Screenshot, error) {
	var shot models.Screenshot
	if err := s.db.WithContext(ctx).First(&shot, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "screenshot", id)
	}
	return &shot, nil
}

// ListScreenshots returns the screenshots of a session in capture order
func (s *Store) ListScreenshots(ctx context.Context, sessionID string) ([]models.Screenshot, error) {
	var shots []models.Screenshot
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("position ASC").
		Find(&shots).Error
	if err != nil {
		return nil, err
	}
	return shots, nil
}

// UpdateScreenshot writes OCR text and/or the analysis summary
func (s *Store) UpdateScreenshot(ctx context.Context, id string, req models.UpdateScreenshotRequest) (*models.Screenshot, error) {
	shot, err := s.GetScreenshot(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.RawText != nil {
		updates["raw_text"] = *req.RawText
		shot.RawText = req.RawText
	}
	if req.Summary != nil {
		updates["summary"] = *req.Summary
		shot.Summary = *req.Summary
	}
	if len(updates) == 0 {
		return shot, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.Screenshot{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	return shot, nil
}
