package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/balkashynov/relay/internal/ai"
	"github.com/balkashynov/relay/internal/models"
)

// Capturer runs the capture pipeline: store the screenshot, analyze it,
// then store what the analysis found
type Capturer struct {
	store    Store
	analyzer Analyzer
	notify   Notifier
	log      *zap.Logger
}

// NewCapturer creates a capture pipeline. notify may be nil.
func NewCapturer(store Store, analyzer Analyzer, notify Notifier, log *zap.Logger) *Capturer {
	if notify == nil {
		notify = NotifierFunc(func(Change) {})
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Capturer{
		store:    store,
		analyzer: analyzer,
		notify:   notify,
		log:      log.Named("capture"),
	}
}

// Capture stores image (already written to locator) in a session and
// extracts entities from it. The screenshot row exists before analysis
// starts and is kept whatever happens afterwards, so a non-nil screenshot
// can come back together with an error. Entities are stored one by one;
// the ones that made it stay even when others fail.
func (c *Capturer) Capture(ctx context.Context, sessionID string, image []byte, locator string) (*models.Screenshot, error) {
	log := c.log.With(zap.String("session_id", sessionID))

	shot, err := c.store.CreateScreenshot(ctx, &models.Screenshot{
		SessionID: sessionID,
		ImagePath: locator,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store screenshot: %w", err)
	}
	c.notify.Notify(Change{Kind: ScreenshotCaptured, SessionID: sessionID})
	log.Info("screenshot stored", zap.String("screenshot_id", shot.ID), zap.Int("position", shot.Position))

	analysis, err := c.analyzer.Analyze(ctx, image)
	if err != nil {
		log.Warn("analysis failed, keeping screenshot", zap.String("screenshot_id", shot.ID), zap.Error(err))
		return shot, fmt.Errorf("analysis failed: %w", err)
	}

	updated, err := c.store.UpdateScreenshot(ctx, shot.ID, models.UpdateScreenshotRequest{
		RawText: &analysis.RawText,
		Summary: &analysis.Summary,
	})
	if err != nil {
		return shot, fmt.Errorf("failed to store analysis text: %w", err)
	}
	shot = updated

	var errs []error
	saved := 0
	for _, found := range analysis.Entities {
		if _, err := c.store.CreateEntity(ctx, entityFromAnalysis(sessionID, shot.ID, found)); err != nil {
			errs = append(errs, fmt.Errorf("entity %q: %w", found.Title, err))
			continue
		}
		saved++
	}
	log.Info("analysis stored",
		zap.String("screenshot_id", shot.ID),
		zap.String("category", analysis.Category),
		zap.Int("entities", saved),
		zap.Int("entity_failures", len(errs)))

	if err := c.adoptTitle(ctx, sessionID, analysis); err != nil {
		errs = append(errs, err)
	}
	if saved > 0 {
		c.notify.Notify(Change{Kind: EntitiesChanged, SessionID: sessionID})
	}

	return shot, errors.Join(errs...)
}

// adoptTitle names an untitled session after what the analysis suggested
// and fills in its category
func (c *Capturer) adoptTitle(ctx context.Context, sessionID string, analysis *ai.Analysis) error {
	sess, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	var req models.UpdateSessionRequest
	if sess.Name == models.DefaultSessionName && analysis.SuggestedNotebookTitle != nil {
		if title := strings.TrimSpace(*analysis.SuggestedNotebookTitle); title != "" {
			req.Name = &title
		}
	}
	if sess.Category == "" && analysis.Category != "" {
		req.Category = &analysis.Category
	}
	if req.Name == nil && req.Category == nil {
		return nil
	}

	if _, err := c.store.UpdateSession(ctx, sessionID, req); err != nil {
		return fmt.Errorf("failed to update session title: %w", err)
	}
	c.log.Info("session retitled", zap.String("session_id", sessionID))
	return nil
}

func entityFromAnalysis(sessionID, screenshotID string, found ai.AnalyzedEntity) *models.ExtractedInfo {
	entity := &models.ExtractedInfo{
		SessionID:     sessionID,
		ScreenshotIDs: []string{screenshotID},
		Title:         found.Title,
		Attributes:    found.Attributes,
	}
	if t := strings.TrimSpace(found.Type); t != "" {
		entity.Type = &t
	}
	return entity
}
