package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultSessionName is given to sessions created implicitly by a capture.
// The capture pipeline replaces it with the AI-suggested title.
const DefaultSessionName = "Untitled session"

// Session is a user's top-level container for one research/capture topic
type Session struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Owner       string `gorm:"index" json:"owner"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"` // trip-planning, shopping, job-search, ...

	// Relationships
	Screenshots []Screenshot    `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Entities    []ExtractedInfo `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Messages    []ChatMessage   `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Note        *SessionNote    `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

// BeforeCreate assigns a UUID when the caller did not
func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Screenshot is one captured image. The row is written before analysis runs;
// RawText and Summary are filled in afterwards.
type Screenshot struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	SessionID string  `gorm:"not null;index" json:"session_id"`
	ImagePath string  `json:"image_path"`
	Position  int     `gorm:"not null;default:0" json:"position"`
	RawText   *string `json:"raw_text"`
	Summary   string  `json:"summary"`
}

// BeforeCreate assigns a UUID when the caller did not
func (s *Screenshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// HasText reports whether analysis (or a manual correction) produced OCR text
func (s Screenshot) HasText() bool {
	return s.RawText != nil && *s.RawText != ""
}
