package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Well-known entity type tags. The column is free-form; these are only the
// values relay itself writes.
const (
	EntityTypeAISummary = "ai-summary"
	EntityTypeOther     = "other"
)

// ExtractedInfo is a structured fact pulled out of one or more screenshots
// (or derived from chat, in which case ScreenshotIDs is empty).
// Deletion is logical only: DeletedAt is set and the row stays for traceability.
type ExtractedInfo struct {
	ID        string         `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`

	SessionID     string                      `gorm:"not null;index" json:"session_id"`
	ScreenshotIDs datatypes.JSONSlice[string] `json:"screenshot_ids"`
	Type          *string                     `json:"type"`
	Title         string                      `json:"title"`
	Attributes    datatypes.JSONMap           `json:"attributes"`
}

// TableName keeps the table name stable regardless of gorm's pluralisation
func (ExtractedInfo) TableName() string {
	return "extracted_info"
}

// BeforeCreate assigns a UUID when the caller did not
func (e *ExtractedInfo) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// Deleted reports whether the entity has been soft-deleted
func (e ExtractedInfo) Deleted() bool {
	return e.DeletedAt.Valid
}

// TypeName returns the type tag or "other" when none was set
func (e ExtractedInfo) TypeName() string {
	if e.Type == nil || *e.Type == "" {
		return EntityTypeOther
	}
	return *e.Type
}
