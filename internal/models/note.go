package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionNote is the single markdown document per session
type SessionNote struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SessionID string `gorm:"not null;uniqueIndex" json:"session_id"`
	Content   string `gorm:"not null;default:''" json:"content"`
}

// BeforeCreate assigns a UUID when the caller did not
func (n *SessionNote) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// ChatRole is the author of a chat message
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// Valid reports whether r is one of the known roles
func (r ChatRole) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ChatMessage is one entry of the append-only chat log of a session
type ChatMessage struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	SessionID string   `gorm:"not null;index" json:"session_id"`
	Role      ChatRole `gorm:"not null" json:"role"`
	Content   string   `gorm:"not null" json:"content"`

	// Failed marks a transcript line produced locally for a failed turn.
	// It is never persisted.
	Failed bool `gorm:"-" json:"-"`
}

// BeforeCreate assigns a UUID when the caller did not
func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
