package models

// CreateSessionRequest holds the data needed to create a new session
type CreateSessionRequest struct {
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// UpdateSessionRequest carries the mutable session fields. Nil means unchanged.
type UpdateSessionRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
}

// UpdateScreenshotRequest carries analysis output or a manual OCR correction.
// Nil fields are left unchanged.
type UpdateScreenshotRequest struct {
	RawText *string `json:"raw_text,omitempty"`
	Summary *string `json:"summary,omitempty"`
}

// CreateEntityRequest describes one extracted entity to store
type CreateEntityRequest struct {
	ScreenshotIDs []string       `json:"screenshot_ids"`
	Type          *string        `json:"type"`
	Title         string         `json:"title"`
	Attributes    map[string]any `json:"attributes"`
}

// UpdateNoteRequest replaces a note's content
type UpdateNoteRequest struct {
	Content string `json:"content"`
}

// AppendMessageRequest adds one chat message
type AppendMessageRequest struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}
