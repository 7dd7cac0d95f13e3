// Package ai wraps a vision/language model behind the three operations relay
// needs: screenshot analysis, note-aware chat and session summaries.
package ai

// Screenshot categories the analysis prompt asks the model to choose from
var Categories = []string{
	"trip-planning",
	"shopping",
	"job-search",
	"research",
	"content-writing",
	"productivity",
	"other",
}

// AnalyzedEntity is one entity the model found in a screenshot
type AnalyzedEntity struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Attributes map[string]any `json:"attributes"`
}

// Analysis is the structured result of analysing one screenshot
type Analysis struct {
	RawText                string           `json:"rawText"`
	Summary                string           `json:"summary"`
	Category               string           `json:"category"`
	Entities               []AnalyzedEntity `json:"entities"`
	SuggestedNotebookTitle *string          `json:"suggestedNotebookTitle"`
}

// DefaultAnalysis is returned in place of a failed analysis
func DefaultAnalysis() *Analysis {
	return &Analysis{
		Category: "other",
		Entities: []AnalyzedEntity{},
	}
}

// ScreenshotContext is the OCR text and summary of one recent screenshot
type ScreenshotContext struct {
	RawText string `json:"rawText,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// EntityDigest is the compact form of an entity sent to the model
type EntityDigest struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// ChatContext is optional session context attached to a chat turn
type ChatContext struct {
	SessionName string              `json:"sessionName,omitempty"`
	Category    string              `json:"category,omitempty"`
	Screenshots []ScreenshotContext `json:"screenshots,omitempty"`
	Entities    []EntityDigest      `json:"entities,omitempty"`
}

// ChatRequest is one user turn against the session note
type ChatRequest struct {
	SessionID   string       `json:"sessionId"`
	Message     string       `json:"message"`
	NoteContent string       `json:"noteContent"`
	Context     *ChatContext `json:"context,omitempty"`
}

// ChatReply is the model's answer to a chat turn. UpdatedNote only carries
// meaning when NoteWasModified is true.
type ChatReply struct {
	Reply           string  `json:"reply"`
	UpdatedNote     *string `json:"updatedNote,omitempty"`
	NoteWasModified bool    `json:"noteWasModified"`
}

// Replacement returns the full replacement document when the turn edited the
// note, ignoring any UpdatedNote sent alongside an unmodified flag
func (r ChatReply) Replacement() (string, bool) {
	if !r.NoteWasModified || r.UpdatedNote == nil {
		return "", false
	}
	return *r.UpdatedNote, true
}

// SummaryRequest asks for a condensed summary of a session's entities
type SummaryRequest struct {
	SessionID   string         `json:"sessionId"`
	SessionName string         `json:"sessionName"`
	Entities    []EntityDigest `json:"entities"`
}

// Summary is the condensed view of a session
type Summary struct {
	CondensedSummary string         `json:"condensedSummary"`
	KeyHighlights    []string       `json:"keyHighlights"`
	Recommendations  []string       `json:"recommendations"`
	MergedEntities   []EntityDigest `json:"mergedEntities"`
	SuggestedTitle   string         `json:"suggestedTitle"`
	SuggestedQueries []string       `json:"suggestedQueries"`
	Keywords         []string       `json:"keywords"`
}

// DefaultSummary is returned in place of a failed summary
func DefaultSummary() *Summary {
	return &Summary{
		KeyHighlights:    []string{},
		Recommendations:  []string{},
		MergedEntities:   []EntityDigest{},
		SuggestedQueries: []string{},
		Keywords:         []string{},
	}
}

// Empty reports whether the summary carries nothing worth writing down
func (s *Summary) Empty() bool {
	return s == nil || (s.CondensedSummary == "" && len(s.KeyHighlights) == 0 && len(s.Recommendations) == 0)
}
