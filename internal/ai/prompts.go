package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = `You are the assistant of a screenshot capture app. You always answer with a single valid JSON object and nothing else: no markdown code fences, no prose before or after.`

const analyzePrompt = `Analyze this screenshot and extract structured information.

## Task
1. Perform OCR to extract all visible text from the image
2. Identify the main entity types visible (hotel, restaurant, job posting, product, article, etc.)
3. Write a 1-3 sentence summary of what the screenshot shows. Use objective language (e.g., "A screenshot of...", "A photo showing..."). Do NOT use phrases like "The user is looking at" or "The image displays".
4. Extract structured entities with their attributes
5. Suggest an appropriate category and notebook title

## Categories
- trip-planning: Hotels, flights, restaurants, travel
- shopping: Products, electronics, clothing
- job-search: Job postings, careers
- research: Articles, documentation
- content-writing: Writing, notes, drafts
- productivity: Tasks, calendars, projects
- other: Generic or unclear content

## Output Format
{
  "rawText": "Full OCR text extracted from screenshot",
  "summary": "1-3 sentence objective description",
  "category": "trip-planning|shopping|job-search|research|content-writing|productivity|other",
  "entities": [
    {"type": "hotel|product|job|flight|restaurant|article|other", "title": "Entity name/title", "attributes": {}}
  ],
  "suggestedNotebookTitle": "Short descriptive title for this content"
}

## Rules
- Extract as much structured information as possible
- For prices, include currency symbol
- For ratings, normalize to a consistent format (e.g., "4.8")`

const chatPrompt = `The user keeps one markdown note per capture session and is talking to you about it.

## Session
Name: %s
Category: %s

## Recent screenshots
%s

## Captured entities
%s

## Current note
<note>
%s
</note>

## User message
%s

## Task
Decide whether the user is asking you to change the note (add, rewrite, reorganise, remove) or asking a question.
- If the note must change, return the COMPLETE new note in "updatedNote" and set "noteWasModified" to true. Keep everything the user did not ask to change, verbatim. Prefer appending new material at the end.
- If it is a question, answer it in "reply", set "noteWasModified" to false and omit "updatedNote".
Always put a short conversational answer in "reply".

## Output Format
{"reply": "...", "updatedNote": "...", "noteWasModified": true|false}`

const summarizePrompt = `Generate a comprehensive summary of this research/capture session.

## Session Name
%s

## Entities to Summarize
%s

## Task
Create a condensed but comprehensive summary with:
1. A 2-4 sentence overview
2. Top 3-5 key highlights
3. 2-3 actionable recommendations
4. Suggested follow-up queries
5. Key topics/tags

## Output Format
{
  "condensedSummary": "2-4 sentence AI-generated overview",
  "keyHighlights": ["Highlight 1", "Highlight 2", "Highlight 3"],
  "recommendations": ["Recommendation 1", "Recommendation 2"],
  "mergedEntities": [{"type": "...", "title": "...", "attributes": {}}],
  "suggestedTitle": "Concise title for this session",
  "suggestedQueries": ["Follow-up question 1?", "Follow-up question 2?"],
  "keywords": ["keyword1", "keyword2", "keyword3"]
}

## Rules
- Merge duplicate entities
- Be concise but informative
- Make recommendations actionable`

// buildChatPrompt renders the chat prompt for one turn
func buildChatPrompt(req ChatRequest) string {
	ctx := req.Context
	if ctx == nil {
		ctx = &ChatContext{}
	}

	name := orNone(ctx.SessionName)
	category := orNone(ctx.Category)

	var shots strings.Builder
	for i, s := range ctx.Screenshots {
		fmt.Fprintf(&shots, "%d. %s\n", i+1, orNone(s.Summary))
		if s.RawText != "" {
			fmt.Fprintf(&shots, "   OCR: %s\n", s.RawText)
		}
	}
	screens := strings.TrimSpace(shots.String())

	return fmt.Sprintf(chatPrompt,
		name,
		category,
		orNone(screens),
		orNone(indentJSON(ctx.Entities)),
		req.NoteContent,
		req.Message,
	)
}

// buildSummarizePrompt renders the summarize prompt
func buildSummarizePrompt(req SummaryRequest) string {
	return fmt.Sprintf(summarizePrompt, req.SessionName, indentJSON(req.Entities))
}

func indentJSON(v any) string {
	switch x := v.(type) {
	case []EntityDigest:
		if len(x) == 0 {
			return ""
		}
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}
