package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a model response contains no JSON object
var ErrNoJSON = errors.New("response does not contain a JSON object")

// ExtractJSON returns the JSON object embedded in a model response.
// Models are told to answer with bare JSON but regularly wrap it in a
// markdown code fence or surround it with prose.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoJSON
	}

	// Remove markdown code fences (``` or ```json)
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		lines = lines[1:]
		if n := len(lines); n > 0 && strings.HasPrefix(strings.TrimSpace(lines[n-1]), "```") {
			lines = lines[:n-1]
		}
		text = strings.TrimSpace(strings.Join(lines, "\n"))
	}

	if strings.HasPrefix(text, "{") && json.Valid([]byte(text)) {
		return text, nil
	}

	// Fall back to the outermost braces
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || start > end {
		return "", ErrNoJSON
	}
	candidate := text[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", fmt.Errorf("invalid JSON in response: %w", ErrNoJSON)
	}
	return candidate, nil
}

// DecodeModelJSON extracts the JSON object from a model response and
// unmarshals it into out
func DecodeModelJSON(text string, out any) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decode model response: %w", err)
	}
	return nil
}

// Truncate shortens s to at most max runes, appending "..." when cut
func Truncate(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
