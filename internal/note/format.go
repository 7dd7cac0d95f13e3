package note

import "strings"

// TranscriptBlock renders a question/answer turn for appending to a note
func TranscriptBlock(question, answer string) string {
	return "---\n\n**You asked:** " + question + "\n\n**AI:** " + answer
}

// SummaryMarkdown renders a session summary as a markdown section
func SummaryMarkdown(title, overview string, highlights, recommendations []string) string {
	var b strings.Builder

	if title = strings.TrimSpace(title); title != "" {
		b.WriteString("# " + title + "\n\n")
	}
	if overview = strings.TrimSpace(overview); overview != "" {
		b.WriteString(overview + "\n\n")
	}
	writeBullets(&b, "Highlights", highlights)
	writeBullets(&b, "Recommendations", recommendations)

	return strings.TrimRight(b.String(), "\n")
}

func writeBullets(b *strings.Builder, heading string, items []string) {
	var kept []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		return
	}
	b.WriteString("## " + heading + "\n\n")
	for _, item := range kept {
		b.WriteString("- " + item + "\n")
	}
	b.WriteString("\n")
}
