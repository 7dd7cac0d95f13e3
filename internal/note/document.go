package note

import "unicode/utf16"

// Highlight marks the start of the most recently inserted span. It is UI
// state only and never persisted.
type Highlight struct {
	Start  int // UTF-16 code units
	Active bool
}

// Document is the in-process copy of a session note: the live buffer, the
// content last confirmed written, and the transient highlight.
// Offsets are UTF-16 code units, the unit text widgets count in.
type Document struct {
	content   string
	persisted string
	highlight Highlight
}

// NewDocument returns a clean document whose buffer and snapshot are both
// the persisted content
func NewDocument(persisted string) *Document {
	return &Document{content: persisted, persisted: persisted}
}

// Content returns the current buffer
func (d *Document) Content() string {
	return d.content
}

// Persisted returns the last content confirmed written
func (d *Document) Persisted() string {
	return d.persisted
}

// SetContent replaces the buffer and reports whether it changed
func (d *Document) SetContent(text string) bool {
	if text == d.content {
		return false
	}
	d.content = text
	return true
}

// Dirty reports whether the buffer differs from the persisted snapshot
func (d *Document) Dirty() bool {
	return d.content != d.persisted
}

// MarkPersisted records text as written. text is what was sent, which may
// already be behind the buffer.
func (d *Document) MarkPersisted(text string) {
	d.persisted = text
}

// Append adds text after a blank line (or as the whole buffer when empty)
// and returns the offset where text begins
func (d *Document) Append(text string) int {
	if d.content == "" {
		d.content = text
		return 0
	}
	start := UTF16Len(d.content) + 2
	d.content += "\n\n" + text
	return start
}

// Len is the buffer length in UTF-16 code units
func (d *Document) Len() int {
	return UTF16Len(d.content)
}

func (d *Document) SetHighlight(start int) {
	d.highlight = Highlight{Start: start, Active: true}
}

func (d *Document) ClearHighlight() {
	d.highlight = Highlight{}
}

func (d *Document) Highlight() Highlight {
	return d.highlight
}

// UTF16Len returns the length of s in UTF-16 code units
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// ByteOffset converts a UTF-16 offset into a byte offset into s. Offsets
// past the end clamp to len(s); an offset inside a surrogate pair rounds
// up to the next rune.
func ByteOffset(s string, offset int) int {
	if offset <= 0 {
		return 0
	}
	units := 0
	for i, r := range s {
		if units >= offset {
			return i
		}
		units += utf16.RuneLen(r)
	}
	return len(s)
}
