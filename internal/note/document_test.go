package note

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestNewDocumentIsClean(t *testing.T) {
	doc := NewDocument("# Tokyo")
	assert.False(t, doc.Dirty())
	assert.Equal(t, "# Tokyo", doc.Persisted())

	assert.False(t, doc.SetContent("# Tokyo"))
	assert.False(t, doc.Dirty())

	assert.True(t, doc.SetContent("# Tokyo\n\nHyatt"))
	assert.True(t, doc.Dirty())
}

func TestMarkPersistedUsesSentContent(t *testing.T) {
	doc := NewDocument("")
	doc.SetContent("first")
	sent := doc.Content()
	doc.SetContent("first second")

	doc.MarkPersisted(sent)
	assert.True(t, doc.Dirty(), "buffer moved on while the save was in flight")

	doc.MarkPersisted(doc.Content())
	assert.False(t, doc.Dirty())
}

func TestAppendOffsets(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		text     string
		offset   int
		content  string
	}{
		{"empty buffer", "", "B", 0, "B"},
		{"blank line separator", "A", "B", 3, "A\n\nB"},
		{"multibyte ascii mix", "café", "x", 6, "café\n\nx"},
		{"surrogate pair", "😀", "x", 4, "😀\n\nx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := NewDocument(tt.existing)
			assert.Equal(t, tt.offset, doc.Append(tt.text))
			assert.Equal(t, tt.content, doc.Content())
		})
	}
}

func TestHighlight(t *testing.T) {
	doc := NewDocument("Hello")
	assert.False(t, doc.Highlight().Active)

	doc.SetHighlight(5)
	assert.Equal(t, Highlight{Start: 5, Active: true}, doc.Highlight())

	doc.ClearHighlight()
	assert.False(t, doc.Highlight().Active)
	assert.False(t, doc.Dirty(), "highlight is never content")
}

func TestByteOffset(t *testing.T) {
	s := "a😀b"
	assert.Equal(t, 0, ByteOffset(s, 0))
	assert.Equal(t, 1, ByteOffset(s, 1))
	assert.Equal(t, 5, ByteOffset(s, 3))
	assert.Equal(t, 5, ByteOffset(s, 2), "inside a surrogate pair rounds up")
	assert.Equal(t, len(s), ByteOffset(s, 99))
}

func TestAppendOffsetProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		existing := rapid.StringN(1, 40, -1).Draw(t, "existing")
		text := rapid.String().Draw(t, "text")

		doc := NewDocument(existing)
		offset := doc.Append(text)

		if offset != UTF16Len(existing)+2 {
			t.Fatalf("offset %d, want %d", offset, UTF16Len(existing)+2)
		}
		content := doc.Content()
		if got := content[ByteOffset(content, offset):]; got != text {
			t.Fatalf("span at offset is %q, want %q", got, text)
		}
		if doc.Len() != offset+UTF16Len(text) {
			t.Fatalf("len %d, want %d", doc.Len(), offset+UTF16Len(text))
		}
	})
}
