package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSessionTitle(t *testing.T) {
	categories := []string{"trip-planning", "shopping", "other"}

	tests := []struct {
		name     string
		input    string
		want     string
		category string
		owner    string
		errs     int
	}{
		{"plain", "Tokyo trip", "Tokyo trip", "", "", 0},
		{"category", "Tokyo trip @trip-planning", "Tokyo trip", "trip-planning", "", 0},
		{"category first", "@Shopping  headphones", "headphones", "shopping", "", 0},
		{"owner", "Tokyo by:anna @trip-planning", "Tokyo", "trip-planning", "anna", 0},
		{"unknown category kept", "Jobs @careers", "Jobs @careers", "", "", 1},
		{"email is not a category", "mail me@example.com", "mail me@example.com", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSessionTitle(tt.input, categories)
			assert.Equal(t, tt.want, got.Name)
			assert.Equal(t, tt.category, got.Category)
			assert.Equal(t, tt.owner, got.Owner)
			assert.Len(t, got.Errors, tt.errs)
		})
	}
}

func TestParseSessionTitleAnyCategory(t *testing.T) {
	got := ParseSessionTitle("Notes @whatever", nil)
	assert.Equal(t, "Notes", got.Name)
	assert.Equal(t, "whatever", got.Category)
}
