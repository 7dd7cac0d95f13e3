package parser

import (
	"regexp"
	"slices"
	"strings"
)

// ParsedSession is a session name with its inline metadata removed
type ParsedSession struct {
	Name     string
	Category string
	Owner    string
	Errors   []string
}

var (
	categoryRegex = regexp.MustCompile(`(?:^|\s)@([a-zA-Z0-9_-]+)`)
	ownerRegex    = regexp.MustCompile(`(?:^|\s)by:([^\s]+)`)
)

// ParseSessionTitle extracts metadata from a session name using inline syntax.
// Syntax: "Tokyo trip @trip-planning by:anna"
// A category outside categories is reported in Errors and left in the name.
func ParseSessionTitle(input string, categories []string) ParsedSession {
	result := ParsedSession{Errors: []string{}}

	if m := categoryRegex.FindStringSubmatch(input); len(m) > 1 {
		category := strings.ToLower(m[1])
		if len(categories) == 0 || slices.Contains(categories, category) {
			result.Category = category
			input = strings.Replace(input, m[0], " ", 1)
		} else {
			result.Errors = append(result.Errors,
				"Unknown category '"+m[1]+"'. Use one of: "+strings.Join(categories, ", "))
		}
	}

	if m := ownerRegex.FindStringSubmatch(input); len(m) > 1 {
		result.Owner = m[1]
		input = strings.Replace(input, m[0], " ", 1)
	}

	// Collapse the gaps left behind
	result.Name = strings.Join(strings.Fields(input), " ")
	return result
}
