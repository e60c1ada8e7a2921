package domain

import (
	"strings"
)

// NormalizeText prepares free-text answers for comparison:
//   - trims leading/trailing whitespace
//   - converts to lowercase
//   - collapses every whitespace run (spaces, tabs, newlines) into one space
//
// Diacritics, hyphens, and apostrophes are preserved, so "Está" and "esta"
// are different answers.
func NormalizeText(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(strings.Join(fields, " "))
}
