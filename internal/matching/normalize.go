package matching

import (
	"regexp"
	"strings"
)

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)

// Normalize canonicalizes free-text track metadata for comparison:
// lower-case, punctuation removed, whitespace runs collapsed and trimmed.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = nonWord.ReplaceAllString(strings.ToLower(s), "")
	return strings.Join(strings.Fields(s), " ")
}

// Key builds the exact-match key for a title/artist pair.
func Key(title, artist string) string {
	return Normalize(title) + "|" + Normalize(artist)
}
