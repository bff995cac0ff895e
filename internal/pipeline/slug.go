package pipeline

import (
	"strings"
	"unicode"
)

// Slugify converts text to a short identifier safe for agent keys and
// filenames: lowercase, spaces to dashes, everything but letters, digits,
// and dashes stripped, capped at 30 characters.
func Slugify(text string) string {
	slug := strings.ToLower(text)
	slug = strings.ReplaceAll(slug, " ", "-")

	// Remove non-alphanumeric characters except dashes
	var result strings.Builder
	for _, r := range slug {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			result.WriteRune(r)
		}
	}

	// Limit length
	s := result.String()
	if len(s) > 30 {
		s = s[:30]
	}
	// Trim trailing dashes
	s = strings.TrimRight(s, "-")
	return s
}
