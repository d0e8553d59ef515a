package avatar

import (
	"regexp"
	"strings"
)

var (
	disallowedChars = regexp.MustCompile(`[^\w\s.,!?;:'"()-]`)
	spaceRuns       = regexp.MustCompile(`\s+`)
)

// sanitizeText strips characters outside a conservative allow-list of word
// characters, whitespace, and basic punctuation. The vendor rejects scripts
// containing other symbols (emoji included) with a validation error, so
// stripping them up front avoids a guaranteed-failure round trip.
func sanitizeText(text string) string {
	cleaned := disallowedChars.ReplaceAllString(text, "")
	cleaned = spaceRuns.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
