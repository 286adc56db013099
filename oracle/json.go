package oracle

import (
	"regexp"
	"strings"
)

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"as a large language model",
}

// ExtractJSON strips markdown code fences the model sometimes wraps around
// JSON output, even when a response schema was requested.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// transcriptMarker matches a timestamp or a "Speaker:" label at the start of a line.
var transcriptMarker = regexp.MustCompile(`(?m)^\s*(\[?\d{1,2}:\d{2}|[A-Z][\w .'-]{0,30}:\s)`)

// IsRefusal reports whether a free-text response reads as a model refusal:
// it opens with a refusal phrase and carries no transcript markers. Quoted
// speech such as "Witness: I am unable to recall" is not a refusal.
func IsRefusal(text string) bool {
	s := strings.TrimSpace(text)
	lower := strings.ToLower(s)
	for _, phrase := range refusalPhrases {
		if strings.HasPrefix(lower, phrase) {
			return !transcriptMarker.MatchString(s)
		}
	}
	return false
}
