package linkmux

import (
	"strings"
	"unicode"
)

// Line kind tokens returned by Classify.
const (
	LineKindSample  = "sample"
	LineKindEvent   = "event"
	LineKindMessage = "message"
	LineKindUnknown = "unknown"
)

var eventPrefixes = []string{"SFIX", "EFIX", "SSACC", "ESACC", "SBLINK", "EBLINK"}

// Classify inspects a raw link line and returns a simple kind token. The
// classification is intentionally conservative: it routes lines to parsers,
// nothing more.
func Classify(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return LineKindUnknown
	}
	if strings.HasPrefix(trimmed, "MSG") {
		return LineKindMessage
	}
	for _, p := range eventPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return LineKindEvent
		}
	}
	if unicode.IsDigit(rune(trimmed[0])) {
		return LineKindSample
	}
	return LineKindUnknown
}
