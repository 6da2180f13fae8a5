package chat

import (
	"regexp"
	"strconv"
	"strings"
)

var idPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// ValidID reports whether s looks like a well-formed account id.
func ValidID(s string) bool {
	return idPattern.MatchString(s)
}

// notEmptyString reports whether s, after trimming, is at least minLen runes.
func notEmptyString(s string, minLen int) bool {
	return len([]rune(strings.TrimSpace(s))) >= minLen
}

// firstString returns the first value of a query parameter slice.
func firstString(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// smartCastInt parses s as a base-10 integer, falling back to def on any
// garbage input. Clients are sloppy about numeric params.
func smartCastInt(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

// truncatePreview shortens a message for push notification previews without
// splitting multi-byte runes.
func truncatePreview(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}
