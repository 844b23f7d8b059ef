package services

import "strings"

// ExtractExternalID returns the path token that follows marker in rawURL,
// cut at the next "/" or "?". It reports false when no token is present.
func ExtractExternalID(rawURL, marker string) (string, bool) {
	if marker == "" {
		return "", false
	}
	idx := strings.Index(rawURL, marker)
	if idx == -1 {
		return "", false
	}
	rest := rawURL[idx+len(marker):]
	if end := strings.IndexAny(rest, "/?"); end != -1 {
		rest = rest[:end]
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}
