package spotify

import (
	"strings"
	"unicode"
)

// suffixTokens mark a trailing "(Remastered 2011)" or "- Live" segment as
// release noise rather than part of the title.
var suffixTokens = map[string]struct{}{
	"clean":      {},
	"deluxe":     {},
	"edition":    {},
	"edit":       {},
	"explicit":   {},
	"live":       {},
	"mix":        {},
	"mono":       {},
	"radio":      {},
	"remaster":   {},
	"remastered": {},
	"stereo":     {},
	"version":    {},
}

// featureTokens are dropped wherever they appear, and a bracketed or dashed
// segment holding one is a guest credit that gets stripped whole.
var featureTokens = map[string]struct{}{
	"feat":      {},
	"featuring": {},
	"ft":        {},
}

// Normalize cleans a search string for comparison.
func Normalize(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}

	lowered := strings.ToLower(strings.TrimSpace(input))
	trimmed := stripCommonSuffixes(lowered)
	tokens := strings.Fields(cleanSeparators(trimmed))

	kept := tokens[:0]
	for _, token := range tokens {
		if _, drop := featureTokens[token]; drop {
			continue
		}
		kept = append(kept, token)
	}
	return strings.Join(kept, " ")
}

func stripCommonSuffixes(input string) string {
	trimmed := strings.TrimSpace(input)
	for {
		next := trimBracketedSuffix(trimmed)
		next = trimDashSuffix(next)
		if next == trimmed {
			return trimmed
		}
		trimmed = strings.TrimSpace(next)
	}
}

func trimBracketedSuffix(input string) string {
	trimmed := strings.TrimSpace(input)
	for _, pair := range [][2]string{{"(", ")"}, {"[", "]"}} {
		if !strings.HasSuffix(trimmed, pair[1]) {
			continue
		}
		if idx := strings.LastIndex(trimmed, pair[0]); idx != -1 && idx < len(trimmed)-1 {
			if suffixHasToken(trimmed[idx+1 : len(trimmed)-1]) {
				return strings.TrimSpace(trimmed[:idx])
			}
		}
	}
	return input
}

func trimDashSuffix(input string) string {
	trimmed := strings.TrimSpace(input)
	idx := strings.LastIndex(trimmed, " - ")
	if idx == -1 {
		return input
	}
	if suffixHasToken(trimmed[idx+3:]) {
		return strings.TrimSpace(trimmed[:idx])
	}
	return input
}

func suffixHasToken(input string) bool {
	for _, token := range strings.Fields(cleanSeparators(strings.ToLower(input))) {
		if _, ok := suffixTokens[token]; ok {
			return true
		}
		if _, ok := featureTokens[token]; ok {
			return true
		}
	}
	return false
}

func cleanSeparators(input string) string {
	var out strings.Builder
	lastSpace := false
	for _, r := range input {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			out.WriteRune(' ')
			lastSpace = true
		}
	}
	return out.String()
}
