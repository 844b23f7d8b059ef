package domain

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidCamelot is returned for keys outside the 1A..12B wheel.
var ErrInvalidCamelot = errors.New("domain: invalid camelot key")

// CamelotKey is a position on the Camelot wheel, e.g. 8A.
type CamelotKey struct {
	Number int
	Letter byte // 'A' (minor) or 'B' (major)
}

// ParseCamelot parses strings like "8A" or "12b".
func ParseCamelot(raw string) (CamelotKey, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if len(s) < 2 {
		return CamelotKey{}, ErrInvalidCamelot
	}
	letter := s[len(s)-1]
	if letter != 'A' && letter != 'B' {
		return CamelotKey{}, ErrInvalidCamelot
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 1 || n > 12 {
		return CamelotKey{}, ErrInvalidCamelot
	}
	return CamelotKey{Number: n, Letter: letter}, nil
}

// CamelotCompatible reports whether two keys mix harmonically: the same key, or
// neighbours on the same ring (numbers one apart, wrapping 12 to 1).
func CamelotCompatible(a, b string) bool {
	ka, err := ParseCamelot(a)
	if err != nil {
		return false
	}
	kb, err := ParseCamelot(b)
	if err != nil {
		return false
	}
	if ka == kb {
		return true
	}
	if ka.Letter != kb.Letter {
		return false
	}
	diff := ka.Number - kb.Number
	if diff < 0 {
		diff = -diff
	}
	return diff == 1 || diff == 11
}
