package textsim

import (
	"strings"
	"unicode/utf8"
)

// DefaultMinTokenRunes is the shortest token kept by Tokenize.
const DefaultMinTokenRunes = 3

// Tokenize splits normalized text on single spaces and returns the distinct
// tokens of at least DefaultMinTokenRunes runes, in first-seen order.
func Tokenize(normalized string) []string {
	return TokenizeMin(normalized, DefaultMinTokenRunes)
}

// TokenizeMin is Tokenize with a configurable minimum token length.
// Empty input yields a nil slice.
func TokenizeMin(normalized string, minRunes int) []string {
	if normalized == "" {
		return nil
	}
	parts := strings.Split(normalized, " ")
	seen := make(map[string]struct{}, len(parts))
	var out []string
	for _, p := range parts {
		if p == "" || utf8.RuneCountInString(p) < minRunes {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
