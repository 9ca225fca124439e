// Package textsim canonicalizes short chat texts and compares them as token
// sets. It is pure and dependency-light: no logging, no I/O, safe for
// concurrent use.
//
// The pipeline mirrors what the duplicate filter needs:
//
//	Normalize -> Tokenize -> Jaccard
package textsim

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// emojiTable covers pictographs, emoji presentation selectors, skin-tone
// modifiers, regional indicators, keycaps, tag sequences and the zero-width
// joiner that glues multi-person sequences together.
var emojiTable = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x00a9, Hi: 0x00a9, Stride: 1},
		{Lo: 0x00ae, Hi: 0x00ae, Stride: 1},
		{Lo: 0x200d, Hi: 0x200d, Stride: 1},
		{Lo: 0x203c, Hi: 0x203c, Stride: 1},
		{Lo: 0x2049, Hi: 0x2049, Stride: 1},
		{Lo: 0x20e3, Hi: 0x20e3, Stride: 1},
		{Lo: 0x2122, Hi: 0x2122, Stride: 1},
		{Lo: 0x2139, Hi: 0x2139, Stride: 1},
		{Lo: 0x2194, Hi: 0x21aa, Stride: 1},
		{Lo: 0x231a, Hi: 0x23ff, Stride: 1},
		{Lo: 0x24c2, Hi: 0x24c2, Stride: 1},
		{Lo: 0x25aa, Hi: 0x27bf, Stride: 1},
		{Lo: 0x2934, Hi: 0x2935, Stride: 1},
		{Lo: 0x2b05, Hi: 0x2b55, Stride: 1},
		{Lo: 0x3030, Hi: 0x3030, Stride: 1},
		{Lo: 0x303d, Hi: 0x303d, Stride: 1},
		{Lo: 0x3297, Hi: 0x3299, Stride: 1},
		{Lo: 0xfe0e, Hi: 0xfe0f, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1f000, Hi: 0x1faff, Stride: 1},
		{Lo: 0xe0020, Hi: 0xe007f, Stride: 1},
	},
}

// IsEmoji reports whether r belongs to an emoji or emoji-sequence component.
func IsEmoji(r rune) bool { return unicode.Is(emojiTable, r) }

// folder builds a fresh transformer chain. Transformers carry state, so each
// call gets its own chain.
func folder() transform.Transformer {
	return transform.Chain(
		cases.Lower(language.Und),
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.In(emojiTable)),
		norm.NFC,
	)
}

// Normalize returns the canonical form of text used for duplicate detection:
// lowercased, diacritics and emoji removed, every rune that is not a letter,
// number or whitespace replaced by a space, whitespace runs collapsed and the
// result trimmed. Empty input yields "".
//
// Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	folded, _, err := transform.String(folder(), text)
	if err != nil {
		// Transformers above only fail on invalid internal state; fall back
		// to the plain lowercase input so the function stays total.
		folded = strings.ToLower(text)
	}

	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, folded)

	return strings.Join(strings.Fields(mapped), " ")
}
