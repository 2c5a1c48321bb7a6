package engine

import (
	"strings"
	"unicode"
)

// Speakable strips characters the synthesis engines cannot voice, notably
// emoji and other symbol-plane code points, then collapses the whitespace
// left behind.
func Speakable(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if speakableRune(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func speakableRune(r rune) bool {
	if r >= 0x1F000 {
		// Emoji, pictographs, and the rest of the supplementary symbol
		// planes.
		return false
	}
	switch {
	case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
		return true
	case unicode.IsPunct(r):
		return true
	case unicode.Is(unicode.Sc, r), unicode.Is(unicode.Sm, r):
		// Currency and math signs read out fine ("$", "+", "%").
		return true
	default:
		return false
	}
}
