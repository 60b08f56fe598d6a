package views

import (
	"strings"
	"unicode"
)

// cleanText drops runes that tcell renders badly or that let chat content
// rearrange the screen: emoji modifiers and joiners, variation selectors,
// bidi overrides and control characters other than newline and tab.
func cleanText(s string) string {
	return strings.Map(func(r rune) rune {
		if dropRune(r) {
			return -1
		}
		return r
	}, s)
}

// cleanLine is cleanText for single-line cells: line breaks and tabs
// become spaces.
func cleanLine(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case dropRune(r):
			return -1
		}
		return r
	}, s)
}

func dropRune(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF: // skin tones
		return true
	case r == 0x200D: // zero width joiner
		return true
	case r >= 0xFE00 && r <= 0xFE0F, r >= 0xE0100 && r <= 0xE01EF: // variation selectors
		return true
	case r >= 0x202A && r <= 0x202E, r >= 0x2066 && r <= 0x2069: // bidi embedding and isolates
		return true
	case r == '\n' || r == '\t':
		return false
	}
	return unicode.IsControl(r)
}
