// Package normalize canonicalizes untrusted registry text before it is
// grouped or pattern-matched. Descriptions and server names come straight
// from publishers: duplicate-description grouping and template matching
// must not be defeated by zero-width characters, homoglyphs, or creative
// whitespace.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// invisibleRanges covers characters that render as nothing but break naive
// string equality: zero-width joiners, bidi controls, variation selectors,
// the Tags block, and the BOM.
var invisibleRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x00AD, Hi: 0x00AD, Stride: 1}, // soft hyphen
		{Lo: 0x200B, Hi: 0x200F, Stride: 1}, // zero-width space through RTL mark
		{Lo: 0x202A, Hi: 0x202E, Stride: 1}, // bidi embedding controls
		{Lo: 0x2060, Hi: 0x2064, Stride: 1}, // word joiner group
		{Lo: 0x2066, Hi: 0x2069, Stride: 1}, // bidi isolate controls
		{Lo: 0xFE00, Hi: 0xFE0F, Stride: 1}, // variation selectors
		{Lo: 0xFEFF, Hi: 0xFEFF, Stride: 1}, // BOM
	},
	R32: []unicode.Range32{
		{Lo: 0xE0000, Hi: 0xE007F, Stride: 1}, // Tags block
		{Lo: 0xE0100, Hi: 0xE01EF, Stride: 1}, // variation selectors supplement
	},
}

// confusables maps non-Latin characters that are visually identical to
// Latin letters. NFKC does not fold across scripts, so a Cyrillic "а"
// survives normalization and would split a duplicate-description group.
// Not exhaustive: covers the Cyrillic and Greek lookalikes that appear in
// English-language boilerplate.
var confusables = map[rune]rune{
	'А': 'a', 'В': 'b', 'С': 'c', 'Е': 'e',
	'Н': 'h', 'І': 'i', 'К': 'k', 'М': 'm',
	'О': 'o', 'Р': 'p', 'Т': 't', 'Х': 'x',
	'а': 'a', 'в': 'v', 'е': 'e', 'н': 'h',
	'і': 'i', 'к': 'k', 'м': 'm', 'о': 'o',
	'р': 'p', 'с': 'c', 'т': 't', 'у': 'y',
	'х': 'x', 'ѕ': 's',
	'Α': 'a', 'Β': 'b', 'Ε': 'e', 'Η': 'h',
	'Ι': 'i', 'Κ': 'k', 'Μ': 'm', 'Ν': 'n',
	'Ο': 'o', 'Ρ': 'p', 'Τ': 't', 'Υ': 'y',
	'α': 'a', 'ε': 'e', 'ι': 'i', 'κ': 'k',
	'ο': 'o',
}

func stripInvisible(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7F || (r >= 0x80 && r <= 0x9F) {
			if r == '\t' || r == '\n' || r == '\r' {
				return ' '
			}
			return -1
		}
		if unicode.Is(invisibleRanges, r) {
			return -1
		}
		return r
	}, s)
}

func foldConfusables(s string) string {
	return strings.Map(func(r rune) rune {
		if mapped, ok := confusables[r]; ok {
			return mapped
		}
		return r
	}, s)
}

func stripCombiningMarks(s string) string {
	s = norm.NFD.String(s)
	return strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, s)
}

// Description canonicalizes a registry description for duplicate grouping
// and template-prefix matching: strip invisibles, NFKC, fold homoglyphs,
// drop combining marks, lowercase, collapse runs of whitespace.
func Description(s string) string {
	s = stripInvisible(s)
	s = norm.NFKC.String(s)
	s = foldConfusables(s)
	s = stripCombiningMarks(s)
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// Ident canonicalizes an identifier-ish string (namespace, repo owner) for
// fuzzy equality: lowercase with separator characters removed, so
// "Acme-Corp" matches "acmecorp".
func Ident(s string) string {
	s = Description(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '-', '_', ' ':
			return -1
		}
		return r
	}, s)
}
