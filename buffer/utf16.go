package buffer

import "unicode/utf8"

// utf16Width returns the number of UTF-16 code units needed to encode r.
// Invalid runes are encoded as U+FFFD and take one unit.
func utf16Width(r rune) int {
	if r >= 0x10000 && r <= utf8.MaxRune {
		return 2
	}
	return 1
}

// UTF16Len returns the length of s in UTF-16 code units.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16Width(r)
	}
	return n
}

// CodepointToUTF16 returns the UTF-16 offset of the cp'th codepoint of s.
// cp is clamped to [0, number of codepoints].
func CodepointToUTF16(s string, cp int) int {
	units := 0
	i := 0
	for _, r := range s {
		if i >= cp {
			break
		}
		units += utf16Width(r)
		i++
	}
	return units
}

// UTF16ToCodepoint returns the codepoint index at UTF-16 offset u of s. u is
// clamped to the length of s. An offset landing on the second unit of a
// surrogate pair maps to the codepoint of that pair.
func UTF16ToCodepoint(s string, u int) int {
	units := 0
	i := 0
	for _, r := range s {
		w := utf16Width(r)
		if units+w > u {
			break
		}
		units += w
		i++
	}
	return i
}
