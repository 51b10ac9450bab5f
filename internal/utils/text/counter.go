// Package text provides rune-aware helpers shared by the normalizer and the relay.
// Lengths in this repository are always counted in Unicode code points, so a
// limit of 500 means 500 characters regardless of script or emoji.
package text

import "unicode/utf8"

// CountRunes counts the number of Unicode characters (runes) in the given text.
//
// Examples:
//
//	CountRunes("hello")      // 5
//	CountRunes("こんにちは")   // 5
//	CountRunes("Hello👋")     // 6
//	CountRunes("")           // 0
func CountRunes(text string) int {
	return utf8.RuneCountInString(text)
}

// FirstRunes returns the first n runes of text. It never splits a multi-byte
// character. A non-positive n yields the empty string.
func FirstRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}
