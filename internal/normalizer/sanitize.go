// Package normalizer turns raw generation-provider candidates into clean, bounded
// text that is safe to show a user or splice back into a document.
//
// Every function in this package is pure: no I/O, no shared state, no errors.
// Garbage or empty input yields either the empty string or a bounded clean string.
// The empty string is the single "no usable output" signal; what to substitute
// for it is decided by the caller.
package normalizer

import (
	"regexp"
	"strings"
)

var (
	// fencedBlockPattern matches a complete ``` ... ``` block, markers included.
	fencedBlockPattern = regexp.MustCompile("(?s)```.*?```")

	// paragraphBreakPattern matches a blank-line break, tolerating whitespace
	// on the otherwise empty line.
	paragraphBreakPattern = regexp.MustCompile(`\n\s*\n`)
)

// Sanitize removes fenced code blocks and inline-code backticks, collapses every
// whitespace run into a single space and trims the result.
//
// The output never contains a backtick or two consecutive whitespace characters,
// and Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(candidate string) string {
	if candidate == "" {
		return ""
	}
	return collapseWhitespace(stripCode(candidate))
}

// SanitizeParagraphs is the paragraph-preserving variant of Sanitize. Code is
// stripped as in Sanitize and whitespace is collapsed inside each paragraph
// while a single blank line is kept between paragraphs. When that leaves a
// single paragraph, InsertParagraphBreaks runs on it.
//
// Breaks are decided on the collapsed text, so SanitizeParagraphs is idempotent.
func SanitizeParagraphs(candidate string, p ParagraphPolicy) string {
	if candidate == "" {
		return ""
	}
	s := collapseParagraphs(stripCode(candidate))
	if strings.Contains(s, "\n\n") {
		return s
	}
	return collapseParagraphs(InsertParagraphBreaks(s, p))
}

// HasParagraphBreak reports whether s contains a blank-line break.
func HasParagraphBreak(s string) bool {
	return paragraphBreakPattern.MatchString(s)
}

func stripCode(s string) string {
	s = fencedBlockPattern.ReplaceAllString(s, "")
	return strings.ReplaceAll(s, "`", "")
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func collapseParagraphs(s string) string {
	parts := paragraphBreakPattern.Split(s, -1)
	paragraphs := make([]string, 0, len(parts))
	for _, part := range parts {
		if collapsed := collapseWhitespace(part); collapsed != "" {
			paragraphs = append(paragraphs, collapsed)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}
