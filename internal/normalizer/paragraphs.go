package normalizer

import (
	"fmt"
	"strings"
	"unicode"

	"drafty-relay/internal/utils/text"
)

const (
	// DefaultParagraphMinLength is the input length, in runes, from which
	// paragraph breaks are synthesized.
	DefaultParagraphMinLength = 300

	// DefaultSentencesPerParagraph is how many sentences end up in each
	// synthesized paragraph.
	DefaultSentencesPerParagraph = 2
)

// ParagraphPolicy configures InsertParagraphBreaks. Zero fields take the defaults.
type ParagraphPolicy struct {
	MinLength             int
	SentencesPerParagraph int
}

// DefaultParagraphPolicy returns the policy used by the digest call path.
func DefaultParagraphPolicy() ParagraphPolicy {
	return ParagraphPolicy{
		MinLength:             DefaultParagraphMinLength,
		SentencesPerParagraph: DefaultSentencesPerParagraph,
	}
}

// Validate rejects negative values. Zero values are accepted and defaulted.
func (p ParagraphPolicy) Validate() error {
	if p.MinLength < 0 {
		return fmt.Errorf("paragraph min length must be positive, got %d", p.MinLength)
	}
	if p.SentencesPerParagraph < 0 {
		return fmt.Errorf("sentences per paragraph must be positive, got %d", p.SentencesPerParagraph)
	}
	return nil
}

func (p ParagraphPolicy) withDefaults() ParagraphPolicy {
	if p.MinLength == 0 {
		p.MinLength = DefaultParagraphMinLength
	}
	if p.SentencesPerParagraph == 0 {
		p.SentencesPerParagraph = DefaultSentencesPerParagraph
	}
	return p
}

// InsertParagraphBreaks is a fallback for providers that ignore formatting
// instructions. When s is at least MinLength runes long and has no blank-line
// break, the whitespace after every SentencesPerParagraph-th sentence is replaced
// by a blank line. Text that already contains a blank-line break between two
// paragraphs is returned as is, and no break is ever added after the final
// sentence. Leading and trailing whitespace count toward neither check.
func InsertParagraphBreaks(s string, p ParagraphPolicy) string {
	p = p.withDefaults()
	body := strings.TrimSpace(s)
	if text.CountRunes(body) < p.MinLength || HasParagraphBreak(body) {
		return s
	}

	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 16)

	sentences := 0
	for i := 0; i < len(runes); i++ {
		b.WriteRune(runes[i])
		if !isTerminal(runes[i]) {
			continue
		}

		// "?!" and "..." end a single sentence.
		j := i + 1
		for j < len(runes) && isTerminal(runes[j]) {
			b.WriteRune(runes[j])
			j++
		}
		i = j - 1

		if j == len(runes) || !unicode.IsSpace(runes[j]) {
			continue
		}
		sentences++
		if sentences%p.SentencesPerParagraph != 0 {
			continue
		}

		k := j
		for k < len(runes) && unicode.IsSpace(runes[k]) {
			k++
		}
		if k == len(runes) {
			continue
		}
		b.WriteString("\n\n")
		i = k - 1
	}
	return b.String()
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
