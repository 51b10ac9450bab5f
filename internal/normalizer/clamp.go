package normalizer

import (
	"fmt"
	"strings"
	"unicode"

	"drafty-relay/internal/utils/text"
)

const (
	// DefaultSentenceRatio is the minimum share of MaxLength a sentence-bounded
	// prefix must cover to be preferred over a word-boundary cut.
	DefaultSentenceRatio = 0.6

	// DefaultEllipsis marks a word-boundary or hard cut.
	DefaultEllipsis = "..."
)

// Cut identifies how Normalize bounded a candidate.
type Cut int

const (
	// CutNone means the sanitized candidate already fit.
	CutNone Cut = iota
	// CutSentence means the result ends on a sentence boundary.
	CutSentence
	// CutWord means the result was cut at whitespace and ends in the ellipsis.
	CutWord
	// CutHard means whitespace existed but too close to the limit for the
	// ellipsis to fit, so the text was cut mid-word.
	CutHard
	// CutOverflow is the single unbroken token case: the slice plus the ellipsis,
	// exceeding MaxLength by the ellipsis length.
	CutOverflow
	// CutEmpty means nothing usable survived sanitization.
	CutEmpty
)

// String returns the metric label for the cut.
func (c Cut) String() string {
	switch c {
	case CutNone:
		return "none"
	case CutSentence:
		return "sentence"
	case CutWord:
		return "word"
	case CutHard:
		return "hard"
	case CutOverflow:
		return "overflow"
	case CutEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Policy bounds normalized output for one endpoint or use case.
//
// Zero SentenceRatio and Ellipsis take the defaults. A nil Paragraphs selects the
// flat Sanitize variant; a non-nil one selects SanitizeParagraphs.
type Policy struct {
	MaxLength     int
	SentenceRatio float64
	Ellipsis      string
	Paragraphs    *ParagraphPolicy
}

// Outcome is the normalized text plus how it was bounded.
type Outcome struct {
	Text string
	Cut  Cut
}

// NewPolicy returns a flat policy with default ratio and ellipsis.
func NewPolicy(maxLength int) Policy {
	return Policy{MaxLength: maxLength}
}

// Validate checks that the policy can produce bounded output.
func (p Policy) Validate() error {
	if p.MaxLength <= 0 {
		return fmt.Errorf("max length must be positive, got %d", p.MaxLength)
	}
	if p.SentenceRatio < 0 || p.SentenceRatio > 1 {
		return fmt.Errorf("sentence ratio must be between 0 and 1, got %v", p.SentenceRatio)
	}
	if p.Paragraphs != nil {
		if err := p.Paragraphs.Validate(); err != nil {
			return fmt.Errorf("invalid paragraph policy: %w", err)
		}
	}
	return nil
}

// Clamp sanitizes candidate with the default flat policy and bounds it to
// maxLength runes.
func Clamp(candidate string, maxLength int) string {
	return NewPolicy(maxLength).Clamp(candidate)
}

// Clamp sanitizes and bounds candidate according to p.
func (p Policy) Clamp(candidate string) string {
	return p.Normalize(candidate).Text
}

// Normalize sanitizes candidate and bounds it to MaxLength runes:
//
//  1. an empty sanitized candidate yields "";
//  2. text within MaxLength is returned unchanged, without a marker;
//  3. otherwise the longest prefix of the first MaxLength runes ending in
//     '.', '!' or '?' is used when it covers at least SentenceRatio*MaxLength;
//  4. otherwise the text is cut at the last whitespace that leaves room for
//     the ellipsis;
//  5. a single unbroken token gets the ellipsis appended past the limit.
//
// A non-positive MaxLength disables bounding.
func (p Policy) Normalize(candidate string) Outcome {
	p = p.withDefaults()

	safe := p.sanitize(candidate)
	if safe == "" {
		return Outcome{Cut: CutEmpty}
	}
	if p.MaxLength <= 0 || text.CountRunes(safe) <= p.MaxLength {
		return Outcome{Text: safe, Cut: CutNone}
	}

	head := text.FirstRunes(safe, p.MaxLength)
	slice := strings.TrimRightFunc(head, unicode.IsSpace)

	if prefix, ok := p.sentencePrefix(slice); ok {
		return Outcome{Text: prefix, Cut: CutSentence}
	}
	return p.wordCut(head, slice)
}

func (p Policy) withDefaults() Policy {
	if p.SentenceRatio == 0 {
		p.SentenceRatio = DefaultSentenceRatio
	}
	if p.Ellipsis == "" {
		p.Ellipsis = DefaultEllipsis
	}
	return p
}

func (p Policy) sanitize(candidate string) string {
	if p.Paragraphs != nil {
		return SanitizeParagraphs(candidate, *p.Paragraphs)
	}
	return Sanitize(candidate)
}

func (p Policy) sentencePrefix(slice string) (string, bool) {
	idx := strings.LastIndexAny(slice, ".!?")
	if idx < 0 {
		return "", false
	}
	prefix := strings.TrimSpace(slice[:idx+1])
	// The epsilon keeps 0.6*MaxLength inclusive despite float rounding.
	if float64(text.CountRunes(prefix))+1e-9 < p.SentenceRatio*float64(p.MaxLength) {
		return "", false
	}
	return prefix, true
}

// wordCut handles steps 4 and 5. head is the untrimmed first MaxLength runes,
// slice the same text with trailing whitespace removed.
func (p Policy) wordCut(head, slice string) Outcome {
	hasSpace := strings.IndexFunc(head, unicode.IsSpace) >= 0
	budget := p.MaxLength - text.CountRunes(p.Ellipsis)

	if budget <= 0 {
		if hasSpace {
			return Outcome{Text: slice, Cut: CutHard}
		}
		return Outcome{Text: slice + p.Ellipsis, Cut: CutOverflow}
	}

	// A cut at rune index i leaves i runes, so spaces up to index budget fit.
	window := text.FirstRunes(slice, budget+1)
	if idx := strings.LastIndexFunc(window, unicode.IsSpace); idx > 0 {
		return Outcome{
			Text: strings.TrimRightFunc(slice[:idx], unicode.IsSpace) + p.Ellipsis,
			Cut:  CutWord,
		}
	}

	if hasSpace {
		cut := strings.TrimRightFunc(text.FirstRunes(slice, budget), unicode.IsSpace)
		return Outcome{Text: cut + p.Ellipsis, Cut: CutHard}
	}
	return Outcome{Text: slice + p.Ellipsis, Cut: CutOverflow}
}
