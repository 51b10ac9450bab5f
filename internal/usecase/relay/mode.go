package relay

import (
	"fmt"
	"strings"

	"drafty-relay/internal/normalizer"
)

// Mode names a relay operation.
type Mode string

// Supported modes.
const (
	ModePolish  Mode = "polish"
	ModeDigest  Mode = "digest"
	ModeRewrite Mode = "rewrite"
	ModeMobile  Mode = "mobile"
)

// Prompt fields a mode may include after its instructions.
const (
	FieldType     = "type"
	FieldTone     = "tone"
	FieldLanguage = "language"
	FieldPlatform = "platform"
)

// DefaultInputLimit caps request text for modes that set no limit of their own.
const DefaultInputLimit = 10000

// DigestFallbackMessage is returned when a digest could not be produced.
const DigestFallbackMessage = "Unable to digest this text right now. Please try again."

// FallbackKind selects what a mode returns when no usable candidate exists.
type FallbackKind int

const (
	// FallbackInput returns the (capped) request text unchanged.
	FallbackInput FallbackKind = iota
	// FallbackCollapsedInput returns the request text with whitespace collapsed.
	FallbackCollapsedInput
	// FallbackMessage returns ModeConfig.FallbackMessage.
	FallbackMessage
)

// ParseFallback maps a profile value to a fallback. "input" and
// "input_collapsed" select the request text; anything else is a fixed message.
func ParseFallback(s string) (FallbackKind, string) {
	switch strings.TrimSpace(s) {
	case "input":
		return FallbackInput, ""
	case "input_collapsed":
		return FallbackCollapsedInput, ""
	default:
		return FallbackMessage, s
	}
}

// ModeConfig describes one relay mode.
type ModeConfig struct {
	// Policy bounds the normalized result.
	Policy normalizer.Policy

	// InputLimit caps the request text in runes. Zero means DefaultInputLimit.
	InputLimit int

	Fallback        FallbackKind
	FallbackMessage string

	// Instructions open the prompt, one line each.
	Instructions []string

	// Fields lists the request options rendered into the prompt, in order.
	Fields []string
}

// Validate checks the mode configuration.
func (c ModeConfig) Validate() error {
	if c.Policy.MaxLength <= 0 {
		return fmt.Errorf("max length must be positive, got %d", c.Policy.MaxLength)
	}
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	if c.InputLimit < 0 {
		return fmt.Errorf("input limit must not be negative, got %d", c.InputLimit)
	}
	if c.Fallback == FallbackMessage && strings.TrimSpace(c.FallbackMessage) == "" {
		return fmt.Errorf("fallback message cannot be empty")
	}
	if len(c.Instructions) == 0 {
		return fmt.Errorf("prompt instructions cannot be empty")
	}
	for _, f := range c.Fields {
		switch f {
		case FieldType, FieldTone, FieldLanguage, FieldPlatform:
		default:
			return fmt.Errorf("unknown prompt field %q", f)
		}
	}
	return nil
}

func (c ModeConfig) inputLimit() int {
	if c.InputLimit == 0 {
		return DefaultInputLimit
	}
	return c.InputLimit
}

// DefaultModes returns the built-in mode table.
func DefaultModes() map[Mode]ModeConfig {
	paragraphs := normalizer.DefaultParagraphPolicy()

	return map[Mode]ModeConfig{
		ModePolish: {
			Policy:     normalizer.NewPolicy(900),
			InputLimit: DefaultInputLimit,
			Fallback:   FallbackInput,
			Instructions: []string{
				"You are Drafty Polish.",
				"Rewrite the text to be smoother and clearer while keeping its meaning.",
				"Fix grammar and spelling. Keep names, numbers and links intact.",
				"Return ONLY the rewritten text.",
			},
			Fields: []string{FieldTone, FieldLanguage},
		},
		ModeDigest: {
			Policy:          normalizer.Policy{MaxLength: 1200, Paragraphs: &paragraphs},
			InputLimit:      DefaultInputLimit,
			Fallback:        FallbackMessage,
			FallbackMessage: DigestFallbackMessage,
			Instructions: []string{
				"You are Drafty Digest.",
				"Summarize the text into a short digest a busy reader can skim.",
				"Use plain sentences and separate paragraphs with a blank line.",
				"Return ONLY the digest.",
			},
			Fields: []string{FieldLanguage},
		},
		ModeRewrite: {
			Policy:     normalizer.NewPolicy(900),
			InputLimit: DefaultInputLimit,
			Fallback:   FallbackInput,
			Instructions: []string{
				"You are Drafty Rewrite.",
				"Rewrite the text for the given post type and tone.",
				"Keep the author's intent and facts unchanged.",
				"Return ONLY the rewritten text.",
			},
			Fields: []string{FieldType, FieldTone, FieldLanguage},
		},
		ModeMobile: {
			Policy:     normalizer.NewPolicy(500),
			InputLimit: 500,
			Fallback:   FallbackCollapsedInput,
			Instructions: []string{
				"You are Drafty Polish for mobile.",
				"Rewrite the text to be smoother and clearer.",
				"Return ONLY the rewritten text.",
				"Keep it concise and no longer than the input.",
			},
			Fields: []string{FieldTone, FieldPlatform},
		},
	}
}
