package relay

import (
	"fmt"
	"strings"

	"drafty-relay/internal/utils/text"
)

// Request defaults, matching what the browser extension and keyboard send.
const (
	DefaultType     = "community"
	DefaultTone     = "neutral"
	DefaultLanguage = "auto"
	DefaultPlatform = "ios-keyboard"
)

// maxOptionLength caps free-form option values rendered into prompts.
const maxOptionLength = 40

// Request is one relay call.
type Request struct {
	Mode     Mode
	Text     string
	Type     string
	Tone     string
	Language string
	Platform string
}

// Result is the text returned to the client.
type Result struct {
	Text      string
	Mode      Mode
	Fallback  bool
	Provider  string
	Truncated bool
}

// normalize validates r and fills defaults. Option values are free-form: the
// clients define their own tone and type choices. Each is reduced to a single
// short line so it cannot add lines to the prompt. Tone is lowercased.
func (r Request) normalize() (Request, error) {
	if strings.TrimSpace(r.Text) == "" {
		return r, ErrEmptyText
	}

	r.Type = option(r.Type, DefaultType)
	r.Language = option(r.Language, DefaultLanguage)
	r.Platform = option(r.Platform, DefaultPlatform)

	r.Tone = strings.ToLower(option(r.Tone, DefaultTone))
	return r, nil
}

func option(v, def string) string {
	v = strings.Join(strings.Fields(v), " ")
	if v == "" {
		return def
	}
	return text.FirstRunes(v, maxOptionLength)
}

// buildPrompt renders the prompt for a mode. The input always follows a
// "Text:" line at the end.
func buildPrompt(cfg ModeConfig, r Request) string {
	lines := make([]string, 0, len(cfg.Instructions)+len(cfg.Fields)+4)
	lines = append(lines, cfg.Instructions...)
	lines = append(lines,
		"No markdown. No explanations. No preamble.",
		fmt.Sprintf("No longer than %d characters.", cfg.Policy.MaxLength))

	for _, f := range cfg.Fields {
		switch f {
		case FieldType:
			lines = append(lines, "Type: "+r.Type+".")
		case FieldTone:
			lines = append(lines, "Tone: "+r.Tone+".")
		case FieldLanguage:
			if r.Language == DefaultLanguage {
				lines = append(lines, "Language: same as the text.")
			} else {
				lines = append(lines, "Language: "+r.Language+".")
			}
		case FieldPlatform:
			lines = append(lines, "Platform: "+r.Platform+".")
		}
	}

	lines = append(lines, "Text:", r.Text)
	return strings.Join(lines, "\n")
}
