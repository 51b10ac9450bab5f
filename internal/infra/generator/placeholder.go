package generator

import (
	"context"
	"strings"
)

// textMarker opens the input section of every relay prompt.
const textMarker = "Text:\n"

// Placeholder is a generator that echoes the prompt's input section with
// whitespace collapsed. It needs no credentials and never fails, which makes
// it useful for local development and for clients testing the relay contract.
type Placeholder struct{}

// NewPlaceholder creates a new Placeholder generator.
func NewPlaceholder() *Placeholder {
	return &Placeholder{}
}

// Provider returns "placeholder".
func (p *Placeholder) Provider() string { return ProviderPlaceholder }

// Generate returns the text after the first "Text:" line of prompt, or the
// whole prompt when there is no such line.
func (p *Placeholder) Generate(_ context.Context, prompt string) (string, error) {
	input := prompt
	if strings.HasPrefix(prompt, textMarker) {
		input = prompt[len(textMarker):]
	} else if _, after, ok := strings.Cut(prompt, "\n"+textMarker); ok {
		input = after
	}
	return strings.Join(strings.Fields(input), " "), nil
}

// Health always reports healthy.
func (p *Placeholder) Health(_ context.Context) (*HealthStatus, error) {
	return &HealthStatus{
		Provider: ProviderPlaceholder,
		Healthy:  true,
		Message:  "placeholder generator",
	}, nil
}
