package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"

	"gopkg.in/yaml.v3"

	"drafty-relay/internal/normalizer"
	"drafty-relay/internal/usecase/relay"
)

// PolicyProfile overrides the built-in relay modes. Fields left out of the
// file keep their built-in values.
//
//	modes:
//	  digest:
//	    max_length: 800
//	    paragraphs:
//	      min_length: 200
//	    fallback: "Digest unavailable."
type PolicyProfile struct {
	Modes map[string]ModeProfile `yaml:"modes"`
}

// ModeProfile is the YAML form of relay.ModeConfig.
type ModeProfile struct {
	MaxLength     *int               `yaml:"max_length"`
	InputLimit    *int               `yaml:"input_limit"`
	SentenceRatio *float64           `yaml:"sentence_ratio"`
	Ellipsis      *string            `yaml:"ellipsis"`
	Paragraphs    *ParagraphsProfile `yaml:"paragraphs"`
	Fallback      *string            `yaml:"fallback"`
	Instructions  []string           `yaml:"instructions"`
	Fields        []string           `yaml:"fields"`
}

// ParagraphsProfile toggles and tunes the paragraph-preserving variant.
type ParagraphsProfile struct {
	Enabled               *bool `yaml:"enabled"`
	MinLength             *int  `yaml:"min_length"`
	SentencesPerParagraph *int  `yaml:"sentences_per_paragraph"`
}

// LoadPolicyProfile reads a profile from a YAML file. Unknown keys are rejected.
// The path parameter is expected to come from a trusted source (POLICY_FILE).
func LoadPolicyProfile(path string) (*PolicyProfile, error) {
	// #nosec G304 -- path comes from operator configuration, not request input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicyProfile(data)
}

// ParsePolicyProfile decodes a profile document.
func ParsePolicyProfile(data []byte) (*PolicyProfile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var profile PolicyProfile
	if err := dec.Decode(&profile); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	return &profile, nil
}

// Apply returns a copy of base with the profile's overrides applied and
// validated. Modes not present in base are rejected.
func (p *PolicyProfile) Apply(base map[relay.Mode]relay.ModeConfig) (map[relay.Mode]relay.ModeConfig, error) {
	modes := maps.Clone(base)
	if p == nil {
		return modes, nil
	}

	for name, mp := range p.Modes {
		mode := relay.Mode(name)
		cfg, ok := modes[mode]
		if !ok {
			return nil, fmt.Errorf("policy file: %w: %q", relay.ErrUnknownMode, name)
		}
		cfg = mp.apply(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("policy file: mode %q: %w", name, err)
		}
		modes[mode] = cfg
	}
	return modes, nil
}

func (mp ModeProfile) apply(cfg relay.ModeConfig) relay.ModeConfig {
	if mp.MaxLength != nil {
		cfg.Policy.MaxLength = *mp.MaxLength
	}
	if mp.InputLimit != nil {
		cfg.InputLimit = *mp.InputLimit
	}
	if mp.SentenceRatio != nil {
		cfg.Policy.SentenceRatio = *mp.SentenceRatio
	}
	if mp.Ellipsis != nil {
		cfg.Policy.Ellipsis = *mp.Ellipsis
	}
	if mp.Paragraphs != nil {
		cfg.Policy.Paragraphs = mp.Paragraphs.apply(cfg.Policy.Paragraphs)
	}
	if mp.Fallback != nil {
		cfg.Fallback, cfg.FallbackMessage = relay.ParseFallback(*mp.Fallback)
	}
	if mp.Instructions != nil {
		cfg.Instructions = mp.Instructions
	}
	if mp.Fields != nil {
		cfg.Fields = mp.Fields
	}
	return cfg
}

func (pp ParagraphsProfile) apply(current *normalizer.ParagraphPolicy) *normalizer.ParagraphPolicy {
	if pp.Enabled != nil && !*pp.Enabled {
		return nil
	}

	policy := normalizer.DefaultParagraphPolicy()
	if current != nil {
		policy = *current
	}
	if pp.MinLength != nil {
		policy.MinLength = *pp.MinLength
	}
	if pp.SentencesPerParagraph != nil {
		policy.SentencesPerParagraph = *pp.SentencesPerParagraph
	}
	return &policy
}
