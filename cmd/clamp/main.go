// Package main runs the output normalizer over stdin, offline.
// Usage: drafty-clamp [--mode polish|digest|rewrite|mobile] [--policy FILE] [--max N] [--paragraphs] [--output json]
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"drafty-relay/internal/config"
	"drafty-relay/internal/normalizer"
	"drafty-relay/internal/observability/logging"
	"drafty-relay/internal/usecase/relay"
	"drafty-relay/internal/utils/text"
)

// ClampOutput is the JSON output format.
type ClampOutput struct {
	Text        string `json:"text"`
	Cut         string `json:"cut"`
	InputLength int    `json:"input_length"`
	Length      int    `json:"length"`
	MaxLength   int    `json:"max_length"`
}

type options struct {
	mode       string
	policyFile string
	maxLength  int
	paragraphs bool
	ellipsis   string
	output     string
	logLevel   string
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var opts options
	fs := flag.NewFlagSet("drafty-clamp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.mode, "mode", "", "Use the policy of a relay mode: polish, digest, rewrite or mobile")
	fs.StringVar(&opts.policyFile, "policy", "", "YAML policy profile applied to the relay modes")
	fs.IntVar(&opts.maxLength, "max", 0, "Maximum output length in characters (overrides the mode)")
	fs.BoolVar(&opts.paragraphs, "paragraphs", false, "Keep paragraphs and insert breaks into long text")
	fs.StringVar(&opts.ellipsis, "ellipsis", "", "Truncation marker (default \"...\")")
	fs.StringVar(&opts.output, "output", "text", "Output format: text or json")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "Log level for diagnostics on stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.output != "text" && opts.output != "json" {
		return fmt.Errorf("invalid output %q (must be text or json)", opts.output)
	}

	logger := logging.NewTextLogger(stderr, opts.logLevel)

	policy, err := resolvePolicy(opts)
	if err != nil {
		return err
	}

	input, err := io.ReadAll(stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	outcome := policy.Normalize(string(input))
	logger.Debug("normalized",
		slog.Int("input_length", text.CountRunes(string(input))),
		slog.Int("length", text.CountRunes(outcome.Text)),
		slog.String("cut", outcome.Cut.String()))
	if outcome.Text == "" {
		logger.Warn("no usable text in input")
	}

	if opts.output == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ClampOutput{
			Text:        outcome.Text,
			Cut:         outcome.Cut.String(),
			InputLength: text.CountRunes(string(input)),
			Length:      text.CountRunes(outcome.Text),
			MaxLength:   policy.MaxLength,
		})
	}
	_, err = fmt.Fprintln(stdout, outcome.Text)
	return err
}

// resolvePolicy starts from the selected mode, or a flat 900-character
// policy, and applies the flag overrides.
func resolvePolicy(opts options) (normalizer.Policy, error) {
	policy := normalizer.NewPolicy(900)

	if opts.mode != "" || opts.policyFile != "" {
		modes := relay.DefaultModes()
		if opts.policyFile != "" {
			profile, err := config.LoadPolicyProfile(opts.policyFile)
			if err != nil {
				return policy, err
			}
			if modes, err = profile.Apply(modes); err != nil {
				return policy, err
			}
		}
		mode := relay.Mode(opts.mode)
		if mode == "" {
			mode = relay.ModePolish
		}
		cfg, ok := modes[mode]
		if !ok {
			return policy, fmt.Errorf("%w: %q", relay.ErrUnknownMode, opts.mode)
		}
		policy = cfg.Policy
	}

	if opts.maxLength != 0 {
		policy.MaxLength = opts.maxLength
	}
	if opts.paragraphs && policy.Paragraphs == nil {
		pp := normalizer.DefaultParagraphPolicy()
		policy.Paragraphs = &pp
	}
	if opts.ellipsis != "" {
		policy.Ellipsis = opts.ellipsis
	}
	if err := policy.Validate(); err != nil {
		return policy, errors.Join(errors.New("invalid policy"), err)
	}
	return policy, nil
}
