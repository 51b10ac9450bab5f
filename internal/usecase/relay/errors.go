// Package relay implements the text relay use case: it validates a client
// request, builds a prompt for the selected mode, asks a TextGenerator for a
// candidate, normalizes the candidate and substitutes a fallback when nothing
// usable came back.
package relay

import "errors"

// Sentinel errors for relay operations. Only validation errors reach callers;
// generator failures end in a fallback result instead.
var (
	// ErrEmptyText indicates the request text is empty after trimming.
	ErrEmptyText = errors.New("text is required")

	// ErrUnknownMode indicates a mode with no configuration.
	ErrUnknownMode = errors.New("unknown mode")
)

// IsValidationError reports whether err is caused by bad client input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyText) || errors.Is(err, ErrUnknownMode)
}
