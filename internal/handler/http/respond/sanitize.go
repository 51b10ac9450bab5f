package respond

import (
	"regexp"
)

var (
	// Anthropic keys also match the OpenAI pattern, so they are masked first.
	anthropicKeyPattern = regexp.MustCompile(`sk-ant-[a-zA-Z0-9-_]+`)
	openaiKeyPattern    = regexp.MustCompile(`sk-(?:proj-)?[a-zA-Z0-9_-]{10,}`)
	googleKeyPattern    = regexp.MustCompile(`AIza[0-9A-Za-z_-]{30,}`)

	// Gemini REST calls may carry the key as a query parameter.
	queryKeyPattern = regexp.MustCompile(`([?&]key=)[^&\s"]+`)
)

// SanitizeError returns the error message with provider API keys masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	msg = anthropicKeyPattern.ReplaceAllString(msg, "sk-ant-****")
	msg = openaiKeyPattern.ReplaceAllString(msg, "sk-****")
	msg = googleKeyPattern.ReplaceAllString(msg, "AIza****")
	msg = queryKeyPattern.ReplaceAllString(msg, "${1}****")
	return msg
}
