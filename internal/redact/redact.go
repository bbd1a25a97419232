// Package redact removes sensitive information from strings before they are
// logged or returned in error responses: credentials embedded in connection
// URLs, passwords, API keys and tokens, and (for errors) internal details such
// as file paths, SQL and stack traces.
package redact

import (
	"regexp"
)

// Placeholders substituted for redacted content.
const (
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedJWTPlaceholder        = "[REDACTED_JWT]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedSQLPlaceholder        = "[REDACTED_SQL]"
	RedactedStackPlaceholder      = "[STACK_TRACE_REDACTED]"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Applied in order. Replacements may use submatch references.
var secretRules = []rule{
	// user:password@ inside any scheme://, keeping scheme and host
	{regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://)[^/@\s]+@`), "${1}" + RedactedCredentialPlaceholder + "@"},
	{regexp.MustCompile(`(?i)\b(password|passwd|pwd)\s*[=:]\s*['"]?[^'"&\s]{3,}['"]?`), "${1}=" + RedactedCredentialPlaceholder},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), RedactedJWTPlaceholder},
	{regexp.MustCompile(`(?i)\b(api[_-]?key|token|secret|access[_-]?key)\s*[=:]\s*['"]?[A-Za-z0-9_\-.~+/]{8,}['"]?`), "${1}=" + RedactedKeyPlaceholder},
}

var internalRules = []rule{
	{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`), RedactedStackPlaceholder},
	{regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE|CREATE|ALTER|DROP)\b[\s\w,*()]+\b(FROM|INTO|SET|TABLE)\b[^;\n]*`), RedactedSQLPlaceholder},
	{regexp.MustCompile(`(^|[\s"'(=])(/[\w.-]+){2,}`), "${1}" + RedactedPathPlaceholder},
	{regexp.MustCompile(`[A-Za-z]:\\[^\\\s]+(\\[^\\\s]+)+`), RedactedPathPlaceholder},
}

func apply(input string, rules []rule) string {
	for _, r := range rules {
		input = r.pattern.ReplaceAllString(input, r.replacement)
	}
	return input
}

// String redacts secrets from input. Non-secret context such as hosts, ports
// and database names is left in place so the result stays useful in logs.
func String(input string) string {
	if input == "" {
		return input
	}
	return apply(input, secretRules)
}

// Error redacts secrets and internal details from an error's message.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return apply(String(err.Error()), internalRules)
}
