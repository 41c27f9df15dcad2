// Package redact strips credentials, tokens, SQL values and file paths from
// error text before it is logged.
package redact

import (
	"log/slog"
	"regexp"
)

// Placeholders substituted for redacted fragments.
const (
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	KeyPlaceholder        = "[REDACTED_KEY]"
	JWTPlaceholder        = "[REDACTED_JWT]"
	PathPlaceholder       = "[REDACTED_PATH]"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// rules run in order: a fragment consumed by an earlier rule is not seen by
// later ones.
var rules = []rule{
	// userinfo of connection URLs
	{regexp.MustCompile(`(?i)\b[a-z][a-z0-9+.-]*://[^@\s/]+@`), CredentialPlaceholder},
	{regexp.MustCompile(`(?i)\b(password|passwd|pwd)\s*[=:]\s*['"]?[^'"&\s]+['"]?`), CredentialPlaceholder},
	{regexp.MustCompile(`eyJ[\w-]+\.eyJ[\w-]+\.[\w-]+`), JWTPlaceholder},
	{regexp.MustCompile(`(?i)\b(jwt_secret|api[_-]?key|secret)\s*[=:]\s*['"]?[A-Za-z0-9_\-.~+/]{8,}['"]?`), KeyPlaceholder},
	{regexp.MustCompile(`(?i)\bVALUES\s*\([^)]*\)`), "VALUES [SQL_VALUES_REDACTED]"},
	{regexp.MustCompile(`(?i)\bWHERE\b[^;\n]*`), "WHERE [SQL_WHERE_REDACTED]"},
	{regexp.MustCompile(`(?:/[\w.-]+){2,}`), PathPlaceholder},
	{regexp.MustCompile(`[A-Za-z]:\\[^\\\s]+(?:\\[^\\\s]+)+`), PathPlaceholder},
}

// String redacts sensitive fragments of s.
func String(s string) string {
	if s == "" {
		return s
	}
	for _, r := range rules {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}

// Error redacts err's message. A nil error yields "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

// Attr is the "error" log attribute carrying the redacted message of err.
func Attr(err error) slog.Attr {
	return slog.String("error", Error(err))
}
