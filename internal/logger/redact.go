package logger

import "strings"

// RedactToken masks an API key or bearer token for logging.
// It keeps the first 8 characters so the value can be correlated across log
// lines, then appends "****".
//
//	"sk-proj-abcdefgh1234"  →  "sk-proj-****"
//	"tok_abc"               →  "tok_abc*"
//	""                      →  "[empty]"
func RedactToken(token string) string {
	if len(token) == 0 {
		return "[empty]"
	}
	if len(token) <= 8 {
		return token + "*"
	}
	return token[:8] + "****"
}

// Truncate shortens s to at most n bytes for log fields that may carry large
// upstream payloads, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n]) + "…"
}
