package util

import "strings"

// SanitizeText strips invalid UTF-8 and NUL bytes, which Postgres TEXT
// columns reject, from document content before it enters the pipeline.
func SanitizeText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}
