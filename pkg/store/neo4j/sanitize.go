package neo4j

import (
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`[^A-Za-z0-9_]`)

// sanitizeLabel strips everything a Cypher label cannot contain.
// Labels are interpolated, so an empty result falls back to Entity.
func sanitizeLabel(label string) string {
	clean := identifierPattern.ReplaceAllString(label, "")
	if clean == "" {
		return "Entity"
	}
	return clean
}

// sanitizeRelType uppercases and strips a relationship type, falling
// back to RELATED when nothing survives.
func sanitizeRelType(relType string) string {
	clean := identifierPattern.ReplaceAllString(strings.ToUpper(relType), "")
	if clean == "" {
		return "RELATED"
	}
	return clean
}
