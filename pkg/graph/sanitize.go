package graph

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`[^A-Za-z0-9_]`)

// entityTypeMap closes the label vocabulary. Extraction output uses
// free-form type strings; anything outside this map becomes Entity.
var entityTypeMap = map[string]string{
	"COMPANY":          "Company",
	"PERSON":           "Person",
	"PRODUCT":          "Product",
	"LOCATION":         "Location",
	"COUNTRY":          "Country",
	"TECHNOLOGY":       "Technology",
	"TECH":             "Technology",
	"REGULATION":       "Regulation",
	"RISK":             "Risk",
	"CATALYST":         "Catalyst",
	"METRIC":           "Metric",
	"FINANCIAL_METRIC": "FinancialMetric",
	"INDICATOR":        "Indicator",
	"COMPONENT":        "Component",
	"MATERIAL":         "Material",
	"PROCESS":          "Process",
	"ENTITY":           "Entity",
}

// NormalizeEntityType maps a raw extracted type onto the closed label
// vocabulary, defaulting to Entity.
func NormalizeEntityType(entityType string) string {
	key := strings.ToUpper(strings.TrimSpace(entityType))
	key = strings.ReplaceAll(key, " ", "_")
	if label, ok := entityTypeMap[key]; ok {
		return label
	}
	return "Entity"
}

// SanitizeLabel reduces a node label to a bare identifier, falling
// back to Entity when nothing survives.
func SanitizeLabel(label string) string {
	clean := identifierPattern.ReplaceAllString(label, "")
	if clean == "" {
		return "Entity"
	}
	return clean
}

// SanitizeRelType uppercases a relationship type and strips everything
// but identifier characters, falling back to RELATED.
func SanitizeRelType(relType string) string {
	clean := strings.ToUpper(strings.TrimSpace(relType))
	clean = strings.ReplaceAll(clean, " ", "_")
	clean = identifierPattern.ReplaceAllString(clean, "")
	if clean == "" {
		return "RELATED"
	}
	return clean
}

// FilterProperties keeps primitive scalar values and stringifies
// everything else so property bags stay storable in any backend. Nil
// values are dropped.
func FilterProperties(properties map[string]any) map[string]any {
	if len(properties) == 0 {
		return nil
	}
	safe := make(map[string]any, len(properties))
	for key, value := range properties {
		switch value.(type) {
		case nil:
		case string, bool,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
			safe[key] = value
		default:
			safe[key] = fmt.Sprintf("%v", value)
		}
	}
	if len(safe) == 0 {
		return nil
	}
	return safe
}
