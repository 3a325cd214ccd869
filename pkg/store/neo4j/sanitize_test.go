package neo4j

import "testing"

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain label", "Company", "Company"},
		{"spaces stripped", "Financial Metric", "FinancialMetric"},
		{"injection attempt", "Company) DETACH DELETE (n", "CompanyDETACHDELETEn"},
		{"empty falls back", "", "Entity"},
		{"only symbols falls back", "!!!", "Entity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeLabel(tt.input); got != tt.expected {
				t.Errorf("sanitizeLabel(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizeRelType(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase uppercased", "supplies", "SUPPLIES"},
		{"spaces stripped", "depends on", "DEPENDSON"},
		{"underscores kept", "DEPENDS_ON", "DEPENDS_ON"},
		{"empty falls back", "", "RELATED"},
		{"only symbols falls back", "->", "RELATED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeRelType(tt.input); got != tt.expected {
				t.Errorf("sanitizeRelType(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
