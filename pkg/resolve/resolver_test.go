package resolve

import (
	"testing"
)

func newTestResolver() *Resolver {
	return NewResolver(Config{Aliases: DefaultAliases()})
}

func TestResolve_AliasTable(t *testing.T) {
	resolver := newTestResolver()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"ticker symbol", "NVDA", "Nvidia"},
		{"lowercase form", "nvidia", "Nvidia"},
		{"legal name", "NVIDIA Corporation", "Nvidia"},
		{"canonical passthrough", "TSMC", "TSMC"},
		{"ticker with whitespace", "  INTC  ", "Intel"},
		{"case-insensitive exact", "amd inc", "AMD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolver.Resolve(tt.input); got != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestResolve_SubstringContainment(t *testing.T) {
	resolver := newTestResolver()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"mention contains alias", "Taiwan Semiconductor Manufacturing Company Ltd", "TSMC"},
		{"alias contains mention", "Advanced Micro", "AMD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolver.Resolve(tt.input); got != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestResolve_FuzzyThreshold(t *testing.T) {
	resolver := newTestResolver()

	// One trailing character off still folds into the existing
	// canonical name under the default threshold.
	if got := resolver.Resolve("Nvidiaa"); got != "Nvidia" {
		t.Errorf("Resolve(Nvidiaa) = %q, want Nvidia", got)
	}

	// The same typo with a stricter threshold becomes a new entity.
	strict := NewResolver(Config{SimilarityThreshold: 0.99, Aliases: map[string][]string{
		"Nvidia": {"NVDA"},
	}})
	if got := strict.Resolve("Nvidiaa"); got != "Nvidiaa" {
		t.Errorf("Resolve(Nvidiaa) with strict threshold = %q, want Nvidiaa", got)
	}
}

func TestResolve_UnknownBecomesCanonical(t *testing.T) {
	resolver := newTestResolver()

	if got := resolver.Resolve("Foxconn"); got != "Foxconn" {
		t.Fatalf("Resolve(Foxconn) = %q, want Foxconn", got)
	}
	// The new canonical name is registered, so later variants fold in.
	if got := resolver.Resolve("foxconn"); got != "Foxconn" {
		t.Errorf("Resolve(foxconn) = %q, want Foxconn", got)
	}
}

func TestResolve_EmptyInputUnchanged(t *testing.T) {
	resolver := newTestResolver()

	for _, input := range []string{"", "   ", "\t\n"} {
		if got := resolver.Resolve(input); got != input {
			t.Errorf("Resolve(%q) = %q, want input unchanged", input, got)
		}
	}
	if stats := resolver.Stats(); stats.CachedResolutions != 0 {
		t.Errorf("expected no cached resolutions for empty input, got %d", stats.CachedResolutions)
	}
}

func TestResolve_AliasSymmetry(t *testing.T) {
	resolver := newTestResolver()

	canonical := resolver.Resolve("Micron")
	for _, alias := range resolver.Aliases(canonical) {
		if got := resolver.Resolve(alias); got != canonical {
			t.Errorf("Resolve(%q) = %q, want %q", alias, got, canonical)
		}
	}
}

func TestResolve_RegistersRawAsAlias(t *testing.T) {
	resolver := newTestResolver()

	resolver.Resolve("NVIDIA Corp")
	found := false
	for _, alias := range resolver.Aliases("Nvidia") {
		if alias == "NVIDIA Corp" {
			found = true
		}
	}
	if !found {
		t.Error("expected raw mention to be registered as alias of Nvidia")
	}
}

func TestResolve_Memoization(t *testing.T) {
	resolver := newTestResolver()

	first := resolver.Resolve("Taiwan Semiconductor")
	second := resolver.Resolve("Taiwan Semiconductor")
	if first != second {
		t.Errorf("repeated resolution differs: %q vs %q", first, second)
	}
	if stats := resolver.Stats(); stats.CachedResolutions != 1 {
		t.Errorf("expected 1 cached resolution, got %d", stats.CachedResolutions)
	}
}

func TestResolver_Reset(t *testing.T) {
	resolver := newTestResolver()
	resolver.Resolve("NVDA")

	resolver.Reset()

	stats := resolver.Stats()
	if stats.UniqueEntities != 0 || stats.TotalAliases != 0 || stats.CachedResolutions != 0 {
		t.Errorf("expected empty resolver after reset, got %+v", stats)
	}
	// Without the alias table the ticker is its own canonical name.
	if got := resolver.Resolve("NVDA"); got != "NVDA" {
		t.Errorf("Resolve(NVDA) after reset = %q, want NVDA", got)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		min  float64
		max  float64
	}{
		{"identical", "Nvidia", "Nvidia", 1.0, 1.0},
		{"case only", "NVIDIA", "nvidia", 1.0, 1.0},
		{"containment floor", "Intel Corporation Worldwide", "Intel", 0.9, 1.0},
		{"token overlap", "Samsung Electronics Co", "Samsung Electronics", 0.6, 1.0},
		{"unrelated", "Nvidia", "Boeing", 0.0, 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Errorf("Similarity(%q, %q) = %f, want in [%f, %f]", tt.a, tt.b, got, tt.min, tt.max)
			}
		})
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"Nvidia", "NVIDIA Corporation"},
		{"Taiwan Semiconductor", "TSMC"},
		{"Micron Technology", "Micron"},
	}
	for _, pair := range pairs {
		ab := Similarity(pair[0], pair[1])
		ba := Similarity(pair[1], pair[0])
		if ab != ba {
			t.Errorf("Similarity(%q, %q) = %f but reversed = %f", pair[0], pair[1], ab, ba)
		}
	}
}
