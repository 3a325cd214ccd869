package cite

import (
	"reflect"
	"strings"
	"testing"

	"github.com/chainsight/backend/pkg/common"
)

func newTestValidator(t *testing.T, sources []common.Source) *Validator {
	t.Helper()
	v, err := NewValidator(NewValidatorParams{Sources: sources})
	if err != nil {
		t.Fatalf("NewValidator failed: %v", err)
	}
	return v
}

func TestValidate_CleanAnswer(t *testing.T) {
	v := newTestValidator(t, []common.Source{
		{ID: 1, File: "q3.pdf", Excerpt: "Revenue grew 20% year over year"},
	})

	result := v.Validate("Revenue grew 20% [1].")
	if !result.IsValid {
		t.Fatalf("expected valid result, got %+v", result)
	}
	if result.ConfidenceScore < 0.7 {
		t.Errorf("confidence = %f, want >= 0.7", result.ConfidenceScore)
	}
	if result.TotalCitations != 1 || result.ValidCitations != 1 {
		t.Errorf("citation counts = %d/%d, want 1/1", result.ValidCitations, result.TotalCitations)
	}
}

func TestValidate_FabricatedCitation(t *testing.T) {
	v := newTestValidator(t, []common.Source{
		{ID: 1, File: "q3.pdf", Excerpt: "Revenue grew 20% year over year"},
	})

	result := v.Validate("Revenue grew 20% [2].")
	if result.IsValid {
		t.Fatal("expected invalid result")
	}
	if !reflect.DeepEqual(result.InvalidCitations, []int{2}) {
		t.Errorf("invalid citations = %v, want [2]", result.InvalidCitations)
	}
	if result.CitationAccuracy != 0 {
		t.Errorf("citation accuracy = %f, want 0", result.CitationAccuracy)
	}
}

func TestValidate_MissingCitation(t *testing.T) {
	v := newTestValidator(t, []common.Source{
		{ID: 1, File: "q3.pdf", Excerpt: "irrelevant"},
	})

	result := v.Validate("Revenue grew 45% this quarter.")
	if result.IsValid {
		t.Fatal("expected invalid result")
	}
	if len(result.MissingCitations) != 1 {
		t.Fatalf("missing citations = %v, want one entry", result.MissingCitations)
	}
	if !strings.Contains(result.MissingCitations[0], "Revenue grew 45%") {
		t.Errorf("missing citation %q does not name the sentence", result.MissingCitations[0])
	}
	// The only sentence is a violation, so the full discount applies.
	if result.ConfidenceScore != 0.5 {
		t.Errorf("confidence = %f, want 0.5", result.ConfidenceScore)
	}
}

func TestValidate_UnsupportedClaim(t *testing.T) {
	v := newTestValidator(t, []common.Source{
		{ID: 1, File: "weather.txt", Excerpt: "The weather was pleasant throughout the conference."},
	})

	result := v.Validate("Company X acquired Company Z [1].")
	if result.IsValid {
		t.Fatal("expected invalid result")
	}
	if len(result.UnsupportedClaims) != 1 {
		t.Fatalf("unsupported claims = %v, want one entry", result.UnsupportedClaims)
	}
	if result.ClaimSupport != 0 {
		t.Errorf("claim support = %f, want 0", result.ClaimSupport)
	}
}

func TestValidate_NoCitationsNoClaims(t *testing.T) {
	v := newTestValidator(t, nil)

	result := v.Validate("Supply chains remained stable.")
	if !result.IsValid {
		t.Fatalf("expected valid result, got %+v", result)
	}
	if result.CitationAccuracy != 1.0 || result.ClaimSupport != 1.0 {
		t.Errorf("accuracy/support = %f/%f, want 1/1", result.CitationAccuracy, result.ClaimSupport)
	}
	if result.ConfidenceScore != 1.0 {
		t.Errorf("confidence = %f, want 1.0", result.ConfidenceScore)
	}
}

func TestValidate_HeadingsAndReferencesExempt(t *testing.T) {
	v := newTestValidator(t, []common.Source{
		{ID: 1, File: "q3.pdf", Excerpt: "TSMC shipments fell 12% after the earthquake disruption"},
	})

	answer := "## Q3 2025 supply chain results\n\n" +
		"- TSMC shipments fell 12% after the disruption [1].\n" +
		"References: Q3 report 2025, page 4.\n"

	result := v.Validate(answer)
	if len(result.MissingCitations) != 0 {
		t.Errorf("missing citations = %v, want none", result.MissingCitations)
	}
	if !result.IsValid {
		t.Errorf("expected valid result, got %+v", result)
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty",
			text: "",
			want: nil,
		},
		{
			name: "punctuation within line",
			text: "First fact. Second fact! Third fact?",
			want: []string{"First fact.", "Second fact!", "Third fact?"},
		},
		{
			name: "bullets become sentences",
			text: "• first item\n• second item",
			want: []string{"first item", "second item"},
		},
		{
			name: "dash bullets and blank runs",
			text: "- one thing\n\n\n- another thing",
			want: []string{"one thing", "another thing"},
		},
		{
			name: "windows line endings",
			text: "alpha line\r\nbeta line",
			want: []string{"alpha line", "beta line"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitSentences(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitSentences() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractCitations(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []int
	}{
		{name: "none", text: "no markers here", want: nil},
		{name: "single", text: "fact [3].", want: []int{3}},
		{name: "ordered with duplicates", text: "a [1] b [2] c [1]", want: []int{1, 2, 1}},
		{name: "non numeric ignored", text: "see [abc] and [4]", want: []int{4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractCitations(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractCitations() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSupportedBy(t *testing.T) {
	v := newTestValidator(t, nil)
	tests := []struct {
		name    string
		claim   string
		excerpt string
		want    bool
	}{
		{
			name:    "substring containment",
			claim:   "revenue grew 20%",
			excerpt: "In Q3 revenue grew 20% year over year.",
			want:    true,
		},
		{
			name:    "token overlap despite paraphrase",
			claim:   "Nvidia depends on TSMC wafer capacity",
			excerpt: "TSMC allocates most advanced wafer capacity to Nvidia orders",
			want:    true,
		},
		{
			name:    "unrelated",
			claim:   "Company X acquired Company Z",
			excerpt: "The weather was pleasant throughout the conference",
			want:    false,
		},
		{
			name:    "empty excerpt",
			claim:   "anything",
			excerpt: "",
			want:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.supportedBy(tt.claim, tt.excerpt); got != tt.want {
				t.Errorf("supportedBy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildEvidence(t *testing.T) {
	sources := []common.Source{
		{ID: 1, File: "a.pdf", Excerpt: "first excerpt"},
		{ID: 2, File: "b.pdf", Excerpt: "second excerpt"},
	}
	v := newTestValidator(t, sources)

	answer := "Shipments recovered in October [1][2]. Prices stayed elevated through Q4 [3]."
	evidence := v.BuildEvidence(answer)
	if len(evidence) != 2 {
		t.Fatalf("expected 2 evidence entries, got %d", len(evidence))
	}

	first := evidence[0]
	if first.ClaimID != 1 {
		t.Errorf("first claim id = %d, want 1", first.ClaimID)
	}
	if !reflect.DeepEqual(first.CitationIDs, []int{1, 2}) {
		t.Errorf("first citation ids = %v, want [1 2]", first.CitationIDs)
	}
	if len(first.Sources) != 2 || first.Sources[0].File != "a.pdf" {
		t.Errorf("first sources = %v, want both known sources", first.Sources)
	}
	if strings.Contains(first.ClaimText, "[") {
		t.Errorf("claim text %q still carries citation markers", first.ClaimText)
	}

	// The second claim cites an unknown source: the id is kept, the source
	// list is empty.
	second := evidence[1]
	if !reflect.DeepEqual(second.CitationIDs, []int{3}) {
		t.Errorf("second citation ids = %v, want [3]", second.CitationIDs)
	}
	if len(second.Sources) != 0 {
		t.Errorf("second sources = %v, want none", second.Sources)
	}
}

func TestSummarize(t *testing.T) {
	valid := common.ValidationResult{IsValid: true, ConfidenceScore: 0.92}
	if got := Summarize(valid); !strings.Contains(got, "all citations valid (confidence 92%)") {
		t.Errorf("Summarize(valid) = %q", got)
	}

	invalid := common.ValidationResult{
		InvalidCitations:  []int{3},
		UnsupportedClaims: []string{"Revenue doubled."},
		MissingCitations:  []string{"Margins fell 5%."},
		ConfidenceScore:   0.4,
		CitationAccuracy:  0.5,
		ClaimSupport:      0.5,
	}
	got := Summarize(invalid)
	for _, want := range []string{
		"citations referencing unknown sources: [3]",
		"claims not supported by their sources: 1",
		"factual sentences without citations: 1",
		"confidence 40% (citation accuracy 50%, claim support 50%)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Summarize(invalid) missing %q:\n%s", want, got)
		}
	}
}
