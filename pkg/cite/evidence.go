package cite

import (
	"fmt"
	"strings"

	"github.com/chainsight/backend/pkg/common"
)

// BuildEvidence extracts every cited claim from the answer and attaches the
// actual Source records it references, so a caller can show a user exactly
// why each statement was made. Claim ids are 1-based in reading order.
func (v *Validator) BuildEvidence(answer string) []common.Evidence {
	claims := v.extractClaims(answer)
	evidence := make([]common.Evidence, 0, len(claims))
	for i, claim := range claims {
		var sources []common.Source
		for _, id := range claim.CitationIDs {
			if source, ok := v.sources[id]; ok {
				sources = append(sources, source)
			}
		}
		evidence = append(evidence, common.Evidence{
			ClaimID:     i + 1,
			ClaimText:   claim.Text,
			CitationIDs: claim.CitationIDs,
			Sources:     sources,
		})
	}
	return evidence
}

// Summarize renders a validation result as human-readable lines for logs and
// CLI output.
func Summarize(result common.ValidationResult) string {
	if result.IsValid {
		return fmt.Sprintf("all citations valid (confidence %.0f%%)", result.ConfidenceScore*100)
	}

	var lines []string
	if len(result.InvalidCitations) > 0 {
		lines = append(lines, fmt.Sprintf("citations referencing unknown sources: %v", result.InvalidCitations))
	}
	if len(result.UnsupportedClaims) > 0 {
		lines = append(lines, fmt.Sprintf("claims not supported by their sources: %d", len(result.UnsupportedClaims)))
	}
	if len(result.MissingCitations) > 0 {
		lines = append(lines, fmt.Sprintf("factual sentences without citations: %d", len(result.MissingCitations)))
	}
	lines = append(lines, fmt.Sprintf("confidence %.0f%% (citation accuracy %.0f%%, claim support %.0f%%)",
		result.ConfidenceScore*100, result.CitationAccuracy*100, result.ClaimSupport*100))
	return strings.Join(lines, "\n")
}
