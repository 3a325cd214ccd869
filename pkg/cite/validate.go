package cite

import (
	"errors"
	"strings"

	"github.com/chainsight/backend/pkg/common"
)

// Default scoring knobs. The split and thresholds are calibration targets,
// not derived constants; override them through NewValidatorParams.Weights.
const (
	DefaultCitationWeight   = 0.7
	DefaultClaimWeight      = 0.3
	DefaultSupportThreshold = 0.3
	DefaultMissingPenalty   = 0.5

	minClaimLength   = 10
	minFactualLength = 25

	claimReportLength    = 100
	sentenceReportLength = 120
)

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "from": {}, "as": {},
	"is": {}, "was": {}, "are": {}, "were": {}, "be": {},
}

// Weights controls how the pieces of a validation combine into the final
// confidence score.
type Weights struct {
	// CitationWeight and ClaimWeight split the confidence score between
	// citation accuracy and claim support; they should sum to 1.
	CitationWeight float64
	ClaimWeight    float64
	// SupportThreshold is the minimum token-overlap or similarity ratio for
	// a source excerpt to count as supporting a claim.
	SupportThreshold float64
	// MissingPenalty is the maximum multiplicative discount applied when
	// factual sentences carry no citation at all.
	MissingPenalty float64
}

// DefaultWeights returns the scoring parameters tuned for report-style
// supply-chain answers.
func DefaultWeights() Weights {
	return Weights{
		CitationWeight:   DefaultCitationWeight,
		ClaimWeight:      DefaultClaimWeight,
		SupportThreshold: DefaultSupportThreshold,
		MissingPenalty:   DefaultMissingPenalty,
	}
}

// Validator checks a generated answer against the sources it claims to cite.
// A validator is immutable after construction and safe for concurrent use.
type Validator struct {
	sources map[int]common.Source
	weights Weights
}

type NewValidatorParams struct {
	Sources []common.Source
	Weights *Weights
}

func NewValidator(params NewValidatorParams) (*Validator, error) {
	weights := DefaultWeights()
	if params.Weights != nil {
		weights = *params.Weights
	}
	if weights.CitationWeight < 0 || weights.ClaimWeight < 0 {
		return nil, errors.New("cite: negative scoring weight")
	}

	sources := make(map[int]common.Source, len(params.Sources))
	for _, s := range params.Sources {
		sources[s.ID] = s
	}
	return &Validator{sources: sources, weights: weights}, nil
}

// Validate checks every citation marker and cited claim in the answer against
// the validator's sources. Mismatches are reported in the result, never as an
// error: a bad answer is data, not a failure.
func (v *Validator) Validate(answer string) common.ValidationResult {
	citations := extractCitations(answer)

	var invalid []int
	for _, id := range citations {
		if _, ok := v.sources[id]; !ok {
			invalid = append(invalid, id)
		}
	}

	claims := v.extractClaims(answer)
	var unsupported []string
	for _, claim := range claims {
		if !v.claimSupported(claim) {
			unsupported = append(unsupported, truncate(claim.Text, claimReportLength))
		}
	}

	missing := v.uncitedFactualSentences(answer)

	total := len(citations)
	valid := total - len(invalid)
	accuracy := 1.0
	if total > 0 {
		accuracy = float64(valid) / float64(total)
	}

	support := 1.0
	if len(claims) > 0 {
		support = float64(len(claims)-len(unsupported)) / float64(len(claims))
	}

	confidence := accuracy*v.weights.CitationWeight + support*v.weights.ClaimWeight
	if len(missing) > 0 {
		sentences := len(splitSentences(answer))
		if sentences < 1 {
			sentences = 1
		}
		rate := float64(len(missing)) / float64(sentences)
		if rate > 1 {
			rate = 1
		}
		confidence *= 1 - v.weights.MissingPenalty*rate
	}

	return common.ValidationResult{
		IsValid:           len(invalid) == 0 && len(unsupported) == 0 && len(missing) == 0,
		InvalidCitations:  invalid,
		UnsupportedClaims: unsupported,
		MissingCitations:  missing,
		ConfidenceScore:   confidence,
		TotalCitations:    total,
		ValidCitations:    valid,
		CitationAccuracy:  accuracy,
		ClaimSupport:      support,
	}
}

// extractClaims segments the answer and keeps each sentence that carries at
// least one citation marker, with the markers stripped from the claim text.
func (v *Validator) extractClaims(answer string) []common.Claim {
	var claims []common.Claim
	for _, sentence := range splitSentences(answer) {
		ids := extractCitations(sentence)
		if len(ids) == 0 {
			continue
		}
		text := stripCitations(sentence)
		if len([]rune(text)) <= minClaimLength {
			continue
		}
		claims = append(claims, common.Claim{Text: text, CitationIDs: ids})
	}
	return claims
}

// claimSupported reports whether any of the claim's cited sources backs its
// text.
func (v *Validator) claimSupported(claim common.Claim) bool {
	for _, id := range claim.CitationIDs {
		source, ok := v.sources[id]
		if !ok {
			continue
		}
		if v.supportedBy(claim.Text, source.Excerpt) {
			return true
		}
	}
	return false
}

// supportedBy applies the three support tests in order of cost: substring
// containment, stopword-filtered token overlap, then a similarity ratio over
// the full strings.
func (v *Validator) supportedBy(claim, excerpt string) bool {
	if claim == "" || excerpt == "" {
		return false
	}
	claimLower := strings.ToLower(claim)
	excerptLower := strings.ToLower(excerpt)

	if strings.Contains(claimLower, excerptLower) || strings.Contains(excerptLower, claimLower) {
		return true
	}

	claimWords := tokenize(claim)
	excerptWords := tokenize(excerpt)
	for w := range stopwords {
		delete(claimWords, w)
		delete(excerptWords, w)
	}
	if len(claimWords) == 0 {
		return false
	}
	overlap := 0
	for w := range claimWords {
		if _, ok := excerptWords[w]; ok {
			overlap++
		}
	}
	if float64(overlap)/float64(len(claimWords)) >= v.weights.SupportThreshold {
		return true
	}

	return similarityRatio(claimLower, excerptLower) >= v.weights.SupportThreshold
}

// uncitedFactualSentences flags sentences that assert a number, percentage,
// or amount without any citation marker. Headings and reference lines are
// exempt, as are short fragments.
func (v *Validator) uncitedFactualSentences(answer string) []string {
	var missing []string
	for _, s := range splitSentences(answer) {
		if len([]rune(s)) < minFactualLength {
			continue
		}
		if isHeading(s) || isReferenceLine(s) {
			continue
		}
		if len(extractCitations(s)) > 0 {
			continue
		}
		if hasFactualSignal(s) {
			missing = append(missing, truncate(s, sentenceReportLength))
		}
	}
	return missing
}
