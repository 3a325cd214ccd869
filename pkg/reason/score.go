package reason

import (
	"strings"

	"github.com/chainsight/backend/pkg/common"
)

// ScoreWeights parameterizes the deterministic confidence function.
// The defaults mirror the empirically tuned values the scoring was
// designed around; every contribution stays taken over path shape
// alone, independent of any generative model.
type ScoreWeights struct {
	// Base is the floor once any scoring happens at all.
	Base float64
	// PathFound is added when at least one path exists.
	PathFound float64
	// IdealHops is added when the winning path has 2-3 hops.
	IdealHops float64
	// SingleHop is added instead when the winning path is direct.
	SingleHop float64
	// Diversity is added when more than one path reaches the same
	// target.
	Diversity float64
	// Criticality is added when the winning path crosses an edge whose
	// criticality or severity exceeds CriticalityThreshold.
	Criticality          float64
	CriticalityThreshold float64
}

func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Base:                 0.5,
		PathFound:            0.2,
		IdealHops:            0.2,
		SingleHop:            0.1,
		Diversity:            0.1,
		Criticality:          0.1,
		CriticalityThreshold: 0.7,
	}
}

// ScoreConfidence reduces a path set to a confidence in [0, 1]. No
// paths means 0.0, insufficient graph evidence, never an error.
func (r *Reasoner) ScoreConfidence(paths []common.Path) float64 {
	if len(paths) == 0 {
		return 0.0
	}
	w := r.weights

	score := w.Base + w.PathFound

	winner := r.BestPath(paths)
	switch hops := winner.HopCount(); {
	case hops >= 2 && hops <= 3:
		score += w.IdealHops
	case hops == 1:
		score += w.SingleHop
	}

	if corroborated(paths) {
		score += w.Diversity
	}
	if hasCriticalEdge(*winner, w.CriticalityThreshold) {
		score += w.Criticality
	}

	return clamp01(score)
}

// corroborated reports whether any terminal entity is reached by more
// than one path.
func corroborated(paths []common.Path) bool {
	byTarget := make(map[string]int, len(paths))
	for _, path := range paths {
		if len(path.Nodes) == 0 {
			continue
		}
		terminal := strings.ToLower(path.Nodes[len(path.Nodes)-1].Name)
		byTarget[terminal]++
		if byTarget[terminal] > 1 {
			return true
		}
	}
	return false
}

// hasCriticalEdge reports whether any edge carries a criticality or
// severity property above the threshold.
func hasCriticalEdge(path common.Path, threshold float64) bool {
	for _, edge := range path.Edges {
		for _, key := range []string{"criticality", "severity"} {
			if value, ok := edge.Properties[key]; ok && toFloat(value) > threshold {
				return true
			}
		}
	}
	return false
}

// criticalitySum totals criticality/severity style edge properties
// along a path.
func criticalitySum(path common.Path) float64 {
	sum := 0.0
	for _, edge := range path.Edges {
		for _, key := range []string{"criticality", "severity"} {
			if value, ok := edge.Properties[key]; ok {
				sum += toFloat(value)
			}
		}
	}
	return sum
}

func toFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0.0
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
