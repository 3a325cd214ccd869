// Package reason answers multi-hop questions over the knowledge
// graph: it discovers bounded-hop paths between entities and scores
// how much confidence the path evidence supports.
package reason

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/chainsight/backend/pkg/common"
	"github.com/chainsight/backend/pkg/logger"
	"github.com/chainsight/backend/pkg/store"
)

// SupplyChainRelTypes is the default relationship vocabulary for
// impact traversals.
var SupplyChainRelTypes = []string{
	"DISRUPTS",
	"BLOCKS",
	"DEPENDS_ON",
	"DEPENDS_ON_COMPANY",
	"REQUIRES_PROCESS",
	"REQUIRES_COMPONENT",
	"PRODUCES",
	"SUPPLIES",
}

// DefaultTraversalBudget bounds the wall clock of a single path
// search. Exceeding it is a "no path found within budget" outcome.
const DefaultTraversalBudget = 10 * time.Second

type Reasoner struct {
	store   store.GraphStore
	weights ScoreWeights
	budget  time.Duration
}

type NewReasonerParams struct {
	Store store.GraphStore
	// Weights overrides DefaultScoreWeights when non-nil.
	Weights *ScoreWeights
	// TraversalBudget overrides DefaultTraversalBudget when > 0.
	TraversalBudget time.Duration
}

func NewReasoner(params NewReasonerParams) (*Reasoner, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("reasoner requires a graph store")
	}
	weights := DefaultScoreWeights()
	if params.Weights != nil {
		weights = *params.Weights
	}
	budget := params.TraversalBudget
	if budget <= 0 {
		budget = DefaultTraversalBudget
	}
	return &Reasoner{
		store:   params.Store,
		weights: weights,
		budget:  budget,
	}, nil
}

// FindPaths returns deduplicated simple paths from start to any of the
// targets, ordered by ascending hop count and capped by the store's
// path limit. An exhausted traversal budget yields an empty result,
// not an error; no path is likewise an empty result.
func (r *Reasoner) FindPaths(
	ctx context.Context,
	start string,
	targets []string,
	maxHops int,
	allowedTypes []string,
) ([]common.Path, error) {
	if strings.TrimSpace(start) == "" {
		return nil, nil
	}

	budgetCtx, cancel := context.WithTimeout(ctx, r.budget)
	defer cancel()

	paths, err := r.store.FindPaths(budgetCtx, store.PathQuery{
		Start:        start,
		Targets:      targets,
		MaxHops:      maxHops,
		AllowedTypes: allowedTypes,
	})
	if err != nil {
		// Budget exhaustion is a normal no-evidence outcome; only
		// surface it when the caller's own context was cancelled.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			logger.Warn("[Reason] Traversal budget exhausted", "start", start, "budget", r.budget)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find paths from %q: %w", start, err)
	}

	return dedupePaths(paths), nil
}

// BestPath picks the winning path: fewest hops first, then highest
// criticality/severity sum over its edges, then lexicographic node
// order. Returns nil for an empty slice.
func (r *Reasoner) BestPath(paths []common.Path) *common.Path {
	if len(paths) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(paths); i++ {
		if pathLess(paths[i], paths[best], r.weights.CriticalityThreshold) {
			best = i
		}
	}
	return &paths[best]
}

func pathLess(a, b common.Path, threshold float64) bool {
	if a.HopCount() != b.HopCount() {
		return a.HopCount() < b.HopCount()
	}
	aSum := criticalitySum(a)
	bSum := criticalitySum(b)
	if aSum != bSum {
		return aSum > bSum
	}
	return pathSignature(a) < pathSignature(b)
}

func dedupePaths(paths []common.Path) []common.Path {
	if len(paths) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(paths))
	out := make([]common.Path, 0, len(paths))
	for _, path := range paths {
		sig := pathSignature(path)
		if _, ok := seen[sig]; ok {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, path)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].HopCount() < out[j].HopCount()
	})
	return out
}

func pathSignature(p common.Path) string {
	var b strings.Builder
	for i, node := range p.Nodes {
		if i > 0 && i-1 < len(p.Edges) {
			b.WriteString("-[" + p.Edges[i-1].Type + "]->")
		}
		b.WriteString(node.Name)
	}
	return b.String()
}

// Describe renders paths as readable hop chains for answer prompts and
// reports.
func Describe(paths []common.Path) string {
	var b strings.Builder
	for i, path := range paths {
		fmt.Fprintf(&b, "Path %d (%d hops): %s\n", i+1, path.HopCount(), pathSignature(path))
	}
	return b.String()
}
