// Package resolve canonicalizes raw entity mentions to stable names.
// A resolver folds ticker symbols, legal-name variants and close
// misspellings onto one canonical entity so the graph never splits a
// company across multiple nodes.
package resolve

import (
	"sort"
	"strings"
	"sync"
)

type Resolver struct {
	mu        sync.Mutex
	threshold float64
	aliases   map[string]map[string]struct{}
	index     map[string]string
	cache     map[string]string
}

type Stats struct {
	UniqueEntities    int `json:"uniqueEntities"`
	TotalAliases      int `json:"totalAliases"`
	CachedResolutions int `json:"cachedResolutions"`
}

func NewResolver(config Config) *Resolver {
	threshold := config.SimilarityThreshold
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	resolver := &Resolver{
		threshold: threshold,
		aliases:   make(map[string]map[string]struct{}),
		index:     make(map[string]string),
		cache:     make(map[string]string),
	}
	for canonical, aliases := range config.Aliases {
		resolver.addAliasLocked(canonical, aliases...)
	}
	return resolver
}

// Resolve maps a raw mention to its canonical name. The lookup order
// is: exact alias-table match, case-insensitive substring containment
// against alias sets, then fuzzy similarity against every canonical
// name seen so far. A mention that matches nothing becomes a new
// canonical entity. The raw string is registered as an alias of
// whatever name is returned, and repeated inputs hit a memo cache.
// Empty or whitespace-only input is returned unchanged.
func (r *Resolver) Resolve(rawName string) string {
	cleaned := strings.TrimSpace(rawName)
	if cleaned == "" {
		return rawName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if canonical, ok := r.cache[rawName]; ok {
		return canonical
	}

	canonical, ok := r.index[strings.ToLower(cleaned)]
	if !ok {
		canonical, ok = r.matchBySubstring(cleaned)
	}
	if !ok {
		canonical, ok = r.matchBySimilarity(cleaned)
	}
	if !ok {
		canonical = cleaned
	}

	r.cache[rawName] = canonical
	r.addAliasLocked(canonical, rawName)
	return canonical
}

// AddAlias registers additional alias forms for a canonical name,
// creating the canonical entry if it does not exist yet.
func (r *Resolver) AddAlias(canonical string, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addAliasLocked(canonical, aliases...)
}

// Aliases returns every alias registered for a canonical name, sorted.
func (r *Resolver) Aliases(canonical string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.aliases[canonical]
	if !ok {
		return nil
	}
	aliases := make([]string, 0, len(set))
	for alias := range set {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

func (r *Resolver) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, set := range r.aliases {
		total += len(set)
	}
	return Stats{
		UniqueEntities:    len(r.aliases),
		TotalAliases:      total,
		CachedResolutions: len(r.cache),
	}
}

// Reset drops every canonical name, alias and cached resolution.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases = make(map[string]map[string]struct{})
	r.index = make(map[string]string)
	r.cache = make(map[string]string)
}

// matchBySubstring looks for case-insensitive containment between the
// mention and any alias. Ties across canonical names go to the
// lexicographically smallest so resolution stays deterministic.
func (r *Resolver) matchBySubstring(cleaned string) (string, bool) {
	lowered := strings.ToLower(cleaned)

	best := ""
	for canonical, set := range r.aliases {
		if best != "" && canonical >= best {
			continue
		}
		for alias := range set {
			aliasLower := strings.ToLower(alias)
			if strings.Contains(lowered, aliasLower) || strings.Contains(aliasLower, lowered) {
				best = canonical
				break
			}
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

// matchBySimilarity scores the mention against every canonical name
// and accepts the best score at or above the threshold. Ties break to
// the lexicographically smallest canonical name.
func (r *Resolver) matchBySimilarity(cleaned string) (string, bool) {
	best := ""
	bestScore := 0.0
	for canonical := range r.aliases {
		score := Similarity(cleaned, canonical)
		if score < r.threshold {
			continue
		}
		if score > bestScore || (score == bestScore && canonical < best) {
			best = canonical
			bestScore = score
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

func (r *Resolver) addAliasLocked(canonical string, aliases ...string) {
	set, ok := r.aliases[canonical]
	if !ok {
		set = make(map[string]struct{})
		r.aliases[canonical] = set
		r.index[strings.ToLower(canonical)] = canonical
	}
	for _, alias := range aliases {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			continue
		}
		set[alias] = struct{}{}
		key := strings.ToLower(alias)
		if _, exists := r.index[key]; !exists {
			r.index[key] = canonical
		}
	}
}
