// Package store defines the persistence interface for the knowledge
// graph and shared helpers used by its implementations.
package store

import (
	"context"
	"errors"

	"github.com/chainsight/backend/pkg/common"
)

// DefaultPathLimit caps how many paths a single FindPaths call returns.
const DefaultPathLimit = 20

// DefaultMaxHops bounds path length when the caller does not set one.
const DefaultMaxHops = 3

// ErrNotFound is returned by GetEntity when no entity matches the name.
var ErrNotFound = errors.New("store: entity not found")

// PathQuery describes a bounded-hop path search between a start entity
// and an optional set of target entities.
type PathQuery struct {
	// Start is the canonical name of the entity paths begin at.
	Start string
	// Targets restricts path endpoints to these canonical names.
	// Empty means any reachable entity terminates a path.
	Targets []string
	// MaxHops bounds path length; defaults to DefaultMaxHops.
	MaxHops int
	// AllowedTypes restricts traversed relationship types; empty means
	// all types.
	AllowedTypes []string
	// Limit caps the result count; defaults to DefaultPathLimit.
	Limit int
}

// Normalize applies defaults and deduplicates the name lists, then
// returns the query.
func (q PathQuery) Normalize() PathQuery {
	if q.MaxHops <= 0 {
		q.MaxHops = DefaultMaxHops
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPathLimit
	}
	q.Targets = DedupeStrings(q.Targets)
	q.AllowedTypes = DedupeStrings(q.AllowedTypes)
	return q
}

// GraphStore persists canonical entities and relationships and answers
// bounded-hop path queries. Upserts are idempotent: re-applying the
// same payload leaves the graph unchanged apart from provenance
// timestamps. Property merges never erase an existing non-nil value
// with nil.
type GraphStore interface {
	// UpsertEntity creates or merges an entity keyed by (name, type)
	// and stamps the given provenance.
	UpsertEntity(ctx context.Context, entity common.Entity, prov common.Provenance) error

	// UpsertRelationship creates or merges an edge keyed by
	// (source, type, target), auto-creating bare endpoint entities.
	UpsertRelationship(ctx context.Context, rel common.Relationship, prov common.Provenance) error

	// GetEntity returns the entity with the given canonical name, or
	// ErrNotFound.
	GetEntity(ctx context.Context, name string) (*common.Entity, error)

	// FindPaths returns deduplicated simple paths matching the query,
	// ordered by ascending hop count.
	FindPaths(ctx context.Context, query PathQuery) ([]common.Path, error)

	// Reset removes every entity and relationship. This is the only
	// deletion path the store exposes.
	Reset(ctx context.Context) error

	Close(ctx context.Context) error
}
