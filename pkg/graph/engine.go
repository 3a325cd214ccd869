// Package graph turns extracted entities and relationships into
// idempotent writes against a GraphStore, canonicalizing names through
// an entity resolver on the way in.
package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainsight/backend/pkg/common"
	"github.com/chainsight/backend/pkg/logger"
	"github.com/chainsight/backend/pkg/resolve"
	"github.com/chainsight/backend/pkg/store"
)

// Engine is the upsert pipeline between extraction output and the
// graph store.
//
// An Engine should be created using NewEngine.
type Engine struct {
	resolver *resolve.Resolver
	store    store.GraphStore
}

// NewEngineParams defines the collaborators for a new Engine.
type NewEngineParams struct {
	Resolver *resolve.Resolver
	Store    store.GraphStore
}

func NewEngine(params NewEngineParams) (*Engine, error) {
	if params.Resolver == nil {
		return nil, fmt.Errorf("engine requires a resolver")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("engine requires a graph store")
	}
	return &Engine{
		resolver: params.Resolver,
		store:    params.Store,
	}, nil
}

// UpsertGraph writes a batch of entities and relationships to the
// store. Malformed items are skipped and counted, never fatal; store
// failures abort the batch and propagate so the caller can retry (the
// upserts already applied are idempotent). The batch is not
// transactional; each item is atomic at the store.
func (e *Engine) UpsertGraph(
	ctx context.Context,
	entities []common.Entity,
	relationships []common.Relationship,
	prov common.Provenance,
) (common.UpsertStats, error) {
	stats := common.UpsertStats{}

	for _, entity := range entities {
		prepared, ok := e.prepareEntity(entity)
		if !ok {
			stats.Skipped++
			continue
		}
		if err := e.store.UpsertEntity(ctx, prepared, prov); err != nil {
			return stats, fmt.Errorf("failed to upsert entity %q: %w", prepared.Name, err)
		}
		stats.EntitiesMerged++
	}

	for _, rel := range relationships {
		prepared, ok := e.prepareRelationship(rel)
		if !ok {
			stats.Skipped++
			continue
		}
		if err := e.store.UpsertRelationship(ctx, prepared, prov); err != nil {
			return stats, fmt.Errorf("failed to upsert relationship %s-[%s]->%s: %w",
				prepared.Source, prepared.Type, prepared.Target, err)
		}
		stats.RelationshipsCreated++
	}

	logger.Debug("[Graph] Batch upserted",
		"entities", stats.EntitiesMerged,
		"relationships", stats.RelationshipsCreated,
		"skipped", stats.Skipped,
		"source", prov.Source,
	)
	return stats, nil
}

// Resolver exposes the engine's resolver so callers can share one
// alias space across batches.
func (e *Engine) Resolver() *resolve.Resolver {
	return e.resolver
}

func (e *Engine) prepareEntity(entity common.Entity) (common.Entity, bool) {
	raw := strings.TrimSpace(entity.Name)
	if raw == "" {
		logger.Debug("[Graph] Skipping entity without a name")
		return common.Entity{}, false
	}

	canonical := e.resolver.Resolve(raw)
	prepared := common.Entity{
		Name:       canonical,
		Type:       SanitizeLabel(NormalizeEntityType(entity.Type)),
		Properties: FilterProperties(entity.Properties),
		Aliases:    append([]string(nil), entity.Aliases...),
	}
	if canonical != raw {
		prepared.Aliases = append(prepared.Aliases, raw)
	}
	return prepared, true
}

func (e *Engine) prepareRelationship(rel common.Relationship) (common.Relationship, bool) {
	source := strings.TrimSpace(rel.Source)
	target := strings.TrimSpace(rel.Target)
	if source == "" || target == "" {
		logger.Debug("[Graph] Skipping relationship with missing endpoint",
			"source", rel.Source, "target", rel.Target)
		return common.Relationship{}, false
	}

	prepared := common.Relationship{
		Source:     e.resolver.Resolve(source),
		Target:     e.resolver.Resolve(target),
		Type:       SanitizeRelType(rel.Type),
		Properties: FilterProperties(rel.Properties),
	}
	return prepared, true
}
