// Package memory provides a mutex-guarded in-memory GraphStore. It is
// the default for local development and the deterministic backend the
// test suites run against.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/chainsight/backend/pkg/common"
	"github.com/chainsight/backend/pkg/store"
)

type Store struct {
	mu       sync.RWMutex
	entities map[string]*common.Entity       // entityKey -> entity
	byName   map[string][]string             // lower(name) -> entity keys
	rels     map[string]*common.Relationship // relKey -> relationship
	outgoing map[string][]string             // lower(source name) -> rel keys
}

func NewStore() *Store {
	return &Store{
		entities: make(map[string]*common.Entity),
		byName:   make(map[string][]string),
		rels:     make(map[string]*common.Relationship),
		outgoing: make(map[string][]string),
	}
}

var _ store.GraphStore = (*Store)(nil)

func entityKey(name, typ string) string {
	return strings.ToUpper(strings.TrimSpace(name)) + "|" + strings.ToUpper(strings.TrimSpace(typ))
}

func relKey(source, typ, target string) string {
	return strings.ToUpper(strings.TrimSpace(source)) + "|" + strings.ToUpper(strings.TrimSpace(typ)) + "|" + strings.ToUpper(strings.TrimSpace(target))
}

func (s *Store) UpsertEntity(ctx context.Context, entity common.Entity, prov common.Provenance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertEntityLocked(entity, prov)
	return nil
}

func (s *Store) upsertEntityLocked(entity common.Entity, prov common.Provenance) *common.Entity {
	key := entityKey(entity.Name, entity.Type)
	existing, ok := s.entities[key]
	if !ok {
		created := &common.Entity{
			Name:       entity.Name,
			Type:       entity.Type,
			Properties: store.MergeProperties(nil, entity.Properties),
			Provenance: &prov,
		}
		created.Aliases = append(created.Aliases, entity.Aliases...)
		s.entities[key] = created
		lower := strings.ToLower(entity.Name)
		s.byName[lower] = append(s.byName[lower], key)
		sort.Strings(s.byName[lower])
		return created
	}

	existing.Properties = store.MergeProperties(existing.Properties, entity.Properties)
	existing.Aliases = unionAliases(existing.Aliases, entity.Aliases)
	existing.Provenance = &prov
	return existing
}

func (s *Store) UpsertRelationship(ctx context.Context, rel common.Relationship, prov common.Provenance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Endpoints must exist before the edge does; absent ones become
	// bare nodes.
	for _, name := range []string{rel.Source, rel.Target} {
		if s.lookupByNameLocked(name) == nil {
			s.upsertEntityLocked(common.Entity{Name: name, Type: "Entity"}, prov)
		}
	}

	key := relKey(rel.Source, rel.Type, rel.Target)
	existing, ok := s.rels[key]
	if !ok {
		created := &common.Relationship{
			Source:     rel.Source,
			Target:     rel.Target,
			Type:       rel.Type,
			Properties: store.MergeProperties(nil, rel.Properties),
			Provenance: &prov,
		}
		s.rels[key] = created
		lower := strings.ToLower(rel.Source)
		s.outgoing[lower] = append(s.outgoing[lower], key)
		sort.Strings(s.outgoing[lower])
		return nil
	}

	existing.Properties = store.MergeProperties(existing.Properties, rel.Properties)
	existing.Provenance = &prov
	return nil
}

func (s *Store) GetEntity(ctx context.Context, name string) (*common.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entity := s.lookupByNameLocked(name)
	if entity == nil {
		return nil, store.ErrNotFound
	}
	return cloneEntity(entity), nil
}

// FindPaths enumerates directed simple paths from the start entity via
// depth-first traversal. Neighbor order is deterministic, so repeated
// queries over the same graph return identical results.
func (s *Store) FindPaths(ctx context.Context, query store.PathQuery) ([]common.Path, error) {
	query = query.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := s.lookupByNameLocked(query.Start)
	if start == nil {
		return nil, nil
	}

	targets := make(map[string]struct{}, len(query.Targets))
	for _, t := range query.Targets {
		targets[strings.ToLower(t)] = struct{}{}
	}
	allowed := make(map[string]struct{}, len(query.AllowedTypes))
	for _, t := range query.AllowedTypes {
		allowed[strings.ToUpper(t)] = struct{}{}
	}

	var paths []common.Path
	visited := map[string]struct{}{strings.ToLower(start.Name): {}}

	var walk func(from *common.Entity, nodes []common.Entity, edges []common.Relationship) error
	walk = func(from *common.Entity, nodes []common.Entity, edges []common.Relationship) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(edges) >= query.MaxHops {
			return nil
		}
		for _, rk := range s.outgoing[strings.ToLower(from.Name)] {
			rel := s.rels[rk]
			if len(allowed) > 0 {
				if _, ok := allowed[strings.ToUpper(rel.Type)]; !ok {
					continue
				}
			}
			targetLower := strings.ToLower(rel.Target)
			if _, seen := visited[targetLower]; seen {
				continue
			}
			next := s.lookupByNameLocked(rel.Target)
			if next == nil {
				continue
			}

			nextNodes := append(nodes, *cloneEntity(next))
			nextEdges := append(edges, *cloneRelationship(rel))

			if matchesTarget(targets, targetLower) {
				paths = append(paths, common.Path{
					Nodes: append([]common.Entity(nil), nextNodes...),
					Edges: append([]common.Relationship(nil), nextEdges...),
				})
			}

			visited[targetLower] = struct{}{}
			if err := walk(next, nextNodes, nextEdges); err != nil {
				return err
			}
			delete(visited, targetLower)
		}
		return nil
	}

	if err := walk(start, []common.Entity{*cloneEntity(start)}, nil); err != nil {
		return nil, err
	}

	sort.SliceStable(paths, func(i, j int) bool {
		if paths[i].HopCount() != paths[j].HopCount() {
			return paths[i].HopCount() < paths[j].HopCount()
		}
		return pathSignature(paths[i]) < pathSignature(paths[j])
	})
	if len(paths) > query.Limit {
		paths = paths[:query.Limit]
	}
	return paths, nil
}

func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = make(map[string]*common.Entity)
	s.byName = make(map[string][]string)
	s.rels = make(map[string]*common.Relationship)
	s.outgoing = make(map[string][]string)
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}

// EntityCount reports how many entities the store holds.
func (s *Store) EntityCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// RelationshipCount reports how many edges the store holds.
func (s *Store) RelationshipCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rels)
}

func (s *Store) lookupByNameLocked(name string) *common.Entity {
	keys := s.byName[strings.ToLower(strings.TrimSpace(name))]
	if len(keys) == 0 {
		return nil
	}
	return s.entities[keys[0]]
}

func matchesTarget(targets map[string]struct{}, nameLower string) bool {
	if len(targets) == 0 {
		return true
	}
	_, ok := targets[nameLower]
	return ok
}

func pathSignature(p common.Path) string {
	var b strings.Builder
	for i, node := range p.Nodes {
		if i > 0 {
			b.WriteString("-[" + p.Edges[i-1].Type + "]->")
		}
		b.WriteString(node.Name)
	}
	return b.String()
}

func unionAliases(existing, added []string) []string {
	if len(added) == 0 {
		return existing
	}
	seen := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		seen[a] = struct{}{}
	}
	for _, a := range added {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		existing = append(existing, a)
	}
	return existing
}

func cloneEntity(e *common.Entity) *common.Entity {
	clone := &common.Entity{
		Name:    e.Name,
		Type:    e.Type,
		Aliases: append([]string(nil), e.Aliases...),
	}
	if e.Properties != nil {
		clone.Properties = make(map[string]any, len(e.Properties))
		for k, v := range e.Properties {
			clone.Properties[k] = v
		}
	}
	if e.Provenance != nil {
		prov := *e.Provenance
		clone.Provenance = &prov
	}
	return clone
}

func cloneRelationship(r *common.Relationship) *common.Relationship {
	clone := &common.Relationship{
		Source: r.Source,
		Target: r.Target,
		Type:   r.Type,
	}
	if r.Properties != nil {
		clone.Properties = make(map[string]any, len(r.Properties))
		for k, v := range r.Properties {
			clone.Properties[k] = v
		}
	}
	if r.Provenance != nil {
		prov := *r.Provenance
		clone.Provenance = &prov
	}
	return clone
}
