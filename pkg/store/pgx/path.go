package pgx

import (
	"context"
	"fmt"
	"time"

	"github.com/chainsight/backend/pkg/common"
	"github.com/chainsight/backend/pkg/store"
)

// FindPaths walks the edge table with a recursive CTE. Each frontier
// row carries the visited node ids, which keeps paths simple and
// bounds the recursion together with the hop limit.
func (s *GraphDBStore) FindPaths(ctx context.Context, query store.PathQuery) ([]common.Path, error) {
	query = query.Normalize()

	rows, err := s.conn.Query(ctx, `
		WITH RECURSIVE walk AS (
			SELECT r.target_id,
			       ARRAY[r.source_id, r.target_id] AS node_path,
			       ARRAY[r.id] AS rel_path,
			       1 AS hops
			FROM relationships r
			JOIN entities start ON start.id = r.source_id
			WHERE start.name = $1
			  AND (cardinality($2::text[]) = 0 OR r.type = ANY($2::text[]))
			UNION ALL
			SELECT r.target_id,
			       w.node_path || r.target_id,
			       w.rel_path || r.id,
			       w.hops + 1
			FROM walk w
			JOIN relationships r ON r.source_id = w.target_id
			WHERE w.hops < $3
			  AND NOT r.target_id = ANY(w.node_path)
			  AND (cardinality($2::text[]) = 0 OR r.type = ANY($2::text[]))
		)
		SELECT w.node_path, w.rel_path, w.hops
		FROM walk w
		JOIN entities target ON target.id = w.target_id
		WHERE cardinality($4::text[]) = 0 OR target.name = ANY($4::text[])
		ORDER BY w.hops ASC, w.node_path
		LIMIT $5
	`,
		query.Start,
		stringArray(query.AllowedTypes),
		query.MaxHops,
		stringArray(query.Targets),
		query.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find paths from %q: %w", query.Start, err)
	}
	defer rows.Close()

	type rawPath struct {
		nodeIDs []int64
		relIDs  []int64
	}
	var raws []rawPath
	entityIDs := make(map[int64]struct{})
	relIDs := make(map[int64]struct{})

	for rows.Next() {
		var raw rawPath
		var hops int
		if err := rows.Scan(&raw.nodeIDs, &raw.relIDs, &hops); err != nil {
			return nil, fmt.Errorf("failed to scan path row: %w", err)
		}
		for _, id := range raw.nodeIDs {
			entityIDs[id] = struct{}{}
		}
		for _, id := range raw.relIDs {
			relIDs[id] = struct{}{}
		}
		raws = append(raws, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read path rows: %w", err)
	}
	if len(raws) == 0 {
		return nil, nil
	}

	entities, err := s.loadEntitiesByID(ctx, keys(entityIDs))
	if err != nil {
		return nil, err
	}
	rels, err := s.loadRelationshipsByID(ctx, keys(relIDs))
	if err != nil {
		return nil, err
	}

	paths := make([]common.Path, 0, len(raws))
	for _, raw := range raws {
		path := common.Path{
			Nodes: make([]common.Entity, 0, len(raw.nodeIDs)),
			Edges: make([]common.Relationship, 0, len(raw.relIDs)),
		}
		for _, id := range raw.nodeIDs {
			entity, ok := entities[id]
			if !ok {
				return nil, fmt.Errorf("path references missing entity id %d", id)
			}
			path.Nodes = append(path.Nodes, *entity)
		}
		for _, id := range raw.relIDs {
			rel, ok := rels[id]
			if !ok {
				return nil, fmt.Errorf("path references missing relationship id %d", id)
			}
			path.Edges = append(path.Edges, *rel)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (s *GraphDBStore) loadEntitiesByID(ctx context.Context, ids []int64) (map[int64]*common.Entity, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, name, type, properties, aliases, source, source_label, source_file, updated_at
		FROM entities
		WHERE id = ANY($1::bigint[])
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load path entities: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]*common.Entity, len(ids))
	for rows.Next() {
		var id int64
		var entity common.Entity
		var prov common.Provenance
		var source, sourceLabel, sourceFile *string
		var updatedAt *time.Time
		err := rows.Scan(&id, &entity.Name, &entity.Type, &entity.Properties, &entity.Aliases,
			&source, &sourceLabel, &sourceFile, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan path entity: %w", err)
		}
		if source != nil {
			prov.Source = *source
		}
		if sourceLabel != nil {
			prov.SourceLabel = *sourceLabel
		}
		if sourceFile != nil {
			prov.SourceFile = *sourceFile
		}
		if updatedAt != nil {
			prov.UpdatedAt = *updatedAt
		}
		if prov != (common.Provenance{}) {
			entity.Provenance = &prov
		}
		out[id] = &entity
	}
	return out, rows.Err()
}

func (s *GraphDBStore) loadRelationshipsByID(ctx context.Context, ids []int64) (map[int64]*common.Relationship, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT r.id, src.name, tgt.name, r.type, r.properties
		FROM relationships r
		JOIN entities src ON src.id = r.source_id
		JOIN entities tgt ON tgt.id = r.target_id
		WHERE r.id = ANY($1::bigint[])
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load path relationships: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]*common.Relationship, len(ids))
	for rows.Next() {
		var id int64
		var rel common.Relationship
		if err := rows.Scan(&id, &rel.Source, &rel.Target, &rel.Type, &rel.Properties); err != nil {
			return nil, fmt.Errorf("failed to scan path relationship: %w", err)
		}
		out[id] = &rel
	}
	return out, rows.Err()
}

func stringArray(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func keys(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
