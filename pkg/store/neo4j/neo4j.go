// Package neo4j implements GraphStore on a Neo4j database via the
// official v5 driver. Entities become labeled nodes keyed by name,
// relationships become typed edges, and provenance is stamped as node
// and edge properties on every merge.
package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/chainsight/backend/pkg/common"
	"github.com/chainsight/backend/pkg/store"
)

type Config struct {
	URI      string
	Username string
	Password string
}

type Store struct {
	driver neo4j.DriverWithContext
}

var _ store.GraphStore = (*Store)(nil)

func NewStore(ctx context.Context, config Config) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(config.URI, neo4j.BasicAuth(config.Username, config.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to verify neo4j connectivity: %w", err)
	}
	return &Store{driver: driver}, nil
}

// NewStoreWithDriver wraps an existing driver, mainly for tests.
func NewStoreWithDriver(driver neo4j.DriverWithContext) *Store {
	return &Store{driver: driver}
}

func (s *Store) UpsertEntity(ctx context.Context, entity common.Entity, prov common.Provenance) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	// Labels cannot be parameterized, so the sanitized label is
	// interpolated. sanitizeLabel guarantees it is a bare identifier.
	query := fmt.Sprintf(`
		MERGE (e:%s {name: $name})
		ON CREATE SET e.aliases = $aliases
		ON MATCH SET e.aliases = coalesce(e.aliases, []) + [a IN $aliases WHERE NOT a IN coalesce(e.aliases, [])]
		SET e += $props,
		    e.source = $source,
		    e.source_label = $sourceLabel,
		    e.source_file = $sourceFile,
		    e.updated_at = datetime($now)
	`, sanitizeLabel(entity.Type))

	_, err := session.Run(ctx, query, map[string]any{
		"name":        entity.Name,
		"aliases":     aliasList(entity.Aliases),
		"props":       store.MergeProperties(nil, entity.Properties),
		"source":      prov.Source,
		"sourceLabel": prov.SourceLabel,
		"sourceFile":  prov.SourceFile,
		"now":         provTimestamp(prov),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert entity %q: %w", entity.Name, err)
	}
	return nil
}

func (s *Store) UpsertRelationship(ctx context.Context, rel common.Relationship, prov common.Provenance) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	// Endpoint MERGE is label-free so an edge never duplicates a node
	// that was created under a specific label.
	query := fmt.Sprintf(`
		MERGE (a {name: $source})
		MERGE (b {name: $target})
		MERGE (a)-[r:%s]->(b)
		SET r += $props,
		    r.source = $provSource,
		    r.source_label = $sourceLabel,
		    r.source_file = $sourceFile,
		    r.updated_at = datetime($now)
	`, sanitizeRelType(rel.Type))

	_, err := session.Run(ctx, query, map[string]any{
		"source":      rel.Source,
		"target":      rel.Target,
		"props":       store.MergeProperties(nil, rel.Properties),
		"provSource":  prov.Source,
		"sourceLabel": prov.SourceLabel,
		"sourceFile":  prov.SourceFile,
		"now":         provTimestamp(prov),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert relationship %s-[%s]->%s: %w", rel.Source, rel.Type, rel.Target, err)
	}
	return nil
}

func (s *Store) GetEntity(ctx context.Context, name string) (*common.Entity, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (e {name: $name})
		RETURN e.name AS name, labels(e)[0] AS type, properties(e) AS props
		ORDER BY type
		LIMIT 1
	`

	result, err := session.Run(ctx, query, map[string]any{"name": name})
	if err != nil {
		return nil, fmt.Errorf("failed to get entity %q: %w", name, err)
	}

	if result.Next(ctx) {
		record := result.Record()
		entity := &common.Entity{
			Name: getString(record, "name"),
			Type: getString(record, "type"),
		}
		if props, ok := record.Get("props"); ok {
			if m, ok := props.(map[string]any); ok {
				entity.Properties, entity.Aliases, entity.Provenance = splitNodeProps(m)
			}
		}
		return entity, nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindPaths(ctx context.Context, query store.PathQuery) ([]common.Path, error) {
	query = query.Normalize()

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	// Variable-length bounds cannot be parameterized either.
	cypher := fmt.Sprintf(`
		MATCH path = (start {name: $start})-[*1..%d]->(end)
		WHERE (size($targets) = 0 OR end.name IN $targets)
		  AND (size($types) = 0 OR ALL(rel IN relationships(path) WHERE type(rel) IN $types))
		WITH path,
		     [n IN nodes(path) | {name: n.name, type: labels(n)[0], properties: properties(n)}] AS nodeList,
		     [r IN relationships(path) | {type: type(r), source: startNode(r).name, target: endNode(r).name, properties: properties(r)}] AS relList,
		     length(path) AS hops
		RETURN nodeList, relList, hops
		ORDER BY hops ASC
		LIMIT $limit
	`, query.MaxHops)

	result, err := session.Run(ctx, cypher, map[string]any{
		"start":   query.Start,
		"targets": toAnySlice(query.Targets),
		"types":   toAnySlice(query.AllowedTypes),
		"limit":   query.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find paths from %q: %w", query.Start, err)
	}

	var paths []common.Path
	for result.Next(ctx) {
		record := result.Record()
		path := common.Path{}

		if nodes, ok := record.Get("nodeList"); ok {
			if list, ok := nodes.([]any); ok {
				for _, item := range list {
					m, ok := item.(map[string]any)
					if !ok {
						continue
					}
					entity := common.Entity{
						Name: stringFromMap(m, "name"),
						Type: stringFromMap(m, "type"),
					}
					if props, ok := m["properties"].(map[string]any); ok {
						entity.Properties, entity.Aliases, entity.Provenance = splitNodeProps(props)
					}
					path.Nodes = append(path.Nodes, entity)
				}
			}
		}
		if rels, ok := record.Get("relList"); ok {
			if list, ok := rels.([]any); ok {
				for _, item := range list {
					m, ok := item.(map[string]any)
					if !ok {
						continue
					}
					rel := common.Relationship{
						Type:   stringFromMap(m, "type"),
						Source: stringFromMap(m, "source"),
						Target: stringFromMap(m, "target"),
					}
					if props, ok := m["properties"].(map[string]any); ok {
						rel.Properties, _, rel.Provenance = splitNodeProps(props)
					}
					path.Edges = append(path.Edges, rel)
				}
			}
		}

		paths = append(paths, path)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read path results: %w", err)
	}
	return paths, nil
}

func (s *Store) Reset(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.Run(ctx, `MATCH (n) DETACH DELETE n`, nil)
	if err != nil {
		return fmt.Errorf("failed to reset graph: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func provTimestamp(prov common.Provenance) string {
	ts := prov.UpdatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return ts.UTC().Format(time.RFC3339)
}

func aliasList(aliases []string) []any {
	return toAnySlice(aliases)
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func getString(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func stringFromMap(m map[string]any, key string) string {
	if str, ok := m[key].(string); ok {
		return str
	}
	return ""
}

// splitNodeProps separates domain properties from the reserved keys
// the store manages itself (name, aliases, provenance stamps).
func splitNodeProps(props map[string]any) (map[string]any, []string, *common.Provenance) {
	properties := make(map[string]any)
	var aliases []string
	prov := &common.Provenance{}
	hasProv := false

	for key, value := range props {
		switch key {
		case "name":
		case "aliases":
			if list, ok := value.([]any); ok {
				for _, item := range list {
					if str, ok := item.(string); ok {
						aliases = append(aliases, str)
					}
				}
			}
		case "source":
			if str, ok := value.(string); ok {
				prov.Source = str
				hasProv = true
			}
		case "source_label":
			if str, ok := value.(string); ok {
				prov.SourceLabel = str
				hasProv = true
			}
		case "source_file":
			if str, ok := value.(string); ok {
				prov.SourceFile = str
				hasProv = true
			}
		case "updated_at":
			switch ts := value.(type) {
			case time.Time:
				prov.UpdatedAt = ts
				hasProv = true
			case string:
				if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
					prov.UpdatedAt = parsed
					hasProv = true
				}
			}
		default:
			properties[key] = value
		}
	}

	if len(properties) == 0 {
		properties = nil
	}
	if !hasProv {
		prov = nil
	}
	return properties, aliases, prov
}
