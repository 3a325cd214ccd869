package ingest

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/chainsight/backend/pkg/common"
)

// JSONRelationship describes one edge the JSON ingester derives per record:
// from the record's entity to the entity named by TargetKey.
type JSONRelationship struct {
	Type       string         `json:"type"`
	TargetKey  string         `json:"target_key"`
	TargetType string         `json:"target_type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// JSONSchema tells the structured JSON ingester how to read a document.
type JSONSchema struct {
	// Root names the array of records inside the document. Empty means the
	// document itself is the array (or a single record).
	Root string `json:"root"`
	// EntityKey is the record field holding the entity name.
	EntityKey string `json:"entity_key"`
	// EntityType is assigned to every record's entity. Defaults to "Entity".
	EntityType string `json:"entity_type"`
	// Relationships derive edges from record fields naming other entities.
	Relationships []JSONRelationship `json:"relationships,omitempty"`
}

// ParseJSON reads records per the schema and returns the entities and
// relationships they describe. Scalar record fields become entity
// properties; nested objects and arrays are ignored. Records without an
// entity name are skipped.
func ParseJSON(r io.Reader, schema JSONSchema) ([]common.Entity, []common.Relationship, error) {
	if schema.EntityKey == "" {
		return nil, nil, fmt.Errorf("json schema: entity_key is required")
	}
	entityType := schema.EntityType
	if entityType == "" {
		entityType = "Entity"
	}

	var raw any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, nil, fmt.Errorf("decode json: %w", err)
	}

	if schema.Root != "" {
		doc, ok := raw.(map[string]any)
		if !ok {
			return nil, nil, fmt.Errorf("json schema: root %q set but document is not an object", schema.Root)
		}
		raw = doc[schema.Root]
	}

	var records []any
	switch v := raw.(type) {
	case []any:
		records = v
	case map[string]any:
		records = []any{v}
	case nil:
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("json schema: records must be an array or object, got %T", raw)
	}

	var entities []common.Entity
	var relationships []common.Relationship

	for _, record := range records {
		item, ok := record.(map[string]any)
		if !ok {
			continue
		}
		name, _ := item[schema.EntityKey].(string)
		if name == "" {
			continue
		}

		properties := map[string]any{}
		for k, v := range item {
			if k == schema.EntityKey {
				continue
			}
			switch v.(type) {
			case map[string]any, []any:
				continue
			}
			properties[k] = v
		}

		entities = append(entities, common.Entity{
			Name:       name,
			Type:       entityType,
			Properties: properties,
		})

		for _, rel := range schema.Relationships {
			target, _ := item[rel.TargetKey].(string)
			if target == "" {
				continue
			}
			targetType := rel.TargetType
			if targetType == "" {
				targetType = "Entity"
			}
			entities = append(entities, common.Entity{Name: target, Type: targetType})
			relationships = append(relationships, common.Relationship{
				Source:     name,
				Target:     target,
				Type:       rel.Type,
				Properties: rel.Properties,
			})
		}
	}
	return entities, relationships, nil
}
