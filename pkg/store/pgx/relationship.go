package pgx

import (
	"context"
	"fmt"

	"github.com/chainsight/backend/pkg/common"
	"github.com/chainsight/backend/pkg/store"
)

// UpsertRelationship creates or merges an edge keyed by
// (source_id, type, target_id). Both endpoints are created as bare
// entities when missing, inside the same transaction as the edge.
func (s *GraphDBStore) UpsertRelationship(ctx context.Context, rel common.Relationship, prov common.Provenance) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin relationship upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	sourceID, err := ensureEntityTx(ctx, tx, rel.Source, prov)
	if err != nil {
		return fmt.Errorf("failed to ensure source entity %q: %w", rel.Source, err)
	}
	targetID, err := ensureEntityTx(ctx, tx, rel.Target, prov)
	if err != nil {
		return fmt.Errorf("failed to ensure target entity %q: %w", rel.Target, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO relationships (source_id, target_id, type, properties, source, source_label, source_file, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (source_id, type, target_id) DO UPDATE SET
			properties = relationships.properties || jsonb_strip_nulls(EXCLUDED.properties),
			source = EXCLUDED.source,
			source_label = EXCLUDED.source_label,
			source_file = EXCLUDED.source_file,
			updated_at = EXCLUDED.updated_at
	`,
		sourceID,
		targetID,
		rel.Type,
		store.MergeProperties(nil, rel.Properties),
		prov.Source,
		prov.SourceLabel,
		prov.SourceFile,
		provTime(prov),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert relationship %s-[%s]->%s: %w", rel.Source, rel.Type, rel.Target, err)
	}

	return tx.Commit(ctx)
}
