package pgx

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/chainsight/backend/pkg/common"
	"github.com/chainsight/backend/pkg/store"
)

// UpsertEntity creates or merges an entity row keyed by (name, type).
// The jsonb property merge keeps existing values that the new payload
// does not mention, and jsonb_strip_nulls stops nulls from erasing
// anything.
func (s *GraphDBStore) UpsertEntity(ctx context.Context, entity common.Entity, prov common.Provenance) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO entities (name, type, properties, aliases, source, source_label, source_file, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name, type) DO UPDATE SET
			properties = entities.properties || jsonb_strip_nulls(EXCLUDED.properties),
			aliases = (
				SELECT COALESCE(array_agg(DISTINCT a), '{}')
				FROM unnest(entities.aliases || EXCLUDED.aliases) AS a
			),
			source = EXCLUDED.source,
			source_label = EXCLUDED.source_label,
			source_file = EXCLUDED.source_file,
			updated_at = EXCLUDED.updated_at
	`,
		entity.Name,
		entity.Type,
		store.MergeProperties(nil, entity.Properties),
		aliasArray(entity.Aliases),
		prov.Source,
		prov.SourceLabel,
		prov.SourceFile,
		provTime(prov),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert entity %q: %w", entity.Name, err)
	}
	return nil
}

func (s *GraphDBStore) GetEntity(ctx context.Context, name string) (*common.Entity, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT name, type, properties, aliases, source, source_label, source_file, updated_at
		FROM entities
		WHERE name = $1
		ORDER BY type
		LIMIT 1
	`, name)

	entity, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get entity %q: %w", name, err)
	}
	return entity, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*common.Entity, error) {
	var (
		entity      common.Entity
		prov        common.Provenance
		sourceLabel *string
		sourceFile  *string
		source      *string
		updatedAt   *time.Time
	)
	err := row.Scan(
		&entity.Name,
		&entity.Type,
		&entity.Properties,
		&entity.Aliases,
		&source,
		&sourceLabel,
		&sourceFile,
		&updatedAt,
	)
	if err != nil {
		return nil, err
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
	return &entity, nil
}

// ensureEntityTx guarantees a row exists for the given name and
// returns its id. Absent names get a bare row with the generic Entity
// type.
func ensureEntityTx(ctx context.Context, tx pgxv5.Tx, name string, prov common.Provenance) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		SELECT id FROM entities WHERE name = $1 ORDER BY id LIMIT 1
	`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgxv5.ErrNoRows) {
		return 0, err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO entities (name, type, source, source_label, source_file, updated_at)
		VALUES ($1, 'Entity', $2, $3, $4, $5)
		ON CONFLICT (name, type) DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING id
	`, name, prov.Source, prov.SourceLabel, prov.SourceFile, provTime(prov)).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func aliasArray(aliases []string) []string {
	if aliases == nil {
		return []string{}
	}
	return aliases
}

func provTime(prov common.Provenance) time.Time {
	if prov.UpdatedAt.IsZero() {
		return time.Now().UTC()
	}
	return prov.UpdatedAt
}
