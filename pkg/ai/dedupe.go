package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainsight/backend/internal/util"
	"github.com/chainsight/backend/pkg/common"
)

const DedupeBatchSize = 300

// DuplicateGroup is a set of entity names the model considers the same
// real-world entity, with the name it picked as canonical. Groups feed the
// resolver's alias table; the resolver stays the single naming authority.
type DuplicateGroup struct {
	Name     string   `json:"canonicalName" jsonschema_description:"The final name for the deduplicated entities."`
	Entities []string `json:"entities" jsonschema_description:"List of entity names that are considered duplicates."`
}

// DuplicatesResponse is the response from the AI dedupe call.
type DuplicatesResponse struct {
	Duplicates []DuplicateGroup `json:"duplicates" jsonschema_description:"List of groups of duplicate entities."`
}

// FindDuplicateEntities asks the model to group near-duplicate entity names.
// It is an optional refinement pass over what fuzzy matching already merged;
// callers apply the returned groups as resolver aliases.
func FindDuplicateEntities(
	ctx context.Context,
	aiClient GraphAIClient,
	entities []common.Entity,
	maxRetries int,
) (*DuplicatesResponse, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if aiClient == nil {
		return nil, fmt.Errorf("ai client is nil")
	}
	if len(entities) < 2 {
		return &DuplicatesResponse{Duplicates: []DuplicateGroup{}}, nil
	}

	cleaned := make([]common.Entity, 0, len(entities))
	for _, entity := range entities {
		name := normalizeDedupeValue(entity.Name)
		typeName := normalizeDedupeValue(entity.Type)
		if name == "" || typeName == "" {
			continue
		}
		cleaned = append(cleaned, common.Entity{Name: name, Type: typeName})
	}
	if len(cleaned) < 2 {
		return &DuplicatesResponse{Duplicates: []DuplicateGroup{}}, nil
	}
	if len(cleaned) > DedupeBatchSize {
		return nil, fmt.Errorf("dedupe batch size exceeded: %d > %d", len(cleaned), DedupeBatchSize)
	}

	var entityData strings.Builder
	entityData.WriteString("Entities:\n")
	for _, e := range cleaned {
		fmt.Fprintf(&entityData, "- Name: %s, Type: %s\n", e.Name, e.Type)
	}
	prompt := fmt.Sprintf(DedupePrompt, entityData.String())

	var res DuplicatesResponse
	err := util.RetryErrWithContext(ctx, maxRetries, func(ctx context.Context) error {
		return aiClient.GenerateCompletionWithFormat(
			ctx, "dedupe_entities", "Deduplicate similar entities.", prompt, &res,
		)
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// normalizeDedupeValue collapses whitespace so the model sees one-line names.
func normalizeDedupeValue(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	return strings.Join(strings.Fields(value), " ")
}
