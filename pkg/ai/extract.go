package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainsight/backend/internal/util"
	"github.com/chainsight/backend/pkg/common"
)

// ExtractedEntity is one candidate node reported by the extraction model.
type ExtractedEntity struct {
	Name       string         `json:"name" jsonschema_description:"Name of the entity as mentioned in the text."`
	Type       string         `json:"type" jsonschema_description:"Entity category, e.g. Company, Product, Location, Risk."`
	Properties map[string]any `json:"properties,omitempty" jsonschema_description:"Additional attributes of the entity found in the text."`
}

// ExtractedRelationship is one candidate edge reported by the extraction model.
type ExtractedRelationship struct {
	Source     string         `json:"source" jsonschema_description:"Name of the source entity."`
	Target     string         `json:"target" jsonschema_description:"Name of the target entity."`
	Type       string         `json:"type" jsonschema_description:"Relationship type, e.g. SUPPLIES, DEPENDS_ON, DISRUPTS."`
	Properties map[string]any `json:"properties,omitempty" jsonschema_description:"Additional attributes of the relationship, e.g. severity or criticality."`
}

// ExtractionResult is the structured output of one extraction call.
type ExtractionResult struct {
	Entities      []ExtractedEntity       `json:"entities" jsonschema_description:"Entities found in the text chunk."`
	Relationships []ExtractedRelationship `json:"relationships" jsonschema_description:"Relationships between the found entities."`
}

// ToGraph converts the raw extraction output into the common graph types.
// No cleaning happens here; the upsert engine sanitizes and skips malformed
// records itself.
func (r ExtractionResult) ToGraph() ([]common.Entity, []common.Relationship) {
	entities := make([]common.Entity, 0, len(r.Entities))
	for _, e := range r.Entities {
		entities = append(entities, common.Entity{
			Name:       e.Name,
			Type:       e.Type,
			Properties: e.Properties,
		})
	}
	relationships := make([]common.Relationship, 0, len(r.Relationships))
	for _, rel := range r.Relationships {
		relationships = append(relationships, common.Relationship{
			Source:     rel.Source,
			Target:     rel.Target,
			Type:       rel.Type,
			Properties: rel.Properties,
		})
	}
	return entities, relationships
}

// LLMExtractor implements EntityExtractor on top of a GraphAIClient using
// schema-constrained completions.
type LLMExtractor struct {
	client     GraphAIClient
	maxRetries int
	thinking   string
}

type NewLLMExtractorParams struct {
	Client GraphAIClient
	// MaxRetries bounds the retry loop around each extraction call.
	// Defaults to 3.
	MaxRetries int
	// Thinking sets the model's reasoning effort for extraction calls.
	// Empty leaves reasoning off.
	Thinking string
}

func NewLLMExtractor(params NewLLMExtractorParams) (*LLMExtractor, error) {
	if params.Client == nil {
		return nil, errors.New("ai: extractor requires a client")
	}
	maxRetries := params.MaxRetries
	if maxRetries < 1 {
		maxRetries = 3
	}
	return &LLMExtractor{
		client:     params.Client,
		maxRetries: maxRetries,
		thinking:   params.Thinking,
	}, nil
}

// Extract asks the model for entities and relationships in the given text
// chunk. Empty chunks return an empty result without a model call.
func (e *LLMExtractor) Extract(ctx context.Context, chunk string) (ExtractionResult, error) {
	if strings.TrimSpace(chunk) == "" {
		return ExtractionResult{}, nil
	}

	prompt := fmt.Sprintf(ExtractionPrompt, chunk)

	// Extraction wants reproducible output, not creative prose.
	opts := []GenerateOption{WithTemperature(0)}
	if e.thinking != "" {
		opts = append(opts, WithThinking(e.thinking))
	}

	var result ExtractionResult
	err := util.RetryErrWithContext(ctx, e.maxRetries, func(ctx context.Context) error {
		result = ExtractionResult{}
		return e.client.GenerateCompletionWithFormat(
			ctx,
			"extract_graph",
			"Extract supply chain entities and relationships from text.",
			prompt,
			&result,
			opts...,
		)
	})
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("extraction failed: %w", err)
	}
	return result, nil
}
