package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chainsight/backend/pkg/ai"
	"github.com/chainsight/backend/pkg/common"
	"github.com/chainsight/backend/pkg/graph"
	"github.com/chainsight/backend/pkg/logger"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel extraction calls per document.
const DefaultConcurrency = 4

// Document is one unit of ingestion: a named piece of text with the label
// recorded in provenance.
type Document struct {
	// Name is the file or object name the text came from.
	Name string
	// Label classifies the source, e.g. "news", "filing", "baseline".
	Label string
	Text  string
}

// Pipeline runs documents through chunking, model extraction, and graph
// upserts. Extraction calls run in parallel; upserts run sequentially in
// chunk order so ingestion stays deterministic.
type Pipeline struct {
	extractor ai.EntityExtractor
	engine    *graph.Engine
	dedupe    ai.GraphAIClient

	concurrency int
	encoder     string
	maxTokens   int
}

type NewPipelineParams struct {
	Extractor ai.EntityExtractor
	Engine    *graph.Engine
	// DedupeClient enables a model-assisted alias refinement pass after
	// extraction. Nil skips the pass.
	DedupeClient ai.GraphAIClient
	// Concurrency bounds parallel extraction calls. Defaults to 4.
	Concurrency int
	// Encoder and MaxTokens configure chunk sizing.
	Encoder   string
	MaxTokens int
}

func NewPipeline(params NewPipelineParams) (*Pipeline, error) {
	if params.Extractor == nil {
		return nil, errors.New("ingest: pipeline requires an extractor")
	}
	if params.Engine == nil {
		return nil, errors.New("ingest: pipeline requires an engine")
	}

	concurrency := params.Concurrency
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	encoder := params.Encoder
	if encoder == "" {
		encoder = DefaultEncoder
	}
	maxTokens := params.MaxTokens
	if maxTokens < 1 {
		maxTokens = DefaultMaxTokens
	}

	return &Pipeline{
		extractor:   params.Extractor,
		engine:      params.Engine,
		dedupe:      params.DedupeClient,
		concurrency: concurrency,
		encoder:     encoder,
		maxTokens:   maxTokens,
	}, nil
}

// IngestDocument chunks the document, extracts graph facts from every chunk,
// and upserts them under one provenance batch. The returned stats aggregate
// all chunks.
func (p *Pipeline) IngestDocument(ctx context.Context, doc Document) (common.UpsertStats, error) {
	var stats common.UpsertStats

	// Tables chunk along rows with the header repeated so every chunk
	// reads as a complete table to the extraction model.
	chunk := ChunkText
	if strings.HasSuffix(strings.ToLower(doc.Name), ".csv") {
		chunk = ChunkCSV
	}
	chunks, err := chunk(doc.Text, p.encoder, p.maxTokens)
	if err != nil {
		return stats, fmt.Errorf("chunk document %s: %w", doc.Name, err)
	}
	if len(chunks) == 0 {
		return stats, nil
	}

	results := make([]ai.ExtractionResult, len(chunks))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.concurrency)
	for i, chunk := range chunks {
		group.Go(func() error {
			result, err := p.extractor.Extract(groupCtx, chunk.Text)
			if err != nil {
				return fmt.Errorf("extract chunk %s: %w", chunk.ID, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return stats, err
	}

	prov, err := p.newProvenance(doc)
	if err != nil {
		return stats, err
	}

	for i, result := range results {
		entities, relationships := result.ToGraph()
		chunkStats, err := p.engine.UpsertGraph(ctx, entities, relationships, prov)
		if err != nil {
			return stats, fmt.Errorf("upsert chunk %s: %w", chunks[i].ID, err)
		}
		stats.Add(chunkStats)
	}

	p.refineAliases(ctx, results)

	logger.Info("document ingested",
		"file", doc.Name,
		"chunks", len(chunks),
		"entities", stats.EntitiesMerged,
		"relationships", stats.RelationshipsCreated,
		"skipped", stats.Skipped,
	)
	return stats, nil
}

// IngestCSV reads a structured table and upserts one entity per row under
// one provenance batch. No model calls are involved.
func (p *Pipeline) IngestCSV(
	ctx context.Context,
	doc Document,
	r io.Reader,
	mapping CSVMapping,
) (common.UpsertStats, error) {
	var stats common.UpsertStats

	entities, err := ParseCSV(r, mapping)
	if err != nil {
		return stats, fmt.Errorf("parse csv %s: %w", doc.Name, err)
	}

	prov, err := p.newProvenance(doc)
	if err != nil {
		return stats, err
	}

	stats, err = p.engine.UpsertGraph(ctx, entities, nil, prov)
	if err != nil {
		return stats, fmt.Errorf("upsert csv %s: %w", doc.Name, err)
	}

	logger.Info("csv ingested", "file", doc.Name, "rows", len(entities), "entities", stats.EntitiesMerged)
	return stats, nil
}

// IngestJSON reads schema-described records and upserts their entities and
// relationships under one provenance batch. No model calls are involved.
func (p *Pipeline) IngestJSON(
	ctx context.Context,
	doc Document,
	r io.Reader,
	schema JSONSchema,
) (common.UpsertStats, error) {
	var stats common.UpsertStats

	entities, relationships, err := ParseJSON(r, schema)
	if err != nil {
		return stats, fmt.Errorf("parse json %s: %w", doc.Name, err)
	}

	prov, err := p.newProvenance(doc)
	if err != nil {
		return stats, err
	}

	stats, err = p.engine.UpsertGraph(ctx, entities, relationships, prov)
	if err != nil {
		return stats, fmt.Errorf("upsert json %s: %w", doc.Name, err)
	}

	logger.Info("json ingested", "file", doc.Name, "entities", stats.EntitiesMerged, "relationships", stats.RelationshipsCreated)
	return stats, nil
}

func (p *Pipeline) newProvenance(doc Document) (common.Provenance, error) {
	batchID, err := gonanoid.New()
	if err != nil {
		return common.Provenance{}, fmt.Errorf("generate batch id: %w", err)
	}
	return common.Provenance{
		Source:      batchID,
		SourceLabel: doc.Label,
		SourceFile:  doc.Name,
		UpdatedAt:   time.Now().UTC(),
	}, nil
}

// refineAliases runs the optional model dedupe pass over the batch's
// entities and registers the resulting groups as resolver aliases. The pass
// is best effort: a failure is logged, never propagated.
func (p *Pipeline) refineAliases(ctx context.Context, results []ai.ExtractionResult) {
	if p.dedupe == nil {
		return
	}

	var entities []common.Entity
	for _, result := range results {
		batch, _ := result.ToGraph()
		entities = append(entities, batch...)
	}
	if len(entities) < 2 || len(entities) > ai.DedupeBatchSize {
		return
	}

	res, err := ai.FindDuplicateEntities(ctx, p.dedupe, entities, 2)
	if err != nil {
		logger.Warn("alias refinement failed", "err", err)
		return
	}

	resolver := p.engine.Resolver()
	for _, group := range res.Duplicates {
		for _, alias := range group.Entities {
			resolver.AddAlias(group.Name, alias)
		}
	}
}
