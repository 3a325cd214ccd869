package queue

import (
	"context"
	"strings"
	"testing"

	"github.com/chainsight/backend/pkg/ai"
	"github.com/chainsight/backend/pkg/graph"
	"github.com/chainsight/backend/pkg/ingest"
	"github.com/chainsight/backend/pkg/resolve"
	"github.com/chainsight/backend/pkg/store/memory"
)

type fakeExtractor struct {
	calls int
}

func (f *fakeExtractor) Extract(ctx context.Context, chunk string) (ai.ExtractionResult, error) {
	f.calls++
	var result ai.ExtractionResult
	if strings.Contains(chunk, "TSMC") {
		result.Entities = append(result.Entities, ai.ExtractedEntity{Name: "TSMC", Type: "Company"})
	}
	return result, nil
}

func newTestPipeline(t *testing.T) (*ingest.Pipeline, *memory.Store, *fakeExtractor) {
	t.Helper()
	store := memory.NewStore()
	resolver := resolve.NewResolver(resolve.Config{Aliases: resolve.DefaultAliases()})
	engine, err := graph.NewEngine(graph.NewEngineParams{Resolver: resolver, Store: store})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	extractor := &fakeExtractor{}
	pipeline, err := ingest.NewPipeline(ingest.NewPipelineParams{Extractor: extractor, Engine: engine})
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	return pipeline, store, extractor
}

func TestRunIngestJob_JSONWithoutSchemaFallsBackToText(t *testing.T) {
	pipeline, store, extractor := newTestPipeline(t)

	job := &IngestJobMsg{
		Kind:    JobJSON,
		FileKey: "staging/documents/abc.json",
		Name:    "suppliers.json",
		Label:   "filing",
	}
	raw := []byte(`{"note": "TSMC supplies advanced wafers."}`)

	if err := runIngestJob(context.Background(), pipeline, job, raw); err != nil {
		t.Fatalf("runIngestJob failed: %v", err)
	}
	if extractor.calls == 0 {
		t.Fatal("expected text extraction for a json job without a schema")
	}
	if _, err := store.GetEntity(context.Background(), "TSMC"); err != nil {
		t.Errorf("extracted entity missing: %v", err)
	}
}

func TestRunIngestJob_CSVWithoutMappingFallsBackToText(t *testing.T) {
	pipeline, _, extractor := newTestPipeline(t)

	job := &IngestJobMsg{
		Kind:    JobCSV,
		FileKey: "staging/documents/abc.csv",
		Name:    "suppliers.csv",
		Label:   "baseline",
	}
	raw := []byte("company,supplier\nNvidia,TSMC\n")

	if err := runIngestJob(context.Background(), pipeline, job, raw); err != nil {
		t.Fatalf("runIngestJob failed: %v", err)
	}
	if extractor.calls == 0 {
		t.Fatal("expected text extraction for a csv job without a mapping")
	}
}

func TestRunIngestJob_CSVWithMapping(t *testing.T) {
	pipeline, store, extractor := newTestPipeline(t)

	job := &IngestJobMsg{
		Kind:    JobCSV,
		FileKey: "staging/documents/abc.csv",
		Name:    "financials.csv",
		Label:   "baseline",
		Mapping: &ingest.CSVMapping{
			Columns: map[string]ingest.ColumnRole{
				"company_name": ingest.ColumnEntityName,
				"revenue":      ingest.ColumnProperty,
			},
		},
	}
	raw := []byte("company_name,revenue\nTSMC,69298.3\n")

	if err := runIngestJob(context.Background(), pipeline, job, raw); err != nil {
		t.Fatalf("runIngestJob failed: %v", err)
	}
	if extractor.calls != 0 {
		t.Errorf("structured csv ingestion made %d model calls", extractor.calls)
	}
	entity, err := store.GetEntity(context.Background(), "TSMC")
	if err != nil {
		t.Fatalf("GetEntity(TSMC) failed: %v", err)
	}
	if entity.Properties["revenue"] != 69298.3 {
		t.Errorf("revenue = %v, want 69298.3", entity.Properties["revenue"])
	}
}
