package graph

import (
	"context"
	"reflect"
	"testing"

	"github.com/chainsight/backend/pkg/common"
	"github.com/chainsight/backend/pkg/resolve"
	"github.com/chainsight/backend/pkg/store/memory"
)

func newTestEngine(t *testing.T) (*Engine, *memory.Store) {
	t.Helper()
	s := memory.NewStore()
	engine, err := NewEngine(NewEngineParams{
		Resolver: resolve.NewResolver(resolve.Config{Aliases: resolve.DefaultAliases()}),
		Store:    s,
	})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return engine, s
}

func testProvenance() common.Provenance {
	return common.Provenance{
		Source:      "ingest_batch_7",
		SourceLabel: "Q2 Supply Chain Report",
		SourceFile:  "q2_report.pdf",
	}
}

func TestUpsertGraph_ResolvesAndCounts(t *testing.T) {
	ctx := context.Background()
	engine, s := newTestEngine(t)

	stats, err := engine.UpsertGraph(ctx,
		[]common.Entity{
			{Name: "NVDA", Type: "company", Properties: map[string]any{"sector": "Semiconductors"}},
			{Name: "Taiwan Semiconductor", Type: "COMPANY"},
		},
		[]common.Relationship{
			{Source: "Taiwan Semiconductor", Target: "NVDA", Type: "supplies"},
		},
		testProvenance(),
	)
	if err != nil {
		t.Fatalf("UpsertGraph failed: %v", err)
	}

	expected := common.UpsertStats{EntitiesMerged: 2, RelationshipsCreated: 1}
	if stats != expected {
		t.Errorf("stats = %+v, want %+v", stats, expected)
	}

	// Ticker and legal name both resolve to canonical entities.
	nvidia, err := s.GetEntity(ctx, "Nvidia")
	if err != nil {
		t.Fatalf("GetEntity(Nvidia) failed: %v", err)
	}
	if nvidia.Type != "Company" {
		t.Errorf("entity type = %q, want Company", nvidia.Type)
	}
	if _, err := s.GetEntity(ctx, "TSMC"); err != nil {
		t.Fatalf("GetEntity(TSMC) failed: %v", err)
	}
}

func TestUpsertGraph_Idempotent(t *testing.T) {
	ctx := context.Background()
	engine, s := newTestEngine(t)

	entities := []common.Entity{
		{Name: "Nvidia", Type: "COMPANY", Properties: map[string]any{"ticker": "NVDA"}},
	}
	rels := []common.Relationship{
		{Source: "TSMC", Target: "Nvidia", Type: "SUPPLIES"},
	}

	if _, err := engine.UpsertGraph(ctx, entities, rels, testProvenance()); err != nil {
		t.Fatalf("first UpsertGraph failed: %v", err)
	}
	if _, err := engine.UpsertGraph(ctx, entities, rels, testProvenance()); err != nil {
		t.Fatalf("second UpsertGraph failed: %v", err)
	}

	// TSMC is auto-created as an endpoint, so two entities total.
	if s.EntityCount() != 2 {
		t.Errorf("expected 2 entities after repeated batch, got %d", s.EntityCount())
	}
	if s.RelationshipCount() != 1 {
		t.Errorf("expected 1 relationship after repeated batch, got %d", s.RelationshipCount())
	}
}

func TestUpsertGraph_SkipsMalformed(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	stats, err := engine.UpsertGraph(ctx,
		[]common.Entity{
			{Name: "", Type: "COMPANY"},
			{Name: "   ", Type: "COMPANY"},
			{Name: "Nvidia", Type: "COMPANY"},
		},
		[]common.Relationship{
			{Source: "", Target: "Nvidia", Type: "SUPPLIES"},
			{Source: "TSMC", Target: "", Type: "SUPPLIES"},
		},
		testProvenance(),
	)
	if err != nil {
		t.Fatalf("UpsertGraph failed: %v", err)
	}

	expected := common.UpsertStats{EntitiesMerged: 1, Skipped: 4}
	if stats != expected {
		t.Errorf("stats = %+v, want %+v", stats, expected)
	}
}

func TestUpsertGraph_PropertyMergeNeverErases(t *testing.T) {
	ctx := context.Background()
	engine, s := newTestEngine(t)
	prov := testProvenance()

	engine.UpsertGraph(ctx, []common.Entity{
		{Name: "Nvidia", Type: "COMPANY", Properties: map[string]any{"sector": "Semiconductors", "hq": "Santa Clara"}},
	}, nil, prov)
	engine.UpsertGraph(ctx, []common.Entity{
		{Name: "Nvidia", Type: "COMPANY", Properties: map[string]any{"sector": "AI Hardware", "hq": nil}},
	}, nil, prov)

	entity, err := s.GetEntity(ctx, "Nvidia")
	if err != nil {
		t.Fatalf("GetEntity failed: %v", err)
	}
	expected := map[string]any{"sector": "AI Hardware", "hq": "Santa Clara"}
	if !reflect.DeepEqual(entity.Properties, expected) {
		t.Errorf("properties = %v, want %v", entity.Properties, expected)
	}
}

func TestUpsertGraph_RawMentionBecomesAlias(t *testing.T) {
	ctx := context.Background()
	engine, s := newTestEngine(t)

	engine.UpsertGraph(ctx, []common.Entity{
		{Name: "NVIDIA Corporation", Type: "COMPANY"},
	}, nil, testProvenance())

	entity, err := s.GetEntity(ctx, "Nvidia")
	if err != nil {
		t.Fatalf("GetEntity failed: %v", err)
	}
	found := false
	for _, alias := range entity.Aliases {
		if alias == "NVIDIA Corporation" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected raw mention in aliases, got %v", entity.Aliases)
	}
}

func TestNewEngine_RequiresCollaborators(t *testing.T) {
	if _, err := NewEngine(NewEngineParams{Store: memory.NewStore()}); err == nil {
		t.Error("expected error without resolver")
	}
	resolver := resolve.NewResolver(resolve.Config{})
	if _, err := NewEngine(NewEngineParams{Resolver: resolver}); err == nil {
		t.Error("expected error without store")
	}
}
