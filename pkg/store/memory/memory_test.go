package memory

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/chainsight/backend/pkg/common"
	"github.com/chainsight/backend/pkg/store"
)

func testProvenance() common.Provenance {
	return common.Provenance{
		Source:      "test",
		SourceLabel: "Test Fixture",
		SourceFile:  "fixture.csv",
		UpdatedAt:   time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestUpsertEntity_CreateAndMerge(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	prov := testProvenance()

	err := s.UpsertEntity(ctx, common.Entity{
		Name:       "Nvidia",
		Type:       "Company",
		Properties: map[string]any{"ticker": "NVDA", "sector": "Semiconductors"},
	}, prov)
	if err != nil {
		t.Fatalf("UpsertEntity failed: %v", err)
	}

	// Second upsert with the same key merges properties instead of
	// duplicating the node.
	err = s.UpsertEntity(ctx, common.Entity{
		Name:       "Nvidia",
		Type:       "Company",
		Properties: map[string]any{"hq": "Santa Clara", "sector": nil},
	}, prov)
	if err != nil {
		t.Fatalf("second UpsertEntity failed: %v", err)
	}

	if s.EntityCount() != 1 {
		t.Fatalf("expected 1 entity, got %d", s.EntityCount())
	}

	entity, err := s.GetEntity(ctx, "Nvidia")
	if err != nil {
		t.Fatalf("GetEntity failed: %v", err)
	}
	expected := map[string]any{"ticker": "NVDA", "sector": "Semiconductors", "hq": "Santa Clara"}
	if !reflect.DeepEqual(entity.Properties, expected) {
		t.Errorf("merged properties = %v, want %v", entity.Properties, expected)
	}
}

func TestUpsertEntity_AliasUnion(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	prov := testProvenance()

	s.UpsertEntity(ctx, common.Entity{Name: "TSMC", Type: "Company", Aliases: []string{"TSM"}}, prov)
	s.UpsertEntity(ctx, common.Entity{Name: "TSMC", Type: "Company", Aliases: []string{"Taiwan Semiconductor", "TSM"}}, prov)

	entity, err := s.GetEntity(ctx, "TSMC")
	if err != nil {
		t.Fatalf("GetEntity failed: %v", err)
	}
	expected := []string{"TSM", "Taiwan Semiconductor"}
	if !reflect.DeepEqual(entity.Aliases, expected) {
		t.Errorf("aliases = %v, want %v", entity.Aliases, expected)
	}
}

func TestGetEntity_NotFound(t *testing.T) {
	s := NewStore()
	_, err := s.GetEntity(context.Background(), "Unknown Corp")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertRelationship_AutoCreatesEndpoints(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	prov := testProvenance()

	err := s.UpsertRelationship(ctx, common.Relationship{
		Source: "TSMC",
		Target: "Nvidia",
		Type:   "SUPPLIES",
	}, prov)
	if err != nil {
		t.Fatalf("UpsertRelationship failed: %v", err)
	}

	if s.EntityCount() != 2 {
		t.Errorf("expected 2 auto-created entities, got %d", s.EntityCount())
	}
	entity, err := s.GetEntity(ctx, "TSMC")
	if err != nil {
		t.Fatalf("GetEntity failed: %v", err)
	}
	if entity.Type != "Entity" {
		t.Errorf("auto-created endpoint type = %q, want Entity", entity.Type)
	}
}

func TestUpsertRelationship_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	prov := testProvenance()

	rel := common.Relationship{
		Source:     "TSMC",
		Target:     "Nvidia",
		Type:       "SUPPLIES",
		Properties: map[string]any{"component": "GPU dies"},
	}
	s.UpsertRelationship(ctx, rel, prov)
	s.UpsertRelationship(ctx, rel, prov)

	if s.RelationshipCount() != 1 {
		t.Errorf("expected 1 relationship after repeated upsert, got %d", s.RelationshipCount())
	}
}

func seedChain(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	prov := testProvenance()

	entities := []common.Entity{
		{Name: "Taiwan Earthquake", Type: "Risk"},
		{Name: "TSMC", Type: "Company"},
		{Name: "Nvidia", Type: "Company"},
		{Name: "Samsung", Type: "Company"},
	}
	for _, e := range entities {
		if err := s.UpsertEntity(ctx, e, prov); err != nil {
			t.Fatalf("seed entity %s: %v", e.Name, err)
		}
	}

	rels := []common.Relationship{
		{Source: "Taiwan Earthquake", Target: "TSMC", Type: "DISRUPTS"},
		{Source: "TSMC", Target: "Nvidia", Type: "SUPPLIES"},
		{Source: "TSMC", Target: "Samsung", Type: "COMPETES_WITH"},
		{Source: "Taiwan Earthquake", Target: "Samsung", Type: "DISRUPTS"},
	}
	for _, r := range rels {
		if err := s.UpsertRelationship(ctx, r, prov); err != nil {
			t.Fatalf("seed relationship %s-%s: %v", r.Source, r.Target, err)
		}
	}
}

func TestFindPaths_MultiHop(t *testing.T) {
	s := NewStore()
	seedChain(t, s)

	paths, err := s.FindPaths(context.Background(), store.PathQuery{
		Start:   "Taiwan Earthquake",
		Targets: []string{"Nvidia"},
		MaxHops: 3,
	})
	if err != nil {
		t.Fatalf("FindPaths failed: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected 1 path, got %d", len(paths))
	}

	path := paths[0]
	if path.HopCount() != 2 {
		t.Errorf("hop count = %d, want 2", path.HopCount())
	}
	names := make([]string, len(path.Nodes))
	for i, n := range path.Nodes {
		names[i] = n.Name
	}
	expected := []string{"Taiwan Earthquake", "TSMC", "Nvidia"}
	if !reflect.DeepEqual(names, expected) {
		t.Errorf("path nodes = %v, want %v", names, expected)
	}
}

func TestFindPaths_OrderedByHopCount(t *testing.T) {
	s := NewStore()
	seedChain(t, s)

	// Samsung is reachable directly and through TSMC; the direct path
	// must come first.
	paths, err := s.FindPaths(context.Background(), store.PathQuery{
		Start:   "Taiwan Earthquake",
		Targets: []string{"Samsung"},
		MaxHops: 3,
	})
	if err != nil {
		t.Fatalf("FindPaths failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %d", len(paths))
	}
	if paths[0].HopCount() != 1 || paths[1].HopCount() != 2 {
		t.Errorf("paths not ordered by hop count: %d then %d", paths[0].HopCount(), paths[1].HopCount())
	}
}

func TestFindPaths_TypeFilter(t *testing.T) {
	s := NewStore()
	seedChain(t, s)

	paths, err := s.FindPaths(context.Background(), store.PathQuery{
		Start:        "Taiwan Earthquake",
		Targets:      []string{"Samsung"},
		MaxHops:      3,
		AllowedTypes: []string{"DISRUPTS"},
	})
	if err != nil {
		t.Fatalf("FindPaths failed: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected 1 path under type filter, got %d", len(paths))
	}
	if paths[0].HopCount() != 1 {
		t.Errorf("hop count = %d, want 1", paths[0].HopCount())
	}
}

func TestFindPaths_UnknownStart(t *testing.T) {
	s := NewStore()
	seedChain(t, s)

	paths, err := s.FindPaths(context.Background(), store.PathQuery{
		Start:   "Nonexistent",
		Targets: []string{"Nvidia"},
	})
	if err != nil {
		t.Fatalf("FindPaths failed: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("expected no paths for unknown start, got %d", len(paths))
	}
}

func TestFindPaths_HopBound(t *testing.T) {
	s := NewStore()
	seedChain(t, s)

	paths, err := s.FindPaths(context.Background(), store.PathQuery{
		Start:   "Taiwan Earthquake",
		Targets: []string{"Nvidia"},
		MaxHops: 1,
	})
	if err != nil {
		t.Fatalf("FindPaths failed: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("expected no paths within 1 hop, got %d", len(paths))
	}
}

func TestFindPaths_Limit(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	prov := testProvenance()

	// Fan out from one hub so more paths exist than the limit allows.
	for _, target := range []string{"A", "B", "C", "D", "E"} {
		s.UpsertRelationship(ctx, common.Relationship{Source: "Hub", Target: target, Type: "SUPPLIES"}, prov)
	}

	paths, err := s.FindPaths(ctx, store.PathQuery{Start: "Hub", Limit: 3})
	if err != nil {
		t.Fatalf("FindPaths failed: %v", err)
	}
	if len(paths) != 3 {
		t.Errorf("expected 3 paths under limit, got %d", len(paths))
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedChain(t, s)

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if s.EntityCount() != 0 || s.RelationshipCount() != 0 {
		t.Errorf("expected empty store after reset, got %d entities, %d relationships",
			s.EntityCount(), s.RelationshipCount())
	}
}
