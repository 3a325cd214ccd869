package ingest

import (
	"reflect"
	"strings"
	"testing"

	"github.com/chainsight/backend/pkg/common"
)

func TestParseCSV(t *testing.T) {
	input := strings.Join([]string{
		"company_name,revenue,market_cap,ticker",
		"Nvidia,60922.0,2950000,NVDA",
		"TSMC,69298.3,850000,TSM",
		",123,456,XXX",
		"Intel,,190000,INTC",
	}, "\n")

	mapping := CSVMapping{
		Columns: map[string]ColumnRole{
			"company_name": ColumnEntityName,
			"revenue":      ColumnProperty,
			"market_cap":   ColumnProperty,
		},
	}

	entities, err := ParseCSV(strings.NewReader(input), mapping)
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}

	// Row with an empty name is skipped; the ticker column is unmapped.
	want := []common.Entity{
		{Name: "Nvidia", Type: "Company", Properties: map[string]any{"revenue": 60922.0, "market_cap": int64(2950000)}},
		{Name: "TSMC", Type: "Company", Properties: map[string]any{"revenue": 69298.3, "market_cap": int64(850000)}},
		{Name: "Intel", Type: "Company", Properties: map[string]any{"market_cap": int64(190000)}},
	}
	if !reflect.DeepEqual(entities, want) {
		t.Errorf("ParseCSV() = %#v, want %#v", entities, want)
	}
}

func TestParseCSV_NoEntityColumn(t *testing.T) {
	input := "a,b\n1,2\n"
	_, err := ParseCSV(strings.NewReader(input), CSVMapping{
		Columns: map[string]ColumnRole{"a": ColumnProperty},
	})
	if err == nil {
		t.Fatal("expected error for mapping without entity_name column")
	}
}

func TestParseCSV_Empty(t *testing.T) {
	entities, err := ParseCSV(strings.NewReader(""), CSVMapping{
		Columns: map[string]ColumnRole{"name": ColumnEntityName},
	})
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if entities != nil {
		t.Errorf("expected no entities, got %v", entities)
	}
}

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  any
	}{
		{name: "integer", value: "42", want: int64(42)},
		{name: "float", value: "3.14", want: 3.14},
		{name: "text", value: "high", want: "high"},
		{name: "dotted text", value: "v1.2.3", want: "v1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := coerceValue(tt.value); got != tt.want {
				t.Errorf("coerceValue(%q) = %v (%T), want %v (%T)", tt.value, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	input := `{
		"companies": [
			{"name": "TSMC", "country": "Taiwan", "revenue": 69298.3, "subsidiaries": ["VIS"]},
			{"name": "Nvidia", "country": "United States"},
			{"country": "Germany"}
		]
	}`

	schema := JSONSchema{
		Root:       "companies",
		EntityKey:  "name",
		EntityType: "Company",
		Relationships: []JSONRelationship{
			{Type: "LOCATED_IN", TargetKey: "country", TargetType: "Country"},
		},
	}

	entities, relationships, err := ParseJSON(strings.NewReader(input), schema)
	if err != nil {
		t.Fatalf("ParseJSON failed: %v", err)
	}

	// Nameless record skipped; arrays dropped from properties; country
	// targets materialized as entities.
	if len(entities) != 4 {
		t.Fatalf("expected 4 entities, got %d: %#v", len(entities), entities)
	}
	if entities[0].Name != "TSMC" || entities[0].Type != "Company" {
		t.Errorf("first entity = %+v", entities[0])
	}
	if _, ok := entities[0].Properties["subsidiaries"]; ok {
		t.Error("array property was not dropped")
	}
	if entities[0].Properties["revenue"] != 69298.3 {
		t.Errorf("revenue property = %v", entities[0].Properties["revenue"])
	}
	if entities[1].Name != "Taiwan" || entities[1].Type != "Country" {
		t.Errorf("target entity = %+v", entities[1])
	}

	want := []common.Relationship{
		{Source: "TSMC", Target: "Taiwan", Type: "LOCATED_IN"},
		{Source: "Nvidia", Target: "United States", Type: "LOCATED_IN"},
	}
	if !reflect.DeepEqual(relationships, want) {
		t.Errorf("relationships = %#v, want %#v", relationships, want)
	}
}

func TestParseJSON_MissingEntityKey(t *testing.T) {
	_, _, err := ParseJSON(strings.NewReader("[]"), JSONSchema{})
	if err == nil {
		t.Fatal("expected error for schema without entity_key")
	}
}
