package ai

import (
	"testing"
)

func TestUnmarshalFlexible_ObjectVariants(t *testing.T) {
	type entity struct {
		Name string `json:"name"`
		Type string `json:"type,omitempty"`
	}

	tests := []struct {
		name  string
		input string
		want  entity
	}{
		{
			name:  "valid json object",
			input: `{"name":"TSMC"}`,
			want:  entity{Name: "TSMC"},
		},
		{
			name:  "unquoted key and single quotes",
			input: `{name: 'TSMC'}`,
			want:  entity{Name: "TSMC"},
		},
		{
			name:  "trailing comma",
			input: `{"name":"TSMC",}`,
			want:  entity{Name: "TSMC"},
		},
		{
			name:  "missing endbracket",
			input: `{"name":"TSMC`,
			want:  entity{Name: "TSMC"},
		},
		{
			name:  "stringified invalid json object",
			input: `"{name: 'TSMC'}"`,
			want:  entity{Name: "TSMC"},
		},
		{
			name:  "duplicate leading brace",
			input: "{\n{\n  \"name\": \"TSMC\"\n}\n",
			want:  entity{Name: "TSMC"},
		},
		{
			name:  "duplicate leading brace no newlines",
			input: `{ { "name": "TSMC" }`,
			want:  entity{Name: "TSMC"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got entity
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got.Name != tc.want.Name || got.Type != tc.want.Type {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestUnmarshalFlexible_ArrayVariants(t *testing.T) {
	type entity struct {
		Name string `json:"name"`
		Type string `json:"type,omitempty"`
	}

	input := `[{name:'TSMC'},{name:'Nvidia',}]`
	var got []entity
	if err := UnmarshalFlexible(input, &got); err != nil {
		t.Fatalf("UnmarshalFlexible() error = %v", err)
	}
	if len(got) != 2 || got[0].Name != "TSMC" || got[1].Name != "Nvidia" {
		t.Fatalf("UnmarshalFlexible() got = %+v, want TSMC and Nvidia", got)
	}
}

func TestUnmarshalFlexible_Unrecoverable(t *testing.T) {
	type entity struct {
		Name string `json:"name"`
	}

	var got entity
	if err := UnmarshalFlexible("hello", &got); err == nil {
		t.Fatalf("UnmarshalFlexible() expected error for unrecoverable input")
	}
}

func TestUnmarshalFlexible_ExtractionResults(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		entities      int
		relationships int
	}{
		{
			name:          "stringified extraction",
			input:         `"{ \"entities\": [ {\"name\": \"TSMC\", \"type\": \"Company\"}, {\"name\": \"Nvidia\", \"type\": \"Company\"} ], \"relationships\": [ {\"source\": \"TSMC\", \"target\": \"Nvidia\", \"type\": \"SUPPLIES\"} ] }"`,
			entities:      2,
			relationships: 1,
		},
		{
			name:          "stringified with newlines and repairs",
			input:         "\"{\\n  \\\"entities\\\": [{\\\"name\\\": \\\"Taiwan earthquake\\\", \\\"type\\\": \\\"Risk\\\"}],\\n  \\\"relationships\\\": [],\\n  }\\n\"",
			entities:      1,
			relationships: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got ExtractionResult
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if len(got.Entities) != tc.entities {
				t.Fatalf("entities = %d, want %d", len(got.Entities), tc.entities)
			}
			if len(got.Relationships) != tc.relationships {
				t.Fatalf("relationships = %d, want %d", len(got.Relationships), tc.relationships)
			}
		})
	}
}
