package ai

import (
	"context"
	"testing"
)

func TestExtract_DeterministicOptions(t *testing.T) {
	client := &fakeClient{structured: `{"entities":[{"name":"TSMC","type":"Company"}],"relationships":[]}`}
	extractor, err := NewLLMExtractor(NewLLMExtractorParams{Client: client, Thinking: "low"})
	if err != nil {
		t.Fatalf("NewLLMExtractor failed: %v", err)
	}

	result, err := extractor.Extract(context.Background(), "TSMC produces advanced wafers.")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(result.Entities) != 1 || result.Entities[0].Name != "TSMC" {
		t.Errorf("entities = %+v", result.Entities)
	}

	if client.lastOpts.Temperature != 0 {
		t.Errorf("temperature = %v, want 0", client.lastOpts.Temperature)
	}
	if client.lastOpts.Thinking != "low" {
		t.Errorf("thinking = %q, want low", client.lastOpts.Thinking)
	}
}

func TestExtract_EmptyChunkSkipsModelCall(t *testing.T) {
	client := &fakeClient{}
	extractor, err := NewLLMExtractor(NewLLMExtractorParams{Client: client})
	if err != nil {
		t.Fatalf("NewLLMExtractor failed: %v", err)
	}

	result, err := extractor.Extract(context.Background(), "  \n ")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(result.Entities) != 0 || len(result.Relationships) != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
	if client.lastPrompt != "" {
		t.Error("model called for an empty chunk")
	}
}
