package common

import "time"

// Entity represents a node in the knowledge graph. An entity can be a company,
// person, product, location, or any other concept from the supply-chain domain.
// Name is always the canonical form produced by the resolver; Aliases records
// the raw mention strings that resolved to it.
type Entity struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Aliases    []string       `json:"aliases,omitempty"`
	Provenance *Provenance    `json:"provenance,omitempty"`
}

// Relationship represents a directional edge between two canonical entities.
// Source and Target are canonical names; Type is an uppercase alphanumeric
// token such as DEPENDS_ON or PRODUCES.
type Relationship struct {
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Provenance *Provenance    `json:"provenance,omitempty"`
}

// Provenance records which ingestion batch produced a graph fact so any node
// or edge can be traced back to its originating document.
type Provenance struct {
	Source      string    `json:"source"`
	SourceLabel string    `json:"source_label"`
	SourceFile  string    `json:"source_file"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Path is an ordered walk through the graph: len(Nodes) == len(Edges)+1.
// Paths are produced transiently by the reasoner and never persisted.
type Path struct {
	Nodes []Entity       `json:"nodes"`
	Edges []Relationship `json:"edges"`
}

// HopCount returns the number of relationships in the path.
func (p Path) HopCount() int {
	return len(p.Edges)
}

// Source is a caller-supplied evidence record consumed by the citation
// validator. IDs are the 1-based numbers used by [n] markers in answers.
type Source struct {
	ID      int    `json:"id"`
	File    string `json:"file"`
	Excerpt string `json:"excerpt"`
	URL     string `json:"url,omitempty"`
}

// Claim is a single sentence of a generated answer together with the citation
// ids it carries. Claims are transient; they exist only inside validation.
type Claim struct {
	Text        string `json:"text"`
	CitationIDs []int  `json:"citation_ids"`
}

// ValidationResult is the structured outcome of checking a generated answer
// against its sources. A mismatch is reported here, never as an error.
type ValidationResult struct {
	IsValid           bool     `json:"is_valid"`
	InvalidCitations  []int    `json:"invalid_citations"`
	UnsupportedClaims []string `json:"unsupported_claims"`
	MissingCitations  []string `json:"missing_citations"`
	ConfidenceScore   float64  `json:"confidence_score"`
	TotalCitations    int      `json:"total_citations"`
	ValidCitations    int      `json:"valid_citations"`
	CitationAccuracy  float64  `json:"citation_accuracy"`
	ClaimSupport      float64  `json:"claim_support"`
}

// Evidence attaches the actual sources behind one claim of an answer. It is
// the structure a UI uses to let a user expand "why was this said".
type Evidence struct {
	ClaimID     int      `json:"claim_id"`
	ClaimText   string   `json:"claim_text"`
	CitationIDs []int    `json:"citation_ids"`
	Sources     []Source `json:"sources"`
}

// UpsertStats summarizes one ingestion batch. Skipped counts malformed
// records dropped by the best-effort ingestion policy.
type UpsertStats struct {
	EntitiesMerged       int `json:"entities_merged"`
	RelationshipsCreated int `json:"relationships_created"`
	Skipped              int `json:"skipped"`
}

// Add merges the counters of another batch into s.
func (s *UpsertStats) Add(other UpsertStats) {
	s.EntitiesMerged += other.EntitiesMerged
	s.RelationshipsCreated += other.RelationshipsCreated
	s.Skipped += other.Skipped
}
