package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chainsight/backend/pkg/common"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkoukk/tiktoken-go"
)

// ColumnRole describes what a CSV column contributes to the graph.
type ColumnRole string

const (
	// ColumnEntityName marks the column holding the entity name.
	ColumnEntityName ColumnRole = "entity_name"
	// ColumnProperty marks a column stored as an entity property under the
	// column's header name.
	ColumnProperty ColumnRole = "property"
)

// CSVMapping tells the structured CSV ingester how to read a table.
type CSVMapping struct {
	// Columns maps header names to their role. Unmapped columns are ignored.
	Columns map[string]ColumnRole
	// EntityType is assigned to every row's entity. Defaults to "Company",
	// the dominant case for financial tables.
	EntityType string
}

// ParseCSV reads a table with a header row and turns each data row into one
// entity per the mapping. Rows without an entity name are skipped. Property
// values that parse as numbers are stored numerically.
func ParseCSV(r io.Reader, mapping CSVMapping) ([]common.Entity, error) {
	entityType := mapping.EntityType
	if entityType == "" {
		entityType = "Company"
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	nameIdx := -1
	propIdx := map[int]string{}
	for i, col := range header {
		switch mapping.Columns[col] {
		case ColumnEntityName:
			if nameIdx < 0 {
				nameIdx = i
			}
		case ColumnProperty:
			propIdx[i] = col
		}
	}
	if nameIdx < 0 {
		return nil, fmt.Errorf("no entity_name column in header %v", header)
	}

	var entities []common.Entity
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}

		if nameIdx >= len(row) {
			continue
		}
		name := strings.TrimSpace(row[nameIdx])
		if name == "" {
			continue
		}

		properties := map[string]any{}
		for i, col := range propIdx {
			if i >= len(row) {
				continue
			}
			value := strings.TrimSpace(row[i])
			if value == "" {
				continue
			}
			properties[col] = coerceValue(value)
		}

		entities = append(entities, common.Entity{
			Name:       name,
			Type:       entityType,
			Properties: properties,
		})
	}
	return entities, nil
}

// coerceValue turns numeric-looking strings into numbers so property merges
// compare like with like across ingestion runs.
func coerceValue(value string) any {
	if strings.Contains(value, ".") {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		return value
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	return value
}

// ChunkCSV splits raw CSV text into token-bounded chunks of whole rows for
// the extraction model, repeating the header row in every chunk so each
// chunk reads as a complete table.
func ChunkCSV(text string, encoder string, maxTokens int) ([]Chunk, error) {
	if encoder == "" {
		encoder = DefaultEncoder
	}
	if maxTokens < 1 {
		maxTokens = DefaultMaxTokens
	}
	enc, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	rows := strings.Split(text, "\n")
	header := rows[0]
	dataRows := rows[1:]
	if len(dataRows) == 0 {
		dataRows = rows
		header = ""
	}

	var chunks []Chunk
	var current []string
	currentTokens := 0

	flush := func() error {
		if len(current) == 0 {
			return nil
		}
		id, err := gonanoid.New()
		if err != nil {
			return err
		}
		var b strings.Builder
		if header != "" {
			b.WriteString(header)
			b.WriteString("\n")
		}
		b.WriteString(strings.Join(current, "\n"))
		chunks = append(chunks, Chunk{ID: id, Index: len(chunks), Text: b.String()})
		current = nil
		currentTokens = 0
		return nil
	}

	for _, row := range dataRows {
		rowTokens := len(enc.Encode(row, nil, nil)) + 1
		if currentTokens+rowTokens > maxTokens && len(current) > 0 {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		current = append(current, row)
		currentTokens += rowTokens
	}

	if err := flush(); err != nil {
		return nil, err
	}
	return chunks, nil
}
