package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/chainsight/backend/internal/storage"
	"github.com/chainsight/backend/internal/util"
	"github.com/chainsight/backend/pkg/ingest"
	"github.com/chainsight/backend/pkg/logger"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

// Job kinds understood by the ingestion worker.
const (
	JobText = "text"
	JobCSV  = "csv"
	JobJSON = "json"
)

// IngestJobMsg is the wire format of one staged-document job. FileKey
// points at the object the ingest route uploaded to S3; the worker pulls
// it, runs the matching ingestion path, and deletes the staged copy.
type IngestJobMsg struct {
	Kind    string `json:"kind"`
	FileKey string `json:"file_key"`
	Name    string `json:"name"`
	Label   string `json:"label"`
	BatchID string `json:"batch_id,omitempty"`

	// Mapping and Schema configure the structured ingestion kinds.
	Mapping *ingest.CSVMapping `json:"mapping,omitempty"`
	Schema  *ingest.JSONSchema `json:"schema,omitempty"`
}

// ProcessIngestMessage handles one delivery from the ingest queue. A
// returned error sends the message through the retry topology; success
// also removes the staged object.
func ProcessIngestMessage(
	ctx context.Context,
	s3Client *awss3.Client,
	pipeline *ingest.Pipeline,
	msg string,
) error {
	data := new(IngestJobMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("failed to decode ingest job: %w", err)
	}
	if data.FileKey == "" {
		return fmt.Errorf("ingest job without a file key")
	}

	raw, err := storage.GetFile(ctx, s3Client, data.FileKey)
	if err != nil {
		return err
	}

	if err := runIngestJob(ctx, pipeline, data, raw); err != nil {
		return err
	}

	// The staged copy only exists for the worker; its removal failing
	// must not requeue an already-ingested document.
	if err := storage.DeleteFile(ctx, s3Client, data.FileKey); err != nil {
		logger.Warn("[Queue] Failed to delete staged file", "key", data.FileKey, "err", err)
	}

	logger.Info("[Queue] Ingest job completed", "kind", data.Kind, "file", data.Name, "batch_id", data.BatchID)
	return nil
}

// runIngestJob picks the ingestion path for one staged document. Structured
// kinds missing their mapping or schema demote to plain text extraction;
// failing them instead would cycle the message through retry into the DLQ
// with no chance of ever succeeding.
func runIngestJob(ctx context.Context, pipeline *ingest.Pipeline, data *IngestJobMsg, raw []byte) error {
	doc := ingest.Document{
		Name:  data.Name,
		Label: data.Label,
		Text:  util.SanitizeText(string(raw)),
	}

	var err error
	switch {
	case data.Kind == JobCSV && data.Mapping != nil:
		_, err = pipeline.IngestCSV(ctx, doc, bytes.NewReader(raw), *data.Mapping)
	case data.Kind == JobJSON && data.Schema != nil:
		_, err = pipeline.IngestJSON(ctx, doc, bytes.NewReader(raw), *data.Schema)
	default:
		if data.Kind != JobText && data.Kind != "" {
			logger.Warn("[Queue] Structured job without config, extracting as text", "kind", data.Kind, "file", data.Name)
		}
		_, err = pipeline.IngestDocument(ctx, doc)
	}
	return err
}
