package routes

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/chainsight/backend/internal/queue"
	"github.com/chainsight/backend/internal/server/middleware"
	"github.com/chainsight/backend/internal/storage"
	"github.com/chainsight/backend/pkg/common"
	"github.com/chainsight/backend/pkg/ingest"
	"github.com/chainsight/backend/pkg/logger"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// IngestGraphHandler upserts a pre-extracted batch of entities and
// relationships directly into the graph.
func IngestGraphHandler(c echo.Context) error {
	type ingestGraphBody struct {
		Entities      []common.Entity       `json:"entities"`
		Relationships []common.Relationship `json:"relationships"`
		Source        string                `json:"source"`
		SourceLabel   string                `json:"source_label"`
		SourceFile    string                `json:"source_file"`
	}

	type ingestGraphResponse struct {
		Message string              `json:"message"`
		Stats   *common.UpsertStats `json:"stats,omitempty"`
	}

	data := new(ingestGraphBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, ingestGraphResponse{
			Message: "Invalid request body",
		})
	}
	if len(data.Entities) == 0 && len(data.Relationships) == 0 {
		return c.JSON(http.StatusBadRequest, ingestGraphResponse{
			Message: "Nothing to ingest",
		})
	}

	source := data.Source
	if source == "" {
		id, err := gonanoid.New()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, ingestGraphResponse{
				Message: "Internal server error",
			})
		}
		source = id
	}
	prov := common.Provenance{
		Source:      source,
		SourceLabel: data.SourceLabel,
		SourceFile:  data.SourceFile,
		UpdatedAt:   time.Now().UTC(),
	}

	app := c.(*middleware.AppContext).App
	stats, err := app.Engine.UpsertGraph(c.Request().Context(), data.Entities, data.Relationships, prov)
	if err != nil {
		logger.Error("[Ingest] Batch upsert failed", "source", source, "err", err)
		return c.JSON(http.StatusInternalServerError, ingestGraphResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, ingestGraphResponse{
		Message: "Batch ingested successfully",
		Stats:   &stats,
	})
}

// IngestDocumentHandler stages uploaded documents in S3 and queues one
// extraction job per file for the async worker.
func IngestDocumentHandler(c echo.Context) error {
	type stagedJob struct {
		Name    string `json:"name"`
		FileKey string `json:"file_key"`
		BatchID string `json:"batch_id"`
	}

	type ingestDocumentResponse struct {
		Message string      `json:"message"`
		Jobs    []stagedJob `json:"jobs,omitempty"`
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, ingestDocumentResponse{
			Message: "Invalid request body",
		})
	}
	uploads := form.File["files"]
	if len(uploads) == 0 {
		return c.JSON(http.StatusBadRequest, ingestDocumentResponse{
			Message: "No files provided",
		})
	}
	label := c.FormValue("label")

	// Structured configs are optional and apply per extension. Without
	// them .json and .csv uploads go through plain text extraction.
	var schema *ingest.JSONSchema
	if raw := c.FormValue("schema"); raw != "" {
		schema = new(ingest.JSONSchema)
		if err := json.Unmarshal([]byte(raw), schema); err != nil {
			return c.JSON(http.StatusBadRequest, ingestDocumentResponse{
				Message: "Invalid schema",
			})
		}
	}
	var mapping *ingest.CSVMapping
	if raw := c.FormValue("mapping"); raw != "" {
		mapping = new(ingest.CSVMapping)
		if err := json.Unmarshal([]byte(raw), mapping); err != nil {
			return c.JSON(http.StatusBadRequest, ingestDocumentResponse{
				Message: "Invalid column mapping",
			})
		}
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	batchID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ingestDocumentResponse{
			Message: "Internal server error",
		})
	}

	jobs := make([]stagedJob, 0, len(uploads))
	for _, file := range uploads {
		src, err := file.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, ingestDocumentResponse{
				Message: "Could not open file",
			})
		}
		defer src.Close()

		fId, err := gonanoid.New()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, ingestDocumentResponse{
				Message: "Internal server error",
			})
		}
		key, err := storage.PutFile(ctx, app.S3, "staging/documents", file.Filename, fId, src)
		if err != nil {
			logger.Error("[Ingest] Failed to stage file", "file", file.Filename, "err", err)
			return c.JSON(http.StatusInternalServerError, ingestDocumentResponse{
				Message: "Internal server error",
			})
		}

		job := queue.IngestJobMsg{
			Kind:    queue.JobText,
			FileKey: key,
			Name:    file.Filename,
			Label:   label,
			BatchID: batchID,
		}
		lower := strings.ToLower(file.Filename)
		switch {
		case strings.HasSuffix(lower, ".json") && schema != nil:
			job.Kind = queue.JobJSON
			job.Schema = schema
		case strings.HasSuffix(lower, ".csv") && mapping != nil:
			job.Kind = queue.JobCSV
			job.Mapping = mapping
		}

		msg, err := json.Marshal(job)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, ingestDocumentResponse{
				Message: "Internal server error",
			})
		}
		if err := queue.PublishFIFO(app.Queue, queue.IngestQueue, msg); err != nil {
			logger.Error("[Ingest] Failed to publish job", "file", file.Filename, "err", err)
			return c.JSON(http.StatusInternalServerError, ingestDocumentResponse{
				Message: "Internal server error",
			})
		}

		jobs = append(jobs, stagedJob{Name: file.Filename, FileKey: key, BatchID: batchID})
	}

	return c.JSON(http.StatusOK, ingestDocumentResponse{
		Message: "Documents queued for ingestion",
		Jobs:    jobs,
	})
}

// IngestCSVHandler ingests a CSV upload synchronously using a
// caller-supplied column mapping.
func IngestCSVHandler(c echo.Context) error {
	type ingestCSVResponse struct {
		Message string              `json:"message"`
		Stats   *common.UpsertStats `json:"stats,omitempty"`
	}

	mappingJSON := c.FormValue("mapping")
	if mappingJSON == "" {
		return c.JSON(http.StatusBadRequest, ingestCSVResponse{
			Message: "Missing column mapping",
		})
	}
	var mapping ingest.CSVMapping
	if err := json.Unmarshal([]byte(mappingJSON), &mapping); err != nil {
		return c.JSON(http.StatusBadRequest, ingestCSVResponse{
			Message: "Invalid column mapping",
		})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ingestCSVResponse{
			Message: "No file provided",
		})
	}
	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, ingestCSVResponse{
			Message: "Could not open file",
		})
	}
	defer src.Close()

	app := c.(*middleware.AppContext).App
	doc := ingest.Document{
		Name:  file.Filename,
		Label: c.FormValue("label"),
	}
	stats, err := app.Pipeline.IngestCSV(c.Request().Context(), doc, src, mapping)
	if err != nil {
		logger.Error("[Ingest] CSV ingestion failed", "file", file.Filename, "err", err)
		return c.JSON(http.StatusBadRequest, ingestCSVResponse{
			Message: "Failed to ingest CSV",
		})
	}

	return c.JSON(http.StatusOK, ingestCSVResponse{
		Message: "CSV ingested successfully",
		Stats:   &stats,
	})
}
