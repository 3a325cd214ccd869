package routes

import (
	"fmt"
	"net/http"

	"github.com/chainsight/backend/internal/server/middleware"
	"github.com/chainsight/backend/pkg/ai"
	"github.com/chainsight/backend/pkg/cite"
	"github.com/chainsight/backend/pkg/common"
	"github.com/chainsight/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

// QueryGraphHandler answers a multi-hop reachability question. With a
// natural-language question and a configured composer it additionally
// generates a cited answer and validates it against the path evidence.
func QueryGraphHandler(c echo.Context) error {
	type queryGraphBody struct {
		Start             string   `json:"start" validate:"required"`
		Targets           []string `json:"targets" validate:"required,min=1"`
		MaxHops           int      `json:"max_hops"`
		RelationshipTypes []string `json:"relationship_types"`
		Question          string   `json:"question"`
	}

	type queryGraphResponse struct {
		Message    string                   `json:"message"`
		Paths      []common.Path            `json:"paths"`
		BestPath   *common.Path             `json:"best_path,omitempty"`
		Confidence float64                  `json:"confidence"`
		Answer     string                   `json:"answer,omitempty"`
		Sources    []common.Source          `json:"sources,omitempty"`
		Validation *common.ValidationResult `json:"validation,omitempty"`
		Metrics    *ai.ModelMetrics         `json:"metrics,omitempty"`
	}

	data := new(queryGraphBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, queryGraphResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, queryGraphResponse{
			Message: "Invalid request body",
		})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	paths, err := app.Reasoner.FindPaths(ctx, data.Start, data.Targets, data.MaxHops, data.RelationshipTypes)
	if err != nil {
		logger.Error("[Query] Path search failed", "start", data.Start, "err", err)
		return c.JSON(http.StatusInternalServerError, queryGraphResponse{
			Message: "Internal server error",
		})
	}

	resp := queryGraphResponse{
		Message:    "Query completed",
		Paths:      paths,
		BestPath:   app.Reasoner.BestPath(paths),
		Confidence: app.Reasoner.ScoreConfidence(paths),
	}

	if data.Question != "" && app.Composer != nil {
		sources := pathSources(paths)
		answer, err := app.Composer.Compose(ctx, data.Question, paths, sources)
		if err != nil {
			logger.Error("[Query] Answer composition failed", "err", err)
			return c.JSON(http.StatusInternalServerError, queryGraphResponse{
				Message: "Internal server error",
			})
		}

		validator, err := cite.NewValidator(cite.NewValidatorParams{
			Sources: sources,
			Weights: app.Weights,
		})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, queryGraphResponse{
				Message: "Internal server error",
			})
		}
		result := validator.Validate(answer)

		resp.Answer = answer
		resp.Sources = sources
		resp.Validation = &result
		if app.AiClient != nil {
			metrics := app.AiClient.GetMetrics()
			resp.Metrics = &metrics
		}
	}

	return c.JSON(http.StatusOK, resp)
}

// pathSources turns path edges into numbered evidence records: one
// source per edge, carrying the originating file and a rendered hop.
func pathSources(paths []common.Path) []common.Source {
	sources := make([]common.Source, 0)
	seen := make(map[string]bool)
	for _, path := range paths {
		for _, edge := range path.Edges {
			excerpt := fmt.Sprintf("%s -[%s]-> %s", edge.Source, edge.Type, edge.Target)
			if seen[excerpt] {
				continue
			}
			seen[excerpt] = true

			file := ""
			if edge.Provenance != nil {
				file = edge.Provenance.SourceFile
			}
			sources = append(sources, common.Source{
				ID:      len(sources) + 1,
				File:    file,
				Excerpt: excerpt,
			})
		}
	}
	return sources
}
