package server

import (
	"github.com/chainsight/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Ingestion routes
	apiRoutes.POST("/ingest", routes.IngestGraphHandler)
	apiRoutes.POST("/ingest/documents", routes.IngestDocumentHandler)
	apiRoutes.POST("/ingest/csv", routes.IngestCSVHandler)

	// Query routes
	apiRoutes.POST("/query", routes.QueryGraphHandler)
	apiRoutes.POST("/validate", routes.ValidateAnswerHandler)

	// Entity routes
	apiRoutes.GET("/entities/:name", routes.GetEntityHandler)
}
