package routes

import (
	"errors"
	"net/http"

	"github.com/chainsight/backend/internal/server/middleware"
	"github.com/chainsight/backend/pkg/common"
	"github.com/chainsight/backend/pkg/logger"
	"github.com/chainsight/backend/pkg/store"

	"github.com/labstack/echo/v4"
)

// GetEntityHandler looks up a single entity by name. The name is
// resolved through the alias table first, so tickers and legal-name
// variants find their canonical node.
func GetEntityHandler(c echo.Context) error {
	type getEntityResponse struct {
		Message string         `json:"message"`
		Entity  *common.Entity `json:"entity,omitempty"`
	}

	name := c.Param("name")
	if name == "" {
		return c.JSON(http.StatusBadRequest, getEntityResponse{
			Message: "Missing entity name",
		})
	}

	app := c.(*middleware.AppContext).App
	canonical := app.Engine.Resolver().Resolve(name)

	entity, err := app.Store.GetEntity(c.Request().Context(), canonical)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, getEntityResponse{
				Message: "Entity not found",
			})
		}
		logger.Error("[Entities] Lookup failed", "name", name, "err", err)
		return c.JSON(http.StatusInternalServerError, getEntityResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getEntityResponse{
		Message: "Entity found",
		Entity:  entity,
	})
}
