package routes

import (
	"net/http"

	"github.com/chainsight/backend/internal/server/middleware"
	"github.com/chainsight/backend/pkg/cite"
	"github.com/chainsight/backend/pkg/common"

	"github.com/labstack/echo/v4"
)

// ValidateAnswerHandler checks a generated answer against its sources
// and returns the structured validation outcome plus per-claim evidence.
func ValidateAnswerHandler(c echo.Context) error {
	type validateBody struct {
		Answer  string          `json:"answer" validate:"required"`
		Sources []common.Source `json:"sources" validate:"required,min=1"`
	}

	type validateResponse struct {
		Message    string                   `json:"message"`
		Validation *common.ValidationResult `json:"validation,omitempty"`
		Evidence   []common.Evidence        `json:"evidence,omitempty"`
		Summary    string                   `json:"summary,omitempty"`
	}

	data := new(validateBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, validateResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, validateResponse{
			Message: "Invalid request body",
		})
	}

	app := c.(*middleware.AppContext).App
	validator, err := cite.NewValidator(cite.NewValidatorParams{
		Sources: data.Sources,
		Weights: app.Weights,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, validateResponse{
			Message: "Internal server error",
		})
	}

	result := validator.Validate(data.Answer)
	return c.JSON(http.StatusOK, validateResponse{
		Message:    "Validation completed",
		Validation: &result,
		Evidence:   validator.BuildEvidence(data.Answer),
		Summary:    cite.Summarize(result),
	})
}
