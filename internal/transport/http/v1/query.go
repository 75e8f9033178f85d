package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/csvchat/csvchat/internal/domain"
)

// Query runs a natural-language query against a session's dataset.
// POST /query
func (h *Handler) Query(c echo.Context) error {
	var req domain.QueryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	result, err := h.service.ProcessQuery(c.Request().Context(), req)
	if err != nil {
		return errorJSON(c, err)
	}

	// Orchestration failures still answer 200; Success carries the outcome.
	return c.JSON(http.StatusOK, result)
}
