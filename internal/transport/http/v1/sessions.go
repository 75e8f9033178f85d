package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/csvchat/csvchat/internal/domain"
)

// GetSession returns metadata about a live session.
// GET /session/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	info, err := h.service.SessionInfo(c.Param("session_id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

// DeleteSession destroys a session and its dataset.
// DELETE /session/:session_id
func (h *Handler) DeleteSession(c echo.Context) error {
	if err := h.service.DeleteSession(c.Param("session_id")); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "session deleted"})
}

// GetSessionHistory returns the recorded query runs of a session.
// GET /session/:session_id/history
func (h *Handler) GetSessionHistory(c echo.Context) error {
	limit := 50
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}

	runs, err := h.service.SessionHistory(c.Request().Context(), c.Param("session_id"), limit)
	if err != nil {
		return errorJSON(c, err)
	}
	if runs == nil {
		runs = []domain.Run{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"runs": runs})
}
