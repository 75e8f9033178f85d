// Package v1 provides HTTP handlers for the CSV chat service.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/csvchat/csvchat/internal/domain"
	"github.com/csvchat/csvchat/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service        *service.Service
	maxUploadBytes int
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, maxUploadBytes int) *Handler {
	return &Handler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/health", h.Health)

	e.POST("/upload", h.Upload)
	e.POST("/query", h.Query)

	e.GET("/session/:session_id", h.GetSession)
	e.DELETE("/session/:session_id", h.DeleteSession)
	e.GET("/session/:session_id/history", h.GetSessionHistory)
}

// Root returns a short service description.
func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "CSV analysis chat API",
		"version": "0.1.0",
	})
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// errorJSON maps a domain error to its HTTP status and a JSON error body.
func errorJSON(c echo.Context, err error) error {
	return c.JSON(statusFor(err), map[string]string{"error": domain.MessageOf(err)})
}

func statusFor(err error) int {
	switch code := domain.CodeOf(err); {
	case code == domain.CodeSessionNotFound:
		return http.StatusNotFound
	case code == domain.CodeMalformedInput, code == domain.CodePayloadTooLarge, code == domain.CodeEncodingError:
		return http.StatusBadRequest
	case domain.IsToolError(code):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
