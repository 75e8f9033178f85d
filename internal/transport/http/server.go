// Package http provides the HTTP server implementation for the CSV chat
// service.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/csvchat/csvchat/internal/service"
	v1 "github.com/csvchat/csvchat/internal/transport/http/v1"
)

// NewServer creates and configures the HTTP server.
func NewServer(svc *service.Service, maxUploadBytes int) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	handler := v1.NewHandler(svc, maxUploadBytes)
	handler.RegisterRoutes(e)

	return e
}
