package v1

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/csvchat/csvchat/internal/domain"
)

// Upload accepts a multipart CSV upload and creates a session for it.
// POST /upload
func (h *Handler) Upload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
	}
	if fileHeader.Size > int64(h.maxUploadBytes) {
		return errorJSON(c, domain.NewError(domain.CodePayloadTooLarge,
			"file exceeds the %d byte limit", h.maxUploadBytes))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to open uploaded file"})
	}
	defer file.Close()

	// Size header can lie; cap the read at one past the limit so the parser's
	// own size check still fires.
	raw, err := io.ReadAll(io.LimitReader(file, int64(h.maxUploadBytes)+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read uploaded file"})
	}

	encoding := c.FormValue("encoding")

	result, err := h.service.Upload(c.Request().Context(), fileHeader.Filename, encoding, raw)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
