package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/arsipwarga/arsipwarga/internal/storage"
)

// FileHandler serves stored objects to holders of a valid signed URL.
// No session, no JWT: the signature in the query string is the whole
// authorization.
type FileHandler struct {
	Store *storage.Store
	Clock Clock
}

func NewFileHandler(store *storage.Store, clock Clock) *FileHandler {
	return &FileHandler{Store: store, Clock: clock}
}

// Download verifies the signature and streams the object. Expiry is
// checked against the store clock, the same clock that minted the URL.
func (h *FileHandler) Download(c echo.Context) error {
	raw := c.Param("*")
	path, err := url.PathUnescape(raw)
	if err != nil || path == "" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "file not found"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	now, err := h.Clock.Now(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "clock read failed"})
	}
	if err := h.Store.Verify(path, c.QueryParam("exp"), c.QueryParam("sig"), now); err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid or expired link"})
	}

	f, err := h.Store.Open(path)
	if err != nil {
		if errors.Is(err, storage.ErrObjectMissing) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "file not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "open file failed"})
	}
	defer f.Close()

	return c.Stream(http.StatusOK, "application/octet-stream", f)
}
