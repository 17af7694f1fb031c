package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/arsipwarga/arsipwarga/internal/repository"
)

// LocationHandler lists the RT and Kelurahan reference tables so clients
// can populate jurisdiction pickers.
type LocationHandler struct {
	Locations *repository.LocationRepo
}

func NewLocationHandler(locs *repository.LocationRepo) *LocationHandler {
	return &LocationHandler{Locations: locs}
}

type locationPart struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

func (h *LocationHandler) ListRT(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rts, err := h.Locations.ListRT(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]locationPart, 0, len(rts))
	for _, rt := range rts {
		out = append(out, locationPart{ID: rt.ID, Name: rt.Name})
	}
	return c.JSON(http.StatusOK, echo.Map{"rt": out})
}

func (h *LocationHandler) ListKelurahan(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	kels, err := h.Locations.ListKelurahan(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]locationPart, 0, len(kels))
	for _, k := range kels {
		out = append(out, locationPart{ID: k.ID, Name: k.Name})
	}
	return c.JSON(http.StatusOK, echo.Map{"kelurahan": out})
}
