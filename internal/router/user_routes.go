package router

import (
	"github.com/labstack/echo/v4"

	"github.com/arsipwarga/arsipwarga/internal/handler"
	"github.com/arsipwarga/arsipwarga/internal/middleware"
)

// RegisterDocuments registers the owner-facing document CRUD under /api.
// Any authenticated role may manage its own documents.
func RegisterDocuments(e *echo.Echo, h *handler.DocumentHandler, jwtSecret string) {
	g := e.Group("/api/documents", middleware.JWTAuth(jwtSecret))
	g.POST("", h.Upload)
	g.GET("", h.List)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// RegisterRequests registers the citizen-facing letter request endpoints.
func RegisterRequests(e *echo.Echo, h *handler.RequestHandler, jwtSecret string) {
	g := e.Group("/api/requests", middleware.JWTAuth(jwtSecret))
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
}
