package router

import (
	"github.com/labstack/echo/v4"

	"github.com/arsipwarga/arsipwarga/internal/handler"
	"github.com/arsipwarga/arsipwarga/internal/middleware"
)

// RegisterShares registers the share lifecycle endpoints. Creation
// requires a JWT (plus a password re-check inside the handler); the
// redemption and activation endpoints are public because the share token
// itself is the credential, so they sit behind the rate limiter to keep
// token guessing expensive.
func RegisterShares(e *echo.Echo, h *handler.ShareHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	auth := e.Group("/api/shares", middleware.JWTAuth(jwtSecret))
	auth.POST("", h.CreateDocumentShare)
	auth.POST("/request", h.CreateRequestShare)

	pub := e.Group("/api/shares", limiter)
	pub.GET("/request/:token", h.GetRequestShare)
	pub.POST("/request/:token/activate", h.ActivateRequestShare)
	pub.GET("/:token", h.GetShare)
	pub.POST("/:token/activate", h.ActivateShare)
}
