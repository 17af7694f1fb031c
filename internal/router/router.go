package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/arsipwarga/arsipwarga/internal/handler"
	"github.com/arsipwarga/arsipwarga/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints. Unauthenticated
// operations (register, login, refresh, logout) live under /api/auth;
// /api/auth/me and /api/auth/verify-password require a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/api/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/api/auth", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.POST("/verify-password", a.VerifyPassword)
}

// RegisterLocations registers the public jurisdiction reference lists.
func RegisterLocations(e *echo.Echo, l *handler.LocationHandler) {
	e.GET("/api/locations/rt", l.ListRT)
	e.GET("/api/locations/kelurahan", l.ListKelurahan)
}

// RegisterFiles registers the signed download endpoint. Authorization is
// the URL signature itself, so no JWT middleware applies.
func RegisterFiles(e *echo.Echo, f *handler.FileHandler) {
	e.GET("/api/files/*", f.Download)
}
