package router

import (
	"github.com/labstack/echo/v4"

	"github.com/arsipwarga/arsipwarga/internal/handler"
	"github.com/arsipwarga/arsipwarga/internal/middleware"
	"github.com/arsipwarga/arsipwarga/internal/model"
)

// RegisterAdmin registers the document verification endpoints. The role
// middleware gates routing on the JWT claim; the handler re-reads the
// stored role before mutating anything.
func RegisterAdmin(e *echo.Echo, h *handler.VerificationHandler, jwtSecret string) {
	g := e.Group(
		"/api/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.GET("/documents/pending", h.ListPendingDocuments)
	g.GET("/documents/pending/count", h.GetPendingDocumentCount)
	g.PUT("/verify/:documentId", h.Verify)
	g.PUT("/reject/:documentId", h.Reject)
	g.GET("/activity", h.RecentDocumentActivity)
}

// RegisterRTAdmin registers the RT-tier approval endpoints.
func RegisterRTAdmin(e *echo.Echo, h *handler.ApprovalHandler, jwtSecret string) {
	g := e.Group(
		"/api/rt-admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleRTAdmin),
	)
	g.GET("/requests", h.ListRTPending)
	g.PUT("/requests/approve/:id", h.ApproveRT)
	g.PUT("/requests/reject/:id", h.RejectRT)
	g.GET("/activity", h.RTActivity)
}

// RegisterKelurahanAdmin registers the Kelurahan-tier approval endpoints.
func RegisterKelurahanAdmin(e *echo.Echo, h *handler.ApprovalHandler, jwtSecret string) {
	g := e.Group(
		"/api/kelurahan-admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleKelurahanAdmin),
	)
	g.GET("/requests", h.ListKelurahanPending)
	g.PUT("/requests/approve/:id", h.ApproveKelurahan)
	g.PUT("/requests/reject/:id", h.RejectKelurahan)
	g.GET("/activity", h.KelurahanActivity)
}
