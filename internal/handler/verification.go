package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/arsipwarga/arsipwarga/internal/model"
	"github.com/arsipwarga/arsipwarga/internal/queue"
	"github.com/arsipwarga/arsipwarga/internal/service/eventbus"
)

// DocumentVerifier is the persistence surface of the admin verification
// workflow.
type DocumentVerifier interface {
	GetByID(ctx context.Context, id uint64) (model.Document, error)
	SetVerification(ctx context.Context, id uint64, status string, at time.Time) (bool, error)
	ListPending(ctx context.Context) ([]model.Document, error)
	RecentActivity(ctx context.Context, limit int) ([]model.Document, error)
}

// VerificationHandler implements the admin document verification workflow.
// Authorization re-reads the stored role on every call; a stale admin
// claim in a still-valid JWT does not grant admin power.
type VerificationHandler struct {
	Documents DocumentVerifier
	Users     UserGetter
	Clock     Clock
}

func NewVerificationHandler(docs DocumentVerifier, users UserGetter, clock Clock) *VerificationHandler {
	return &VerificationHandler{Documents: docs, Users: users, Clock: clock}
}

type documentPart struct {
	ID                 uint64    `json:"id"`
	UserID             uint64    `json:"user_id"`
	Filename           string    `json:"filename"`
	FileType           string    `json:"file_type"`
	MimeType           string    `json:"mime_type"`
	VerificationStatus string    `json:"verification_status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toDocumentPart(d model.Document) documentPart {
	return documentPart{
		ID:                 d.ID,
		UserID:             d.UserID,
		Filename:           d.Filename,
		FileType:           d.FileType,
		MimeType:           d.MimeType,
		VerificationStatus: d.VerificationStatus,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

func toDocumentParts(docs []model.Document) []documentPart {
	out := make([]documentPart, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentPart(d))
	}
	return out
}

// requireStoredAdmin re-reads the caller and checks the stored role.
func (h *VerificationHandler) requireStoredAdmin(ctx context.Context, c echo.Context) (uint64, bool) {
	uid, err := getUserID(c)
	if err != nil {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		return 0, false
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil || u.Role != model.RoleAdmin {
		_ = c.JSON(http.StatusForbidden, echo.Map{"error": "admin role required"})
		return 0, false
	}
	return uid, true
}

// Verify moves a pending document to verified.
func (h *VerificationHandler) Verify(c echo.Context) error {
	return h.setStatus(c, model.DocVerified)
}

// Reject moves a pending document to rejected.
func (h *VerificationHandler) Reject(c echo.Context) error {
	return h.setStatus(c, model.DocRejected)
}

// setStatus resolves a pending document. A document that is absent or
// already resolved yields the same 404; the two cases are deliberately
// indistinguishable.
func (h *VerificationHandler) setStatus(c echo.Context, status string) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	adminID, ok := h.requireStoredAdmin(ctx, c)
	if !ok {
		return nil
	}

	id, err := parseIDParam(c, "documentId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid document id"})
	}

	now, err := h.Clock.Now(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "clock read failed"})
	}

	moved, err := h.Documents.SetVerification(ctx, id, status, now)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if !moved {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found or already processed"})
	}

	ev := queue.ActivityEvent{
		Type:       queue.TypeDocumentVerified,
		DocumentID: id,
		Status:     status,
		AdminID:    adminID,
		OccurredAt: now.UTC().Format(time.RFC3339),
	}
	if d, err := h.Documents.GetByID(ctx, id); err == nil {
		ev.Filename = d.Filename
	}
	eventbus.PublishAsync(ev)

	return c.JSON(http.StatusOK, echo.Map{"message": "document " + status})
}

// ListPendingDocuments returns every document awaiting verification.
func (h *VerificationHandler) ListPendingDocuments(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if _, ok := h.requireStoredAdmin(ctx, c); !ok {
		return nil
	}

	docs, err := h.Documents.ListPending(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"documents": toDocumentParts(docs)})
}

// RecentDocumentActivity returns the latest resolved documents for the
// admin dashboard feed.
func (h *VerificationHandler) RecentDocumentActivity(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if _, ok := h.requireStoredAdmin(ctx, c); !ok {
		return nil
	}

	docs, err := h.Documents.RecentActivity(ctx, 20)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"activity": toDocumentParts(docs)})
}

// GetPendingDocumentCount is a lightweight badge endpoint for the admin UI.
func (h *VerificationHandler) GetPendingDocumentCount(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if _, ok := h.requireStoredAdmin(ctx, c); !ok {
		return nil
	}

	docs, err := h.Documents.ListPending(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(docs)})
}
