package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/arsipwarga/arsipwarga/internal/model"
	"github.com/arsipwarga/arsipwarga/internal/queue"
	"github.com/arsipwarga/arsipwarga/internal/repository"
	"github.com/arsipwarga/arsipwarga/internal/service/eventbus"
)

// RequestApprover is the persistence surface of the RT/Kelurahan approval
// workflow. The ForRT/ForKelurahan split keeps the jurisdiction predicate
// inside the query rather than in handler code.
type RequestApprover interface {
	GetForRT(ctx context.Context, id, rtID uint64) (model.Request, error)
	GetForKelurahan(ctx context.Context, id, kelurahanID uint64) (model.Request, error)
	ResolveForRT(ctx context.Context, id, rtID uint64, status string) (bool, error)
	ResolveForKelurahan(ctx context.Context, id, kelurahanID uint64, status string) (bool, error)
	ListPendingForRT(ctx context.Context, rtID uint64) ([]model.Request, error)
	ListPendingForKelurahan(ctx context.Context, kelurahanID uint64) ([]model.Request, error)
	RecentActivityForRT(ctx context.Context, rtID uint64, limit int) ([]model.Request, error)
	RecentActivityForKelurahan(ctx context.Context, kelurahanID uint64, limit int) ([]model.Request, error)
}

// ApprovalHandler implements the two-tier letter approval workflow. An RT
// admin only ever sees requests whose rt_id matches their own stored
// jurisdiction; same for Kelurahan admins. Role and jurisdiction are
// re-read from the store on every call.
type ApprovalHandler struct {
	Requests RequestApprover
	Users    UserGetter
	Clock    Clock
}

func NewApprovalHandler(reqs RequestApprover, users UserGetter, clock Clock) *ApprovalHandler {
	return &ApprovalHandler{Requests: reqs, Users: users, Clock: clock}
}

type requestPart struct {
	ID          uint64    `json:"id"`
	UserID      uint64    `json:"user_id"`
	TujuanSurat string    `json:"tujuan_surat"`
	NomorSurat  string    `json:"nomor_surat"`
	RequestType string    `json:"request_type"`
	Status      string    `json:"status"`
	RTID        *uint64   `json:"rt_id,omitempty"`
	KelurahanID *uint64   `json:"kelurahan_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toRequestPart(q model.Request) requestPart {
	return requestPart{
		ID:          q.ID,
		UserID:      q.UserID,
		TujuanSurat: q.TujuanSurat,
		NomorSurat:  q.NomorSurat,
		RequestType: q.RequestType,
		Status:      q.Status,
		RTID:        q.RTID,
		KelurahanID: q.KelurahanID,
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
	}
}

func toRequestParts(reqs []model.Request) []requestPart {
	out := make([]requestPart, 0, len(reqs))
	for _, q := range reqs {
		out = append(out, toRequestPart(q))
	}
	return out
}

// requireStoredRTAdmin re-reads the caller and returns their stored RT
// jurisdiction. Admins without an rt_id are misconfigured and rejected.
func (h *ApprovalHandler) requireStoredRTAdmin(ctx context.Context, c echo.Context) (adminID, rtID uint64, ok bool) {
	uid, err := getUserID(c)
	if err != nil {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		return 0, 0, false
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil || u.Role != model.RoleRTAdmin || u.RTID == nil {
		_ = c.JSON(http.StatusForbidden, echo.Map{"error": "rt_admin role required"})
		return 0, 0, false
	}
	return uid, *u.RTID, true
}

func (h *ApprovalHandler) requireStoredKelurahanAdmin(ctx context.Context, c echo.Context) (adminID, kelurahanID uint64, ok bool) {
	uid, err := getUserID(c)
	if err != nil {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		return 0, 0, false
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil || u.Role != model.RoleKelurahanAdmin || u.KelurahanID == nil {
		_ = c.JSON(http.StatusForbidden, echo.Map{"error": "kelurahan_admin role required"})
		return 0, 0, false
	}
	return uid, *u.KelurahanID, true
}

// resolve runs the shared resolution sequence for one tier: fetch within
// jurisdiction (404 covers absent and out-of-jurisdiction alike), reject a
// second resolution with 409, then flip the row with the pending predicate
// in the UPDATE so racing admins cannot both win.
func (h *ApprovalHandler) resolve(
	ctx context.Context, c echo.Context,
	tier string, adminID, jurisdictionID, requestID uint64, status string,
	get func(context.Context, uint64, uint64) (model.Request, error),
	set func(context.Context, uint64, uint64, string) (bool, error),
) error {
	request, err := get(ctx, requestID, jurisdictionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if request.Status != model.ReqPending {
		return c.JSON(http.StatusConflict, echo.Map{"error": "request already processed"})
	}

	moved, err := set(ctx, requestID, jurisdictionID, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if !moved {
		// Resolved between our read and our write.
		return c.JSON(http.StatusConflict, echo.Map{"error": "request already processed"})
	}

	now, err := h.Clock.Now(ctx)
	if err == nil {
		eventbus.PublishAsync(queue.ActivityEvent{
			Type:           queue.TypeRequestResolved,
			RequestID:      request.ID,
			NomorSurat:     request.NomorSurat,
			Tier:           tier,
			JurisdictionID: jurisdictionID,
			Status:         status,
			AdminID:        adminID,
			OccurredAt:     now.UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "request " + status})
}

// ApproveRT approves a pending request targeting the caller's own RT.
func (h *ApprovalHandler) ApproveRT(c echo.Context) error {
	return h.resolveRT(c, model.ReqApproved)
}

// RejectRT rejects a pending request targeting the caller's own RT.
func (h *ApprovalHandler) RejectRT(c echo.Context) error {
	return h.resolveRT(c, model.ReqRejected)
}

// ApproveKelurahan approves a pending request targeting the caller's own
// Kelurahan.
func (h *ApprovalHandler) ApproveKelurahan(c echo.Context) error {
	return h.resolveKelurahan(c, model.ReqApproved)
}

// RejectKelurahan rejects a pending request targeting the caller's own
// Kelurahan.
func (h *ApprovalHandler) RejectKelurahan(c echo.Context) error {
	return h.resolveKelurahan(c, model.ReqRejected)
}

func (h *ApprovalHandler) resolveRT(c echo.Context, status string) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	adminID, rtID, ok := h.requireStoredRTAdmin(ctx, c)
	if !ok {
		return nil
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}
	return h.resolve(ctx, c, model.RequestTypeRT, adminID, rtID, id, status,
		h.Requests.GetForRT, h.Requests.ResolveForRT)
}

func (h *ApprovalHandler) resolveKelurahan(c echo.Context, status string) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	adminID, kelID, ok := h.requireStoredKelurahanAdmin(ctx, c)
	if !ok {
		return nil
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}
	return h.resolve(ctx, c, model.RequestTypeKelurahan, adminID, kelID, id, status,
		h.Requests.GetForKelurahan, h.Requests.ResolveForKelurahan)
}

// ListRTPending returns pending requests inside the caller's RT.
func (h *ApprovalHandler) ListRTPending(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	_, rtID, ok := h.requireStoredRTAdmin(ctx, c)
	if !ok {
		return nil
	}
	reqs, err := h.Requests.ListPendingForRT(ctx, rtID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": toRequestParts(reqs)})
}

// ListKelurahanPending returns pending requests inside the caller's
// Kelurahan.
func (h *ApprovalHandler) ListKelurahanPending(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	_, kelID, ok := h.requireStoredKelurahanAdmin(ctx, c)
	if !ok {
		return nil
	}
	reqs, err := h.Requests.ListPendingForKelurahan(ctx, kelID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": toRequestParts(reqs)})
}

// RTActivity returns the latest resolved requests inside the caller's RT.
func (h *ApprovalHandler) RTActivity(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	_, rtID, ok := h.requireStoredRTAdmin(ctx, c)
	if !ok {
		return nil
	}
	reqs, err := h.Requests.RecentActivityForRT(ctx, rtID, 20)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"activity": toRequestParts(reqs)})
}

// KelurahanActivity mirrors RTActivity for the Kelurahan tier.
func (h *ApprovalHandler) KelurahanActivity(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	_, kelID, ok := h.requireStoredKelurahanAdmin(ctx, c)
	if !ok {
		return nil
	}
	reqs, err := h.Requests.RecentActivityForKelurahan(ctx, kelID, 20)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"activity": toRequestParts(reqs)})
}
