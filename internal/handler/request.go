package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/labstack/echo/v4"

	"github.com/arsipwarga/arsipwarga/internal/model"
	"github.com/arsipwarga/arsipwarga/internal/repository"
)

// RequestHandler implements the citizen-facing request CRUD. Approval
// lives in ApprovalHandler.
type RequestHandler struct {
	Requests  *repository.RequestRepo
	Locations *repository.LocationRepo
	Clock     Clock
}

func NewRequestHandler(reqs *repository.RequestRepo, locs *repository.LocationRepo, clock Clock) *RequestHandler {
	return &RequestHandler{Requests: reqs, Locations: locs, Clock: clock}
}

type createRequestReq struct {
	TujuanSurat string  `json:"tujuan_surat"`
	RequestType string  `json:"request_type"` // RT | Kelurahan
	RTID        *uint64 `json:"rt_id"`
	KelurahanID *uint64 `json:"kelurahan_id"`
}

// nomorSurat builds the display letter number: SURAT-YYYYMMDD-xxxxxx with
// a random 6-character suffix. A display label only, never a lookup key,
// so uniqueness is best-effort.
func nomorSurat(now time.Time) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SURAT-%s-%s", now.UTC().Format("20060102"), id.String()[:6]), nil
}

// Create files a new pending letter request addressed to an RT or a
// Kelurahan. The jurisdiction id matching the request type must be set
// and must exist.
func (h *RequestHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.TujuanSurat = strings.TrimSpace(req.TujuanSurat)
	if req.TujuanSurat == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tujuan_surat required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	q := model.Request{UserID: uid, TujuanSurat: req.TujuanSurat, RequestType: req.RequestType}
	switch req.RequestType {
	case model.RequestTypeRT:
		if req.RTID == nil || req.KelurahanID != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "rt_id required for RT requests"})
		}
		ok, err := h.Locations.RTExists(ctx, *req.RTID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rt_id"})
		}
		q.RTID = req.RTID
	case model.RequestTypeKelurahan:
		if req.KelurahanID == nil || req.RTID != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "kelurahan_id required for Kelurahan requests"})
		}
		ok, err := h.Locations.KelurahanExists(ctx, *req.KelurahanID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid kelurahan_id"})
		}
		q.KelurahanID = req.KelurahanID
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "request_type must be RT or Kelurahan"})
	}

	now, err := h.Clock.Now(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "clock read failed"})
	}
	q.NomorSurat, err = nomorSurat(now)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "number generation failed"})
	}

	id, err := h.Requests.Create(ctx, q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create request failed"})
	}
	q.ID = id
	q.Status = model.ReqPending

	return c.JSON(http.StatusCreated, echo.Map{"request": toRequestPart(q)})
}

// List returns the caller's requests, optionally filtered by
// ?status=pending|approved|rejected.
func (h *RequestHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	status := c.QueryParam("status")
	switch status {
	case "", model.ReqPending, model.ReqApproved, model.ReqRejected:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	reqs, err := h.Requests.ListByUser(ctx, uid, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": toRequestParts(reqs)})
}

// Get returns one of the caller's requests.
func (h *RequestHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	q, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if q.UserID != uid {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"request": toRequestPart(q)})
}

// Delete removes one of the caller's requests. Any status may be deleted;
// an approved letter the citizen no longer wants is theirs to discard.
func (h *RequestHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Requests.Delete(ctx, id, uid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete request failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
