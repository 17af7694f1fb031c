package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arsipwarga/arsipwarga/internal/logger"
	"github.com/arsipwarga/arsipwarga/internal/model"
	"github.com/arsipwarga/arsipwarga/internal/queue"
	"github.com/arsipwarga/arsipwarga/internal/repository"
	"github.com/arsipwarga/arsipwarga/internal/service/eventbus"
	"github.com/arsipwarga/arsipwarga/internal/utils"
)

// tokenMintAttempts bounds the re-mint loop on a duplicate token. With
// 128-bit tokens a single retry is already astronomically unlikely.
const tokenMintAttempts = 3

// ShareStore is the persistence surface the document-share flow needs.
type ShareStore interface {
	Create(ctx context.Context, s *model.Share, documentIDs []uint64) error
	GetByToken(ctx context.Context, token string) (model.Share, error)
	Activate(ctx context.Context, token string, at time.Time) (bool, error)
	DocumentsByShare(ctx context.Context, shareID uint64) ([]model.Document, error)
}

// RequestShareStore is the persistence surface the request-share flow needs.
type RequestShareStore interface {
	Create(ctx context.Context, s *model.RequestShare) error
	GetByToken(ctx context.Context, token string) (model.RequestShare, error)
	Activate(ctx context.Context, token string, at time.Time) (bool, error)
}

// DocumentCounter verifies ownership of a candidate document set.
type DocumentCounter interface {
	CountOwned(ctx context.Context, userID uint64, ids []uint64) (int, error)
}

// RequestGetter fetches a request for share eligibility checks.
type RequestGetter interface {
	GetByID(ctx context.Context, id uint64) (model.Request, error)
}

// ShareHandler implements the two-phase share lifecycle: a share is
// created with a short QR window, a scan activates it, and activation
// opens the long download window. All time comparisons use the store
// clock, read once per decision.
type ShareHandler struct {
	Shares        ShareStore
	RequestShares RequestShareStore
	Documents     DocumentCounter
	Requests      RequestGetter
	Users         UserGetter
	Clock         Clock
	Signer        URLSigner
}

func NewShareHandler(shares ShareStore, reqShares RequestShareStore, docs DocumentCounter, reqs RequestGetter, users UserGetter, clock Clock, signer URLSigner) *ShareHandler {
	return &ShareHandler{
		Shares:        shares,
		RequestShares: reqShares,
		Documents:     docs,
		Requests:      reqs,
		Users:         users,
		Clock:         clock,
		Signer:        signer,
	}
}

type createShareReq struct {
	DocumentIDs []uint64 `json:"documentIds"`
	Password    string   `json:"password"`
}

type createRequestShareReq struct {
	RequestID uint64 `json:"requestId"`
	Password  string `json:"password"`
}

type sharedFilePart struct {
	ID          uint64 `json:"id"`
	Filename    string `json:"filename"`
	Type        string `json:"type"`
	MimeType    string `json:"mimeType"`
	DownloadURL string `json:"downloadUrl"`
}

// verifyOwnerPassword re-checks the caller's password against the stored
// hash. Creating a share is a deliberate act of exposure, so a live JWT
// alone is not enough.
func (h *ShareHandler) verifyOwnerPassword(ctx context.Context, userID uint64, password string) (bool, error) {
	if password == "" {
		return false, nil
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return utils.VerifyPassword(u.PasswordHash, password), nil
}

// CreateDocumentShare mints a share token over a set of the caller's
// documents. All-or-nothing: one id that is missing or not owned fails
// the whole request without creating anything.
func (h *ShareHandler) CreateDocumentShare(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createShareReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.DocumentIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "documentIds required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	ok, err := h.verifyOwnerPassword(ctx, uid, req.Password)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "incorrect password"})
	}

	n, err := h.Documents.CountOwned(ctx, uid, req.DocumentIDs)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if n != len(req.DocumentIDs) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "one or more documents not found"})
	}

	now, err := h.Clock.Now(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "clock read failed"})
	}

	share := model.Share{UserID: uid}
	share.QRExpiresAt = now.Add(model.QRWindow)
	share.DownloadExpiresAt = now.Add(model.DownloadWindow)

	for attempt := 0; attempt < tokenMintAttempts; attempt++ {
		share.Token, err = utils.NewShareToken()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
		}
		err = h.Shares.Create(ctx, &share, req.DocumentIDs)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrTokenExists) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create share failed"})
		}
	}
	if err != nil {
		logger.L.Error("share: token collisions exhausted retries", zap.Uint64("user_id", uid))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create share failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"token":             share.Token,
		"qrExpiresAt":       share.QRExpiresAt,
		"downloadExpiresAt": share.DownloadExpiresAt,
	})
}

// GetShare redeems a document share token: validates the window state,
// then returns metadata plus signed download URLs for the shared
// documents. Redemption does not activate; scanning the QR does.
func (h *ShareHandler) GetShare(c echo.Context) error {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "share not found"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	share, err := h.Shares.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "share not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	now, err := h.Clock.Now(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "clock read failed"})
	}
	switch share.StateAt(now) {
	case model.ShareQRExpired:
		return c.JSON(http.StatusGone, echo.Map{"error": "QR code expired"})
	case model.ShareDownloadExpired:
		return c.JSON(http.StatusGone, echo.Map{"error": "download period expired"})
	}

	docs, err := h.Shares.DocumentsByShare(ctx, share.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	// URL lifetime is capped by the share's own download expiry so a signed
	// URL can never outlive the share that produced it.
	ttl := share.DownloadExpiresAt.Sub(now)
	out := make([]sharedFilePart, 0, len(docs))
	for _, d := range docs {
		url, err := h.Signer.SignedURL(d.StoragePath, ttl, now)
		if err != nil {
			// A missing or unsignable object drops that document from the
			// response rather than failing the whole redemption.
			logger.L.Warn("share: sign url failed",
				zap.Uint64("document_id", d.ID), zap.Error(err))
			continue
		}
		out = append(out, sharedFilePart{
			ID:          d.ID,
			Filename:    d.Filename,
			Type:        d.FileType,
			MimeType:    d.MimeType,
			DownloadURL: url,
		})
	}
	if len(out) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no accessible documents"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token":             share.Token,
		"activated":         share.QRActivatedAt != nil,
		"qrExpiresAt":       share.QRExpiresAt,
		"downloadExpiresAt": share.DownloadExpiresAt,
		"files":             out,
	})
}

// ActivateShare is the QR-scan endpoint. The decision table, evaluated
// against one clock reading:
//
//	not activated, QR window open   -> stamp activation, 200
//	not activated, QR window closed -> 410, terminal
//	already activated, window open  -> 200 "already activated" (idempotent)
//	already activated, window closed-> 410, terminal
func (h *ShareHandler) ActivateShare(c echo.Context) error {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "share not found"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	share, err := h.Shares.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "share not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	now, err := h.Clock.Now(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "clock read failed"})
	}

	switch share.StateAt(now) {
	case model.ShareQRExpired:
		return c.JSON(http.StatusGone, echo.Map{"error": "QR code expired"})
	case model.ShareDownloadExpired:
		return c.JSON(http.StatusGone, echo.Map{"error": "download period expired"})
	case model.ShareActive:
		return c.JSON(http.StatusOK, echo.Map{"message": "QR already activated."})
	}

	won, err := h.Shares.Activate(ctx, token, now)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activation failed"})
	}
	if !won {
		// Lost a concurrent race; the other scan activated it first.
		return c.JSON(http.StatusOK, echo.Map{"message": "QR already activated."})
	}

	eventbus.PublishAsync(queue.ActivityEvent{
		Type:       queue.TypeShareActivated,
		ShareKind:  "documents",
		Token:      share.Token,
		OccurredAt: now.UTC().Format(time.RFC3339),
	})
	return c.JSON(http.StatusOK, echo.Map{"message": "QR activated."})
}

// CreateRequestShare mints a share token over one of the caller's
// approved requests. Pending and rejected requests cannot be shared.
func (h *ShareHandler) CreateRequestShare(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createRequestShareReq
	if err := c.Bind(&req); err != nil || req.RequestID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "requestId required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	ok, err := h.verifyOwnerPassword(ctx, uid, req.Password)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "incorrect password"})
	}

	request, err := h.Requests.GetByID(ctx, req.RequestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if request.UserID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your request"})
	}
	if request.Status != model.ReqApproved {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "request is not approved"})
	}

	now, err := h.Clock.Now(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "clock read failed"})
	}

	share := model.RequestShare{UserID: uid, RequestID: request.ID}
	share.QRExpiresAt = now.Add(model.QRWindow)
	share.DownloadExpiresAt = now.Add(model.DownloadWindow)

	for attempt := 0; attempt < tokenMintAttempts; attempt++ {
		share.Token, err = utils.NewShareToken()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
		}
		err = h.RequestShares.Create(ctx, &share)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrTokenExists) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create share failed"})
		}
	}
	if err != nil {
		logger.L.Error("share: token collisions exhausted retries", zap.Uint64("user_id", uid))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create share failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"token":             share.Token,
		"qrExpiresAt":       share.QRExpiresAt,
		"downloadExpiresAt": share.DownloadExpiresAt,
	})
}

// GetRequestShare redeems a request share token, returning the letter
// details when the window state allows it.
func (h *ShareHandler) GetRequestShare(c echo.Context) error {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "share not found"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	share, err := h.RequestShares.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "share not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	now, err := h.Clock.Now(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "clock read failed"})
	}
	switch share.StateAt(now) {
	case model.ShareQRExpired:
		return c.JSON(http.StatusGone, echo.Map{"error": "QR code expired"})
	case model.ShareDownloadExpired:
		return c.JSON(http.StatusGone, echo.Map{"error": "download period expired"})
	}

	request, err := h.Requests.GetByID(ctx, share.RequestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token":             share.Token,
		"activated":         share.QRActivatedAt != nil,
		"qrExpiresAt":       share.QRExpiresAt,
		"downloadExpiresAt": share.DownloadExpiresAt,
		"request": echo.Map{
			"id":          request.ID,
			"tujuanSurat": request.TujuanSurat,
			"nomorSurat":  request.NomorSurat,
			"requestType": request.RequestType,
			"status":      request.Status,
			"createdAt":   request.CreatedAt,
		},
	})
}

// ActivateRequestShare mirrors ActivateShare for request shares.
func (h *ShareHandler) ActivateRequestShare(c echo.Context) error {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "share not found"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	share, err := h.RequestShares.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "share not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	now, err := h.Clock.Now(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "clock read failed"})
	}

	switch share.StateAt(now) {
	case model.ShareQRExpired:
		return c.JSON(http.StatusGone, echo.Map{"error": "QR code expired"})
	case model.ShareDownloadExpired:
		return c.JSON(http.StatusGone, echo.Map{"error": "download period expired"})
	case model.ShareActive:
		return c.JSON(http.StatusOK, echo.Map{"message": "QR already activated."})
	}

	won, err := h.RequestShares.Activate(ctx, token, now)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activation failed"})
	}
	if !won {
		return c.JSON(http.StatusOK, echo.Map{"message": "QR already activated."})
	}

	eventbus.PublishAsync(queue.ActivityEvent{
		Type:       queue.TypeShareActivated,
		ShareKind:  "request",
		Token:      share.Token,
		OccurredAt: now.UTC().Format(time.RFC3339),
	})
	return c.JSON(http.StatusOK, echo.Map{"message": "QR activated."})
}
