package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/arsipwarga/arsipwarga/internal/model"
	"github.com/arsipwarga/arsipwarga/internal/repository"
	"github.com/arsipwarga/arsipwarga/internal/utils"
)

// ----- fakes -----

type fakeUsers struct {
	users map[uint64]model.User
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now(context.Context) (time.Time, error) { return f.now, nil }

type fakeSigner struct {
	failPaths map[string]bool
	lastTTL   time.Duration
}

func (f *fakeSigner) SignedURL(path string, ttl time.Duration, _ time.Time) (string, error) {
	f.lastTTL = ttl
	if f.failPaths[path] {
		return "", fmt.Errorf("object missing")
	}
	return "http://localhost:8080/api/files/" + path, nil
}

type fakeShareStore struct {
	shares         map[string]*model.Share
	docs           map[uint64][]model.Document
	nextID         uint64
	createErrs     []error // popped on each Create before succeeding
	creates        int
	loseActivation bool // simulate losing the conditional-update race
}

func (f *fakeShareStore) Create(_ context.Context, s *model.Share, documentIDs []uint64) error {
	f.creates++
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	f.nextID++
	s.ID = f.nextID
	cp := *s
	f.shares[s.Token] = &cp
	return nil
}

func (f *fakeShareStore) GetByToken(_ context.Context, token string) (model.Share, error) {
	s, ok := f.shares[token]
	if !ok {
		return model.Share{}, repository.ErrNotFound
	}
	return *s, nil
}

func (f *fakeShareStore) Activate(_ context.Context, token string, at time.Time) (bool, error) {
	s, ok := f.shares[token]
	if !ok || s.QRActivatedAt != nil || f.loseActivation {
		return false, nil
	}
	s.QRActivatedAt = &at
	return true, nil
}

func (f *fakeShareStore) DocumentsByShare(_ context.Context, shareID uint64) ([]model.Document, error) {
	return f.docs[shareID], nil
}

type fakeDocCounter struct {
	owned map[uint64]map[uint64]bool // userID -> owned document ids
}

func (f *fakeDocCounter) CountOwned(_ context.Context, userID uint64, ids []uint64) (int, error) {
	n := 0
	for _, id := range ids {
		if f.owned[userID][id] {
			n++
		}
	}
	return n, nil
}

type fakeRequestShareStore struct {
	shares map[string]*model.RequestShare
	nextID uint64
}

func (f *fakeRequestShareStore) Create(_ context.Context, s *model.RequestShare) error {
	f.nextID++
	s.ID = f.nextID
	cp := *s
	f.shares[s.Token] = &cp
	return nil
}

func (f *fakeRequestShareStore) GetByToken(_ context.Context, token string) (model.RequestShare, error) {
	s, ok := f.shares[token]
	if !ok {
		return model.RequestShare{}, repository.ErrNotFound
	}
	return *s, nil
}

func (f *fakeRequestShareStore) Activate(_ context.Context, token string, at time.Time) (bool, error) {
	s, ok := f.shares[token]
	if !ok || s.QRActivatedAt != nil {
		return false, nil
	}
	s.QRActivatedAt = &at
	return true, nil
}

type fakeRequestGetter struct {
	requests map[uint64]model.Request
}

func (f *fakeRequestGetter) GetByID(_ context.Context, id uint64) (model.Request, error) {
	q, ok := f.requests[id]
	if !ok {
		return model.Request{}, repository.ErrNotFound
	}
	return q, nil
}

// ----- harness -----

type shareFixture struct {
	h       *ShareHandler
	users   *fakeUsers
	clock   *fakeClock
	signer  *fakeSigner
	shares  *fakeShareStore
	reqs    *fakeRequestGetter
	rShares *fakeRequestShareStore
	docs    *fakeDocCounter
}

func newShareFixture(t *testing.T) *shareFixture {
	t.Helper()
	hash, err := utils.HashPassword("hunter2", bcrypt.MinCost)
	require.NoError(t, err)

	f := &shareFixture{
		users: &fakeUsers{users: map[uint64]model.User{
			1: {ID: 1, FullName: "Budi Santoso", Role: model.RoleUser, PasswordHash: hash},
		}},
		clock:   &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		signer:  &fakeSigner{failPaths: map[string]bool{}},
		shares:  &fakeShareStore{shares: map[string]*model.Share{}, docs: map[uint64][]model.Document{}},
		rShares: &fakeRequestShareStore{shares: map[string]*model.RequestShare{}},
		docs:    &fakeDocCounter{owned: map[uint64]map[uint64]bool{1: {10: true, 11: true}}},
		reqs:    &fakeRequestGetter{requests: map[uint64]model.Request{}},
	}
	f.h = NewShareHandler(f.shares, f.rShares, f.docs, f.reqs, f.users, f.clock, f.signer)
	return f
}

func doJSON(method, target string, body interface{}, uid uint64, paramNames []string, paramValues []string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if uid != 0 {
		c.Set("user_id", uid)
	}
	if len(paramNames) > 0 {
		c.SetParamNames(paramNames...)
		c.SetParamValues(paramValues...)
	}
	return c, rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

// ----- document share creation -----

func TestCreateDocumentShare(t *testing.T) {
	f := newShareFixture(t)
	c, rec := doJSON(http.MethodPost, "/api/shares",
		map[string]interface{}{"documentIds": []uint64{10, 11}, "password": "hunter2"}, 1, nil, nil)

	require.NoError(t, f.h.CreateDocumentShare(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	token, _ := body["token"].(string)
	assert.Len(t, token, 22)

	stored := f.shares.shares[token]
	require.NotNil(t, stored)
	assert.Equal(t, uint64(1), stored.UserID)
	assert.Equal(t, f.clock.now.Add(model.QRWindow), stored.QRExpiresAt)
	assert.Equal(t, f.clock.now.Add(model.DownloadWindow), stored.DownloadExpiresAt)
	assert.Nil(t, stored.QRActivatedAt)
}

func TestCreateDocumentShareEmptySelection(t *testing.T) {
	f := newShareFixture(t)
	c, rec := doJSON(http.MethodPost, "/api/shares",
		map[string]interface{}{"documentIds": []uint64{}, "password": "hunter2"}, 1, nil, nil)

	require.NoError(t, f.h.CreateDocumentShare(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.shares.creates)
}

func TestCreateDocumentShareWrongPassword(t *testing.T) {
	f := newShareFixture(t)
	c, rec := doJSON(http.MethodPost, "/api/shares",
		map[string]interface{}{"documentIds": []uint64{10}, "password": "wrong"}, 1, nil, nil)

	require.NoError(t, f.h.CreateDocumentShare(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, f.shares.creates)
}

func TestCreateDocumentShareAllOrNothing(t *testing.T) {
	f := newShareFixture(t)
	// 99 does not belong to user 1; nothing may be created.
	c, rec := doJSON(http.MethodPost, "/api/shares",
		map[string]interface{}{"documentIds": []uint64{10, 99}, "password": "hunter2"}, 1, nil, nil)

	require.NoError(t, f.h.CreateDocumentShare(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, f.shares.creates)
	assert.Empty(t, f.shares.shares)
}

func TestCreateDocumentShareRemintsOnDuplicateToken(t *testing.T) {
	f := newShareFixture(t)
	f.shares.createErrs = []error{repository.ErrTokenExists, repository.ErrTokenExists}

	c, rec := doJSON(http.MethodPost, "/api/shares",
		map[string]interface{}{"documentIds": []uint64{10}, "password": "hunter2"}, 1, nil, nil)

	require.NoError(t, f.h.CreateDocumentShare(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 3, f.shares.creates)
}

// ----- document share redemption -----

func seedShare(f *shareFixture, token string, activatedAgo time.Duration, activated bool) *model.Share {
	s := &model.Share{ID: 1, UserID: 1}
	s.Token = token
	s.QRExpiresAt = f.clock.now.Add(model.QRWindow)
	s.DownloadExpiresAt = f.clock.now.Add(model.DownloadWindow)
	if activated {
		at := f.clock.now.Add(-activatedAgo)
		s.QRActivatedAt = &at
	}
	f.shares.shares[token] = s
	f.shares.docs[1] = []model.Document{
		{ID: 10, UserID: 1, Filename: "KTP_Budi_Santoso", StoragePath: "1/ktp.pdf", MimeType: "application/pdf", FileType: "KTP"},
		{ID: 11, UserID: 1, Filename: "KK_Budi_Santoso", StoragePath: "1/kk.pdf", MimeType: "application/pdf", FileType: "KK"},
	}
	return s
}

func TestGetShareUnknownToken(t *testing.T) {
	f := newShareFixture(t)
	c, rec := doJSON(http.MethodGet, "/api/shares/nope", nil, 0, []string{"token"}, []string{"nope"})

	require.NoError(t, f.h.GetShare(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetShareActivatable(t *testing.T) {
	f := newShareFixture(t)
	seedShare(f, "tok", 0, false)

	c, rec := doJSON(http.MethodGet, "/api/shares/tok", nil, 0, []string{"token"}, []string{"tok"})
	require.NoError(t, f.h.GetShare(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["activated"])
	files := body["files"].([]interface{})
	require.Len(t, files, 2)
	first := files[0].(map[string]interface{})
	assert.Contains(t, first["downloadUrl"], "/api/files/")
	assert.Equal(t, "KTP", first["type"])
	// The signed URL must die with the share's own download window.
	assert.Equal(t, model.DownloadWindow, f.signer.lastTTL)
}

func TestGetShareActivatedMidWindow(t *testing.T) {
	f := newShareFixture(t)
	seedShare(f, "tok", 0, true)
	f.clock.now = f.clock.now.Add(3 * 24 * time.Hour)

	c, rec := doJSON(http.MethodGet, "/api/shares/tok", nil, 0, []string{"token"}, []string{"tok"})
	require.NoError(t, f.h.GetShare(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["activated"])
	assert.Len(t, body["files"].([]interface{}), 2)
	// Remaining life, not a fresh 7 days.
	assert.Equal(t, model.DownloadWindow-3*24*time.Hour, f.signer.lastTTL)
}

func TestGetShareQRExpired(t *testing.T) {
	f := newShareFixture(t)
	seedShare(f, "tok", 0, false)
	f.clock.now = f.clock.now.Add(model.QRWindow + time.Second)

	c, rec := doJSON(http.MethodGet, "/api/shares/tok", nil, 0, []string{"token"}, []string{"tok"})
	require.NoError(t, f.h.GetShare(c))
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, "QR code expired", decodeBody(t, rec)["error"])
}

func TestGetShareDownloadExpired(t *testing.T) {
	f := newShareFixture(t)
	seedShare(f, "tok", 0, true)
	f.clock.now = f.clock.now.Add(model.DownloadWindow + time.Second)

	c, rec := doJSON(http.MethodGet, "/api/shares/tok", nil, 0, []string{"token"}, []string{"tok"})
	require.NoError(t, f.h.GetShare(c))
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, "download period expired", decodeBody(t, rec)["error"])
}

func TestGetShareSkipsUnsignableDocuments(t *testing.T) {
	f := newShareFixture(t)
	seedShare(f, "tok", 0, false)
	f.signer.failPaths["1/ktp.pdf"] = true

	c, rec := doJSON(http.MethodGet, "/api/shares/tok", nil, 0, []string{"token"}, []string{"tok"})
	require.NoError(t, f.h.GetShare(c))
	require.Equal(t, http.StatusOK, rec.Code)

	files := decodeBody(t, rec)["files"].([]interface{})
	require.Len(t, files, 1)
	assert.Equal(t, "KK_Budi_Santoso", files[0].(map[string]interface{})["filename"])
}

func TestGetShareAllDocumentsInaccessible(t *testing.T) {
	f := newShareFixture(t)
	seedShare(f, "tok", 0, false)
	f.signer.failPaths["1/ktp.pdf"] = true
	f.signer.failPaths["1/kk.pdf"] = true

	c, rec := doJSON(http.MethodGet, "/api/shares/tok", nil, 0, []string{"token"}, []string{"tok"})
	require.NoError(t, f.h.GetShare(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ----- activation -----

func TestActivateShare(t *testing.T) {
	f := newShareFixture(t)
	seedShare(f, "tok", 0, false)

	c, rec := doJSON(http.MethodPost, "/api/shares/tok/activate", nil, 0, []string{"token"}, []string{"tok"})
	require.NoError(t, f.h.ActivateShare(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "QR activated.", decodeBody(t, rec)["message"])

	stored := f.shares.shares["tok"]
	require.NotNil(t, stored.QRActivatedAt)
	assert.Equal(t, f.clock.now, *stored.QRActivatedAt)
}

func TestActivateShareIdempotent(t *testing.T) {
	f := newShareFixture(t)
	seedShare(f, "tok", 0, false)

	c, _ := doJSON(http.MethodPost, "/api/shares/tok/activate", nil, 0, []string{"token"}, []string{"tok"})
	require.NoError(t, f.h.ActivateShare(c))
	first := *f.shares.shares["tok"].QRActivatedAt

	c2, rec2 := doJSON(http.MethodPost, "/api/shares/tok/activate", nil, 0, []string{"token"}, []string{"tok"})
	require.NoError(t, f.h.ActivateShare(c2))
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, "QR already activated.", decodeBody(t, rec2)["message"])
	// The original activation timestamp is untouched.
	assert.Equal(t, first, *f.shares.shares["tok"].QRActivatedAt)
}

func TestActivateShareRaceLoser(t *testing.T) {
	f := newShareFixture(t)
	seedShare(f, "tok", 0, false)

	// The conditional update reports zero rows: another scan stamped the
	// row between our read and our write. The loser must see success, not
	// an error.
	f.shares.loseActivation = true

	c, rec := doJSON(http.MethodPost, "/api/shares/tok/activate", nil, 0, []string{"token"}, []string{"tok"})
	require.NoError(t, f.h.ActivateShare(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "QR already activated.", decodeBody(t, rec)["message"])
}

func TestActivateShareExpired(t *testing.T) {
	f := newShareFixture(t)
	seedShare(f, "tok", 0, false)
	f.clock.now = f.clock.now.Add(model.QRWindow + time.Minute)

	c, rec := doJSON(http.MethodPost, "/api/shares/tok/activate", nil, 0, []string{"token"}, []string{"tok"})
	require.NoError(t, f.h.ActivateShare(c))
	assert.Equal(t, http.StatusGone, rec.Code)
	// The token stays unactivated; expiry is terminal.
	assert.Nil(t, f.shares.shares["tok"].QRActivatedAt)
}

// ----- request shares -----

func TestCreateRequestShare(t *testing.T) {
	f := newShareFixture(t)
	rtID := uint64(3)
	f.reqs.requests[7] = model.Request{
		ID: 7, UserID: 1, TujuanSurat: "domisili", NomorSurat: "SURAT-20250301-abc123",
		RequestType: model.RequestTypeRT, Status: model.ReqApproved, RTID: &rtID,
	}

	c, rec := doJSON(http.MethodPost, "/api/shares/request",
		map[string]interface{}{"requestId": 7, "password": "hunter2"}, 1, nil, nil)
	require.NoError(t, f.h.CreateRequestShare(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	token := decodeBody(t, rec)["token"].(string)
	stored := f.rShares.shares[token]
	require.NotNil(t, stored)
	assert.Equal(t, uint64(7), stored.RequestID)
}

func TestCreateRequestShareRequiresApproval(t *testing.T) {
	f := newShareFixture(t)
	f.reqs.requests[7] = model.Request{ID: 7, UserID: 1, Status: model.ReqPending}

	c, rec := doJSON(http.MethodPost, "/api/shares/request",
		map[string]interface{}{"requestId": 7, "password": "hunter2"}, 1, nil, nil)
	require.NoError(t, f.h.CreateRequestShare(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.rShares.shares)
}

func TestCreateRequestShareNotOwner(t *testing.T) {
	f := newShareFixture(t)
	f.reqs.requests[7] = model.Request{ID: 7, UserID: 42, Status: model.ReqApproved}

	c, rec := doJSON(http.MethodPost, "/api/shares/request",
		map[string]interface{}{"requestId": 7, "password": "hunter2"}, 1, nil, nil)
	require.NoError(t, f.h.CreateRequestShare(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, f.rShares.shares)
}

func TestRequestShareRedeemAndActivate(t *testing.T) {
	f := newShareFixture(t)
	f.reqs.requests[7] = model.Request{
		ID: 7, UserID: 1, TujuanSurat: "domisili", NomorSurat: "SURAT-20250301-abc123",
		RequestType: model.RequestTypeRT, Status: model.ReqApproved,
	}
	s := &model.RequestShare{ID: 1, UserID: 1, RequestID: 7}
	s.Token = "rtok"
	s.QRExpiresAt = f.clock.now.Add(model.QRWindow)
	s.DownloadExpiresAt = f.clock.now.Add(model.DownloadWindow)
	f.rShares.shares["rtok"] = s

	c, rec := doJSON(http.MethodGet, "/api/shares/request/rtok", nil, 0, []string{"token"}, []string{"rtok"})
	require.NoError(t, f.h.GetRequestShare(c))
	require.Equal(t, http.StatusOK, rec.Code)
	reqBody := decodeBody(t, rec)["request"].(map[string]interface{})
	assert.Equal(t, "SURAT-20250301-abc123", reqBody["nomorSurat"])

	c2, rec2 := doJSON(http.MethodPost, "/api/shares/request/rtok/activate", nil, 0, []string{"token"}, []string{"rtok"})
	require.NoError(t, f.h.ActivateRequestShare(c2))
	require.Equal(t, http.StatusOK, rec2.Code)
	require.NotNil(t, f.rShares.shares["rtok"].QRActivatedAt)

	// Redeeming after activation still works inside the download window.
	f.clock.now = f.clock.now.Add(24 * time.Hour)
	c3, rec3 := doJSON(http.MethodGet, "/api/shares/request/rtok", nil, 0, []string{"token"}, []string{"rtok"})
	require.NoError(t, f.h.GetRequestShare(c3))
	assert.Equal(t, http.StatusOK, rec3.Code)
}
