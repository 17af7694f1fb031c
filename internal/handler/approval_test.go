package handler

import (
	"context"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arsipwarga/arsipwarga/internal/model"
	"github.com/arsipwarga/arsipwarga/internal/repository"
)

type fakeApprover struct {
	requests map[uint64]*model.Request
}

func (f *fakeApprover) GetForRT(_ context.Context, id, rtID uint64) (model.Request, error) {
	q, ok := f.requests[id]
	if !ok || q.RTID == nil || *q.RTID != rtID {
		return model.Request{}, repository.ErrNotFound
	}
	return *q, nil
}

func (f *fakeApprover) GetForKelurahan(_ context.Context, id, kelID uint64) (model.Request, error) {
	q, ok := f.requests[id]
	if !ok || q.KelurahanID == nil || *q.KelurahanID != kelID {
		return model.Request{}, repository.ErrNotFound
	}
	return *q, nil
}

func (f *fakeApprover) ResolveForRT(_ context.Context, id, rtID uint64, status string) (bool, error) {
	q, ok := f.requests[id]
	if !ok || q.RTID == nil || *q.RTID != rtID || q.Status != model.ReqPending {
		return false, nil
	}
	q.Status = status
	return true, nil
}

func (f *fakeApprover) ResolveForKelurahan(_ context.Context, id, kelID uint64, status string) (bool, error) {
	q, ok := f.requests[id]
	if !ok || q.KelurahanID == nil || *q.KelurahanID != kelID || q.Status != model.ReqPending {
		return false, nil
	}
	q.Status = status
	return true, nil
}

func (f *fakeApprover) ListPendingForRT(_ context.Context, rtID uint64) ([]model.Request, error) {
	var out []model.Request
	for _, q := range f.requests {
		if q.Status == model.ReqPending && q.RTID != nil && *q.RTID == rtID {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeApprover) ListPendingForKelurahan(_ context.Context, kelID uint64) ([]model.Request, error) {
	var out []model.Request
	for _, q := range f.requests {
		if q.Status == model.ReqPending && q.KelurahanID != nil && *q.KelurahanID == kelID {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeApprover) RecentActivityForRT(_ context.Context, rtID uint64, limit int) ([]model.Request, error) {
	var out []model.Request
	for _, q := range f.requests {
		if q.Status != model.ReqPending && q.RTID != nil && *q.RTID == rtID {
			out = append(out, *q)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeApprover) RecentActivityForKelurahan(_ context.Context, kelID uint64, limit int) ([]model.Request, error) {
	var out []model.Request
	for _, q := range f.requests {
		if q.Status != model.ReqPending && q.KelurahanID != nil && *q.KelurahanID == kelID {
			out = append(out, *q)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func u64(v uint64) *uint64 { return &v }

func newApprovalFixture() (*ApprovalHandler, *fakeApprover) {
	reqs := &fakeApprover{requests: map[uint64]*model.Request{
		// Pending request in RT 3.
		1: {ID: 1, UserID: 1, TujuanSurat: "domisili", NomorSurat: "SURAT-20250301-aaaaaa",
			RequestType: model.RequestTypeRT, Status: model.ReqPending, RTID: u64(3)},
		// Pending request in RT 4 — outside admin 7's jurisdiction.
		2: {ID: 2, UserID: 2, TujuanSurat: "usaha", NomorSurat: "SURAT-20250301-bbbbbb",
			RequestType: model.RequestTypeRT, Status: model.ReqPending, RTID: u64(4)},
		// Already approved request in RT 3.
		3: {ID: 3, UserID: 1, TujuanSurat: "nikah", NomorSurat: "SURAT-20250301-cccccc",
			RequestType: model.RequestTypeRT, Status: model.ReqApproved, RTID: u64(3)},
		// Pending Kelurahan request.
		4: {ID: 4, UserID: 1, TujuanSurat: "pindah", NomorSurat: "SURAT-20250301-dddddd",
			RequestType: model.RequestTypeKelurahan, Status: model.ReqPending, KelurahanID: u64(9)},
	}}
	users := &fakeUsers{users: map[uint64]model.User{
		7: {ID: 7, FullName: "Pak RT", Role: model.RoleRTAdmin, RTID: u64(3)},
		8: {ID: 8, FullName: "Bu Lurah", Role: model.RoleKelurahanAdmin, KelurahanID: u64(9)},
		1: {ID: 1, FullName: "Budi Santoso", Role: model.RoleUser},
	}}
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewApprovalHandler(reqs, users, clock), reqs
}

func TestApproveRTRequest(t *testing.T) {
	h, reqs := newApprovalFixture()

	c, rec := doJSON(http.MethodPut, "/api/rt-admin/requests/approve/1", nil, 7, []string{"id"}, []string{"1"})
	require.NoError(t, h.ApproveRT(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.ReqApproved, reqs.requests[1].Status)
}

func TestRejectRTRequest(t *testing.T) {
	h, reqs := newApprovalFixture()

	c, rec := doJSON(http.MethodPut, "/api/rt-admin/requests/reject/1", nil, 7, []string{"id"}, []string{"1"})
	require.NoError(t, h.RejectRT(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.ReqRejected, reqs.requests[1].Status)
}

func TestApproveRTRequestOutsideJurisdiction(t *testing.T) {
	h, reqs := newApprovalFixture()

	// Request 2 targets RT 4; admin 7 governs RT 3. Outside jurisdiction is
	// indistinguishable from absent.
	c, rec := doJSON(http.MethodPut, "/api/rt-admin/requests/approve/2", nil, 7, []string{"id"}, []string{"2"})
	require.NoError(t, h.ApproveRT(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, model.ReqPending, reqs.requests[2].Status)
}

func TestApproveRTRequestAlreadyProcessed(t *testing.T) {
	h, reqs := newApprovalFixture()

	c, rec := doJSON(http.MethodPut, "/api/rt-admin/requests/reject/3", nil, 7, []string{"id"}, []string{"3"})
	require.NoError(t, h.RejectRT(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	// Terminal status is sticky: the rejected resolution must not overwrite
	// the earlier approval.
	assert.Equal(t, model.ReqApproved, reqs.requests[3].Status)
}

func TestApproveRTRequestWrongRole(t *testing.T) {
	h, reqs := newApprovalFixture()

	c, rec := doJSON(http.MethodPut, "/api/rt-admin/requests/approve/1", nil, 1, []string{"id"}, []string{"1"})
	require.NoError(t, h.ApproveRT(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, model.ReqPending, reqs.requests[1].Status)
}

func TestApproveKelurahanRequest(t *testing.T) {
	h, reqs := newApprovalFixture()

	c, rec := doJSON(http.MethodPut, "/api/kelurahan-admin/requests/approve/4", nil, 8, []string{"id"}, []string{"4"})
	require.NoError(t, h.ApproveKelurahan(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.ReqApproved, reqs.requests[4].Status)
}

func TestKelurahanAdminCannotTouchRTRequest(t *testing.T) {
	h, reqs := newApprovalFixture()

	c, rec := doJSON(http.MethodPut, "/api/kelurahan-admin/requests/approve/1", nil, 8, []string{"id"}, []string{"1"})
	require.NoError(t, h.ApproveKelurahan(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, model.ReqPending, reqs.requests[1].Status)
}

func TestListRTPending(t *testing.T) {
	h, _ := newApprovalFixture()

	c, rec := doJSON(http.MethodGet, "/api/rt-admin/requests", nil, 7, nil, nil)
	require.NoError(t, h.ListRTPending(c))
	require.Equal(t, http.StatusOK, rec.Code)

	list := decodeBody(t, rec)["requests"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, float64(1), list[0].(map[string]interface{})["id"])
}

func TestRTActivity(t *testing.T) {
	h, _ := newApprovalFixture()

	c, rec := doJSON(http.MethodGet, "/api/rt-admin/activity", nil, 7, nil, nil)
	require.NoError(t, h.RTActivity(c))
	require.Equal(t, http.StatusOK, rec.Code)

	list := decodeBody(t, rec)["activity"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, float64(3), list[0].(map[string]interface{})["id"])
}
