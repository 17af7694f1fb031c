package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/arsipwarga/arsipwarga/internal/model"
)

// RequestRepo provides access to the 'requests' table. Resolution is a
// conditional update with both the jurisdiction and the pending predicate
// in the WHERE clause: jurisdiction scoping is not advisory, it is part of
// the row match.
type RequestRepo struct{ DB *sql.DB }

func NewRequestRepo(db *sql.DB) *RequestRepo { return &RequestRepo{DB: db} }

const requestColumns = "id, user_id, tujuan_surat, nomor_surat, request_type, status, rt_id, kelurahan_id, created_at, updated_at"

func scanRequest(row *sql.Row) (model.Request, error) {
	var q model.Request
	err := row.Scan(&q.ID, &q.UserID, &q.TujuanSurat, &q.NomorSurat, &q.RequestType,
		&q.Status, &q.RTID, &q.KelurahanID, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return q, ErrNotFound
	}
	return q, err
}

func collectRequests(rows *sql.Rows) ([]model.Request, error) {
	defer rows.Close()
	var out []model.Request
	for rows.Next() {
		var q model.Request
		if err := rows.Scan(&q.ID, &q.UserID, &q.TujuanSurat, &q.NomorSurat, &q.RequestType,
			&q.Status, &q.RTID, &q.KelurahanID, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Create inserts a pending request and returns its ID.
func (r *RequestRepo) Create(ctx context.Context, q model.Request) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO requests (user_id, tujuan_surat, nomor_surat, request_type, status, rt_id, kelurahan_id)
		 VALUES (?,?,?,?,'pending',?,?)`,
		q.UserID, q.TujuanSurat, q.NomorSurat, q.RequestType, q.RTID, q.KelurahanID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a request by id.
func (r *RequestRepo) GetByID(ctx context.Context, id uint64) (model.Request, error) {
	return scanRequest(r.DB.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM requests WHERE id=? LIMIT 1", id))
}

// ListByUser returns the user's requests, optionally filtered by status.
func (r *RequestRepo) ListByUser(ctx context.Context, userID uint64, status string) ([]model.Request, error) {
	q := "SELECT " + requestColumns + " FROM requests WHERE user_id=?"
	args := []interface{}{userID}
	if status != "" {
		q += " AND status=?"
		args = append(args, status)
	}
	q += " ORDER BY created_at DESC"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

// Delete removes a request, scoped to the owner.
func (r *RequestRepo) Delete(ctx context.Context, id, userID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM requests WHERE id=? AND user_id=?", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetForRT fetches a request only when it targets the given RT. Used by
// the approval workflow to distinguish "not yours / absent" from
// "already processed".
func (r *RequestRepo) GetForRT(ctx context.Context, id, rtID uint64) (model.Request, error) {
	return scanRequest(r.DB.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM requests WHERE id=? AND rt_id=? LIMIT 1", id, rtID))
}

// GetForKelurahan is GetForRT for the Kelurahan tier.
func (r *RequestRepo) GetForKelurahan(ctx context.Context, id, kelurahanID uint64) (model.Request, error) {
	return scanRequest(r.DB.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM requests WHERE id=? AND kelurahan_id=? LIMIT 1", id, kelurahanID))
}

// ResolveForRT moves a pending RT request to approved or rejected. Returns
// false without error when the row was not pending anymore (or vanished);
// terminal statuses are never overwritten.
func (r *RequestRepo) ResolveForRT(ctx context.Context, id, rtID uint64, status string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE requests SET status=?, updated_at=UTC_TIMESTAMP()
		 WHERE id=? AND rt_id=? AND status='pending'`,
		status, id, rtID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ResolveForKelurahan is ResolveForRT for the Kelurahan tier.
func (r *RequestRepo) ResolveForKelurahan(ctx context.Context, id, kelurahanID uint64, status string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE requests SET status=?, updated_at=UTC_TIMESTAMP()
		 WHERE id=? AND kelurahan_id=? AND status='pending'`,
		status, id, kelurahanID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListPendingForRT returns pending requests targeting the given RT.
func (r *RequestRepo) ListPendingForRT(ctx context.Context, rtID uint64) ([]model.Request, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+requestColumns+" FROM requests WHERE status='pending' AND rt_id=? ORDER BY created_at", rtID)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

// ListPendingForKelurahan returns pending requests targeting the given
// Kelurahan.
func (r *RequestRepo) ListPendingForKelurahan(ctx context.Context, kelurahanID uint64) ([]model.Request, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+requestColumns+" FROM requests WHERE status='pending' AND kelurahan_id=? ORDER BY created_at", kelurahanID)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

// RecentActivityForRT returns up to limit resolved requests for the RT
// activity feed, newest resolution first.
func (r *RequestRepo) RecentActivityForRT(ctx context.Context, rtID uint64, limit int) ([]model.Request, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+requestColumns+` FROM requests
		 WHERE rt_id=? AND status IN ('approved','rejected')
		 ORDER BY updated_at DESC LIMIT ?`, rtID, limit)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

// RecentActivityForKelurahan mirrors RecentActivityForRT.
func (r *RequestRepo) RecentActivityForKelurahan(ctx context.Context, kelurahanID uint64, limit int) ([]model.Request, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+requestColumns+` FROM requests
		 WHERE kelurahan_id=? AND status IN ('approved','rejected')
		 ORDER BY updated_at DESC LIMIT ?`, kelurahanID, limit)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}
