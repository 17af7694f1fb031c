package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/arsipwarga/arsipwarga/internal/model"
)

// RequestShareRepo provides access to the 'request_shares' table. Same
// shape as ShareRepo but each share references exactly one approved
// request instead of a document set.
type RequestShareRepo struct{ DB *sql.DB }

func NewRequestShareRepo(db *sql.DB) *RequestShareRepo { return &RequestShareRepo{DB: db} }

const requestShareColumns = "id, user_id, request_id, token, qr_expires_at, qr_activated_at, download_expires_at, created_at"

// Create inserts the request share row. A duplicate token maps to
// ErrTokenExists for the caller's re-mint loop.
func (r *RequestShareRepo) Create(ctx context.Context, s *model.RequestShare) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO request_shares (user_id, request_id, token, qr_expires_at, download_expires_at)
		 VALUES (?,?,?,?,?)`,
		s.UserID, s.RequestID, s.Token, s.QRExpiresAt.UTC(), s.DownloadExpiresAt.UTC())
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrTokenExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByToken fetches a request share by its token.
func (r *RequestShareRepo) GetByToken(ctx context.Context, token string) (model.RequestShare, error) {
	var s model.RequestShare
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+requestShareColumns+" FROM request_shares WHERE token=? LIMIT 1", token).
		Scan(&s.ID, &s.UserID, &s.RequestID, &s.Token, &s.QRExpiresAt, &s.QRActivatedAt, &s.DownloadExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	return s, err
}

// Activate stamps qr_activated_at if still null; see ShareRepo.Activate.
func (r *RequestShareRepo) Activate(ctx context.Context, token string, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE request_shares SET qr_activated_at=? WHERE token=? AND qr_activated_at IS NULL",
		at.UTC(), token)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
