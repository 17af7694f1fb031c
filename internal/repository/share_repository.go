package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/arsipwarga/arsipwarga/internal/model"
)

// ShareRepo provides access to the 'shares' table and its share_docs join
// rows. Activation is a conditional single-row update; the store's
// row-level atomicity is the only synchronization between concurrent
// redemption attempts.
type ShareRepo struct{ DB *sql.DB }

func NewShareRepo(db *sql.DB) *ShareRepo { return &ShareRepo{DB: db} }

const shareColumns = "id, user_id, token, qr_expires_at, qr_activated_at, download_expires_at, created_at"

// Create inserts the share row plus one share_docs row per document inside
// a transaction, so a failed association insert never leaves a partial
// share behind. A duplicate token maps to ErrTokenExists for the caller's
// re-mint loop.
func (r *ShareRepo) Create(ctx context.Context, s *model.Share, documentIDs []uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO shares (user_id, token, qr_expires_at, download_expires_at)
		 VALUES (?,?,?,?)`,
		s.UserID, s.Token, s.QRExpiresAt.UTC(), s.DownloadExpiresAt.UTC())
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

	q := "INSERT INTO share_docs (share_id, document_id) VALUES "
	args := make([]interface{}, 0, len(documentIDs)*2)
	for i, docID := range documentIDs {
		if i > 0 {
			q += ","
		}
		q += "(?,?)"
		args = append(args, s.ID, docID)
	}
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByToken fetches a share by its token.
func (r *ShareRepo) GetByToken(ctx context.Context, token string) (model.Share, error) {
	var s model.Share
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+shareColumns+" FROM shares WHERE token=? LIMIT 1", token).
		Scan(&s.ID, &s.UserID, &s.Token, &s.QRExpiresAt, &s.QRActivatedAt, &s.DownloadExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	return s, err
}

// Activate stamps qr_activated_at if it is still null. Under a concurrent
// double-activation exactly one caller gets true; the loser gets false and
// treats the token as already activated, not as an error.
func (r *ShareRepo) Activate(ctx context.Context, token string, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE shares SET qr_activated_at=? WHERE token=? AND qr_activated_at IS NULL",
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

// DocumentsByShare resolves the documents associated with a share.
func (r *ShareRepo) DocumentsByShare(ctx context.Context, shareID uint64) ([]model.Document, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT d.id, d.user_id, d.filename, d.storage_path, d.mime_type, d.file_type, d.verification_status, d.created_at, d.updated_at
		 FROM documents d
		 JOIN share_docs sd ON sd.document_id = d.id
		 WHERE sd.share_id = ?`, shareID)
	if err != nil {
		return nil, err
	}
	return collectDocuments(rows)
}
