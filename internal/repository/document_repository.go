package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/arsipwarga/arsipwarga/internal/model"
)

// DocumentRepo provides access to the 'documents' table. Status
// transitions are single-row conditional updates so that two admins racing
// to resolve the same document cannot both win.
type DocumentRepo struct{ DB *sql.DB }

func NewDocumentRepo(db *sql.DB) *DocumentRepo { return &DocumentRepo{DB: db} }

const documentColumns = "id, user_id, filename, storage_path, mime_type, file_type, verification_status, created_at, updated_at"

func scanDocument(row *sql.Row) (model.Document, error) {
	var d model.Document
	err := row.Scan(&d.ID, &d.UserID, &d.Filename, &d.StoragePath, &d.MimeType,
		&d.FileType, &d.VerificationStatus, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrNotFound
	}
	return d, err
}

func collectDocuments(rows *sql.Rows) ([]model.Document, error) {
	defer rows.Close()
	var docs []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.UserID, &d.Filename, &d.StoragePath, &d.MimeType,
			&d.FileType, &d.VerificationStatus, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Create inserts a document row in pending state and returns its ID. The
// unique (user_id, file_type) key rejects a second upload of the same
// category.
func (r *DocumentRepo) Create(ctx context.Context, d model.Document) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO documents (user_id, filename, storage_path, mime_type, file_type, verification_status)
		 VALUES (?,?,?,?,?,'pending')`,
		d.UserID, d.Filename, d.StoragePath, d.MimeType, d.FileType)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrDuplicateType
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetOwned fetches a document only when it belongs to the given user.
// Absent and not-owned are indistinguishable to the caller.
func (r *DocumentRepo) GetOwned(ctx context.Context, id, userID uint64) (model.Document, error) {
	return scanDocument(r.DB.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id=? AND user_id=? LIMIT 1", id, userID))
}

// GetByID fetches a document regardless of owner. Admin workflows and
// event enrichment use it; user-facing paths go through GetOwned.
func (r *DocumentRepo) GetByID(ctx context.Context, id uint64) (model.Document, error) {
	return scanDocument(r.DB.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id=? LIMIT 1", id))
}

// ListByUser returns the user's documents, newest first, optionally
// filtered by verification status.
func (r *DocumentRepo) ListByUser(ctx context.Context, userID uint64, status string) ([]model.Document, error) {
	q := "SELECT " + documentColumns + " FROM documents WHERE user_id=?"
	args := []interface{}{userID}
	if status != "" {
		q += " AND verification_status=?"
		args = append(args, status)
	}
	q += " ORDER BY created_at DESC"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectDocuments(rows)
}

// ListPending returns all documents awaiting verification, newest first.
func (r *DocumentRepo) ListPending(ctx context.Context) ([]model.Document, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE verification_status='pending' ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	return collectDocuments(rows)
}

// CountOwned returns how many of the given ids belong to userID. Share
// creation compares this against len(ids): partial ownership is not
// partially honored.
func (r *DocumentRepo) CountOwned(ctx context.Context, userID uint64, ids []uint64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := "SELECT COUNT(*) FROM documents WHERE user_id=? AND id IN (?" + strings.Repeat(",?", len(ids)-1) + ")"
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}
	var n int
	err := r.DB.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}

// Replace swaps the stored object for a re-uploaded one and resets the
// verification status to pending. Scoped to the owner.
func (r *DocumentRepo) Replace(ctx context.Context, id, userID uint64, storagePath, mimeType, fileType string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE documents SET storage_path=?, mime_type=?, file_type=?, verification_status='pending', updated_at=UTC_TIMESTAMP()
		 WHERE id=? AND user_id=?`,
		storagePath, mimeType, fileType, id, userID)
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

// Delete removes the row, scoped to the owner. Object removal is the
// caller's responsibility.
func (r *DocumentRepo) Delete(ctx context.Context, id, userID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM documents WHERE id=? AND user_id=?", id, userID)
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

// SetVerification moves a pending document to verified or rejected. The
// pending predicate rides in the UPDATE itself, so exactly one of two
// racing admins observes a transition; the other gets false. The caller
// cannot tell a missing document from an already-resolved one, which is
// the intended behavior.
func (r *DocumentRepo) SetVerification(ctx context.Context, id uint64, status string, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE documents SET verification_status=?, updated_at=?
		 WHERE id=? AND verification_status='pending'`,
		status, at.UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecentActivity returns up to limit recently resolved documents, newest
// resolution first, for the admin activity feed.
func (r *DocumentRepo) RecentActivity(ctx context.Context, limit int) ([]model.Document, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+documentColumns+` FROM documents
		 WHERE verification_status IN ('verified','rejected')
		 ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return collectDocuments(rows)
}
