package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/arsipwarga/arsipwarga/internal/model"
)

// LocationRepo reads the rt and kelurahan reference tables. Rows are
// seeded out of band; the API only lists them and checks existence.
type LocationRepo struct{ DB *sql.DB }

func NewLocationRepo(db *sql.DB) *LocationRepo { return &LocationRepo{DB: db} }

// ListRT returns all RT rows ordered by name.
func (r *LocationRepo) ListRT(ctx context.Context) ([]model.RT, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, name, created_at FROM rt ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RT
	for rows.Next() {
		var rt model.RT
		if err := rows.Scan(&rt.ID, &rt.Name, &rt.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// ListKelurahan returns all Kelurahan rows ordered by name.
func (r *LocationRepo) ListKelurahan(ctx context.Context) ([]model.Kelurahan, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, name, created_at FROM kelurahan ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Kelurahan
	for rows.Next() {
		var k model.Kelurahan
		if err := rows.Scan(&k.ID, &k.Name, &k.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// RTExists reports whether the RT id is valid.
func (r *LocationRepo) RTExists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM rt WHERE id=? LIMIT 1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// KelurahanExists reports whether the Kelurahan id is valid.
func (r *LocationRepo) KelurahanExists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM kelurahan WHERE id=? LIMIT 1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
