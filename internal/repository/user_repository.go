package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/arsipwarga/arsipwarga/internal/model"
	"github.com/arsipwarga/arsipwarga/internal/utils"
)

// UserRepo provides access to the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, full_name, phone, password_hash, role, rt_id, kelurahan_id, created_at, updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.FullName, &u.Phone, &u.PasswordHash, &u.Role,
		&u.RTID, &u.KelurahanID, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// Create inserts a user and returns its ID. The jurisdiction pointer that
// does not match the role must be nil; the handler validates this before
// calling.
func (r *UserRepo) Create(ctx context.Context, fullName, phone, password, role string, rtID, kelurahanID *uint64, cost int) (uint64, error) {
	phone = strings.TrimSpace(phone)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (full_name, phone, password_hash, role, rt_id, kelurahan_id) VALUES (?,?,?,?,?,?)",
		fullName, phone, hash, role, rtID, kelurahanID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrPhoneExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByPhone fetches a user by phone number.
func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (model.User, error) {
	phone = strings.TrimSpace(phone)
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE phone=? LIMIT 1", phone))
}

// GetByID fetches a user by id. Workflow handlers call this on every
// role-gated operation so the acting role and jurisdiction are always the
// stored ones, never a cached claim.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}
