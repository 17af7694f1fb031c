package model

import "time"

// Role names as stored in the users.role column. A user carries exactly
// one role; rt_admin and kelurahan_admin additionally carry the id of the
// jurisdiction they administer. Roles are immutable after registration.
const (
	RoleUser           = "user"
	RoleAdmin          = "admin"
	RoleRTAdmin        = "rt_admin"
	RoleKelurahanAdmin = "kelurahan_admin"
)

// User represents an application user record as stored in the `users`
// table. Each field corresponds to a column in the database. The json tags
// are omitted here because these structs are primarily used internally by
// the repository layer; handlers define separate response types with
// appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  FullName     – display name used when labelling uploaded documents.
//  Phone        – unique phone number, the login identifier.
//  PasswordHash – bcrypt hashed password.
//  Role         – one of the Role* constants above.
//  RTID         – jurisdiction for rt_admin users (nullable).
//  KelurahanID  – jurisdiction for kelurahan_admin users (nullable).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64     // users.id
	FullName     string     // users.full_name
	Phone        string     // users.phone
	PasswordHash string     // users.password_hash
	Role         string     // users.role
	RTID         *uint64    // users.rt_id (nullable)
	KelurahanID  *uint64    // users.kelurahan_id (nullable)
	CreatedAt    time.Time  // users.created_at
	UpdatedAt    time.Time  // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. Each refresh
// token belongs to a user and contains metadata for expiry and revocation.
// The plain token is not stored; only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
