package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Role names recognized by the authorization layer. A user with no user_roles
// row is a viewer; admin is the only role allowed to mutate fund data.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// User represents a human principal. There are no passwords anywhere in the
// system: users sign in exclusively via one-time magic links, and accounts are
// provisioned just-in-time on first verified login.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID          string     `bun:"id,pk,type:uuid"`
	Email       string     `bun:"email,notnull,unique"`
	Name        string     `bun:"name"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	LastLoginAt *time.Time `bun:"last_login_at"`
	DisabledAt  *time.Time `bun:"disabled_at"`
}

// IsDisabled reports whether the account has been disabled.
func (u *User) IsDisabled() bool {
	return u != nil && u.DisabledAt != nil
}

// UserRole maps a user to exactly one role. At most one row per user; absence
// of a row means the user is a viewer.
type UserRole struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`

	ID         string    `bun:"id,pk,type:uuid"`
	UserID     string    `bun:"user_id,notnull,unique,type:uuid"` // FK to users(id)
	Role       string    `bun:"role,notnull"`                     // "admin" or "viewer"
	AssignedAt time.Time `bun:"assigned_at,notnull,default:current_timestamp"`
	AssignedBy string    `bun:"assigned_by"` // email or "cli"
}

// Session tracks an authenticated browser session. The bearer token itself is
// never stored, only its SHA256 hash.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:sess"`

	ID         string     `bun:"id,pk,type:uuid"`
	UserID     string     `bun:"user_id,notnull,type:uuid"` // FK to users(id)
	TokenHash  string     `bun:"token_hash,notnull,unique"`
	ExpiresAt  time.Time  `bun:"expires_at,notnull"`
	CreatedAt  time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	LastUsedAt *time.Time `bun:"last_used_at"`
	UserAgent  *string    `bun:"user_agent"`
	IPAddress  *string    `bun:"ip_address"`
	RevokedAt  *time.Time `bun:"revoked_at"`
}

// IsRevoked reports whether the session has been revoked.
func (s *Session) IsRevoked() bool {
	return s != nil && s.RevokedAt != nil
}

// LoginToken is a single-use magic-link record. The signed link token carries
// this row's ID as its jti claim; consumption is a conditional update on
// consumed_at so a replayed link always fails.
type LoginToken struct {
	bun.BaseModel `bun:"table:login_tokens,alias:lt"`

	ID         string     `bun:"id,pk,type:uuid"`
	Email      string     `bun:"email,notnull"`
	RedirectTo string     `bun:"redirect_to"`
	ExpiresAt  time.Time  `bun:"expires_at,notnull"`
	ConsumedAt *time.Time `bun:"consumed_at"`
	CreatedAt  time.Time  `bun:"created_at,notnull,default:current_timestamp"`
}
