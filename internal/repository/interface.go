// Package repository contains the persistence boundary for hulugan data.
// Authorization for mutations is enforced one layer above, in the fund
// service, so that no write can reach these repositories without a role
// check regardless of which handler or CLI command initiated it.
package repository

import (
	"context"
	"errors"

	"github.com/hulugan-ph/hulugan/internal/db/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrTokenConsumed is returned when a login token has already been used.
var ErrTokenConsumed = errors.New("login token already consumed")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// GroupRepository exposes persistence operations for hulugan groups.
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error

	GetByID(ctx context.Context, id string) (*models.Group, error)

	// List returns the entire collection ordered by updated_at descending,
	// the display order of the viewer. No pagination: the collection is
	// expected to stay small (see DESIGN.md on the full-reload trade-off).
	List(ctx context.Context) ([]models.Group, error)

	// SetPaidWeeks conditionally updates paid_weeks on the row matching id
	// and stamps a fresh updated_at. Returns ErrNotFound when no row matched.
	SetPaidWeeks(ctx context.Context, id string, paidWeeks int) error
}

// UserRepository exposes persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	TouchLastLogin(ctx context.Context, id string) error
}

// UserRoleRepository exposes the user → role mapping.
type UserRoleRepository interface {
	// GetRoleForUser returns the role assigned to the user.
	// Returns ErrNotFound when no mapping exists; callers default to viewer.
	GetRoleForUser(ctx context.Context, userID string) (*models.UserRole, error)

	// Assign creates or replaces the user's single role mapping.
	Assign(ctx context.Context, userRole *models.UserRole) error

	Remove(ctx context.Context, userID string) error
}

// SessionRepository exposes persistence operations for sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	UpdateLastUsed(ctx context.Context, id string) error
	Revoke(ctx context.Context, id string) error
	RevokeByUserID(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// LoginTokenRepository exposes persistence operations for one-time magic-link tokens.
type LoginTokenRepository interface {
	Create(ctx context.Context, token *models.LoginToken) error
	GetByID(ctx context.Context, id string) (*models.LoginToken, error)

	// Consume marks the token used and returns the consumed record. The
	// update is conditional on consumed_at IS NULL; a second consumption
	// returns ErrTokenConsumed.
	Consume(ctx context.Context, id string) (*models.LoginToken, error)

	DeleteExpired(ctx context.Context) (int64, error)
}
