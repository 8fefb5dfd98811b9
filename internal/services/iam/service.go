package iam

import (
	"context"
	"time"

	"github.com/hulugan-ph/hulugan/internal/db/models"
)

// Authorizer is the read-only authorization surface consumed by domain
// services.
type Authorizer interface {
	// Authorize checks if the principal's role permits the action on the
	// object. Read-only Casbin query, never mutates policy state.
	Authorize(ctx context.Context, principal *Principal, obj, act string) (bool, error)
}

// Service provides all identity and access management operations.
//
// This service centralizes:
//   - Authentication (request path - performance critical)
//   - Authorization (request path - read-only Casbin)
//   - Magic-link login (issue/redeem)
//   - Session management (login/logout)
//   - Role assignment (admin operations)
type Service interface {
	// AuthenticateRequest tries all registered authenticators in order.
	//
	// Returns:
	//   - (principal, nil): Authentication successful
	//   - (nil, nil): No valid credentials found (unauthenticated request)
	//   - (nil, error): Authentication failed (invalid credentials)
	AuthenticateRequest(ctx context.Context, req AuthRequest) (*Principal, error)

	// ResolveRole computes the effective role for a user.
	//
	// Looks up user_roles fresh on every call; a user with no mapping is a
	// viewer. Only a repository failure is an error.
	ResolveRole(ctx context.Context, userID string) (string, error)

	// Authorize checks if the principal's role permits the action on the
	// object. Read-only Casbin query, never mutates policy state.
	Authorize(ctx context.Context, principal *Principal, obj, act string) (bool, error)

	// IssueLoginToken records a pending magic-link login for the email and
	// returns the signed link token. The user row is NOT created here;
	// provisioning happens just-in-time on redemption.
	IssueLoginToken(ctx context.Context, email, redirectTo string) (string, error)

	// RedeemLoginToken verifies a signed link token, consumes the backing
	// single-use record, provisions the user on first login, and opens a
	// session. Returns the session, the unhashed bearer token to set as a
	// cookie, and the redirect target recorded at issue time.
	RedeemLoginToken(ctx context.Context, tokenString string, meta SessionMetadata) (*models.Session, string, string, error)

	// RevokeSession invalidates a session by ID (logout).
	RevokeSession(ctx context.Context, sessionID string) error

	// GetUserByID retrieves a user by internal ID.
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// GetOrCreateUser returns the user for an email, provisioning a record
	// when none exists. Used by the CLI and by magic-link redemption.
	GetOrCreateUser(ctx context.Context, email, name string) (*models.User, error)

	// AssignRole gives a user a role, replacing any existing assignment.
	AssignRole(ctx context.Context, userID, role, assignedBy string) error

	// RemoveRole deletes the user's role assignment, demoting them to viewer.
	RemoveRole(ctx context.Context, userID string) error

	// CleanupExpired removes expired sessions and login tokens. Returns the
	// number of rows deleted from each table. Called by the background
	// janitor.
	CleanupExpired(ctx context.Context) (sessions, tokens int64, err error)
}

// SessionMetadata captures request attributes recorded on session creation.
type SessionMetadata struct {
	UserAgent string
	IPAddress string
	TTL       time.Duration
}
