package iam

import (
	"context"
	"fmt"
	"strings"

	"github.com/hulugan-ph/hulugan/internal/auth"
	"github.com/hulugan-ph/hulugan/internal/repository"
)

// SessionAuthenticator authenticates requests using the session bearer token,
// carried either as the session cookie or as an Authorization: Bearer header.
//
//  1. Extract the token from cookie or header
//  2. Return (nil, nil) if not present
//  3. Hash the token and look up the session
//  4. Validate: not revoked, not expired, user not disabled
//  5. Resolve the user's role fresh from user_roles
//  6. Construct the Principal
//
// This authenticator is stateless and thread-safe.
type SessionAuthenticator struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	iamService Service // for ResolveRole
}

// NewSessionAuthenticator creates a new session authenticator.
func NewSessionAuthenticator(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	iamService Service,
) *SessionAuthenticator {
	return &SessionAuthenticator{
		users:      users,
		sessions:   sessions,
		iamService: iamService,
	}
}

// Authenticate extracts and validates the session token.
//
// Returns:
//   - (nil, nil) if no token present (no credentials for this authenticator)
//   - (nil, error) if authentication fails (invalid session, expired, revoked)
//   - (*Principal, nil) if authentication succeeds
func (a *SessionAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*Principal, error) {
	token := extractSessionToken(req)
	if token == "" {
		return nil, nil
	}

	tokenHash := auth.HashBearerToken(token)

	// The repository filters out revoked and expired sessions.
	session, err := a.sessions.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	user, err := a.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if user.IsDisabled() {
		return nil, fmt.Errorf("user is disabled")
	}

	// Roles are never cached; a demotion takes effect on the next request.
	role, err := a.iamService.ResolveRole(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	principal := &Principal{
		UserID:      user.ID,
		PrincipalID: fmt.Sprintf("user:%s", user.ID),
		Email:       user.Email,
		Name:        user.Name,
		SessionID:   session.ID,
		Role:        role,
	}

	// Update session last used timestamp (non-blocking)
	go func() {
		bgCtx := context.Background()
		_ = a.sessions.UpdateLastUsed(bgCtx, session.ID)
	}()

	return principal, nil
}

func extractSessionToken(req AuthRequest) string {
	for _, cookie := range req.Cookies {
		if cookie.Name == auth.SessionCookieName && cookie.Value != "" {
			return cookie.Value
		}
	}

	header := req.Headers.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}
