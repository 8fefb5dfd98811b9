package iam

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"

	"github.com/hulugan-ph/hulugan/internal/auth"
	"github.com/hulugan-ph/hulugan/internal/db/models"
	"github.com/hulugan-ph/hulugan/internal/repository"
)

// iamService implements the Service interface.
//
// It coordinates between repositories, the Casbin enforcer, and the
// authenticator chain.
type iamService struct {
	users       repository.UserRepository
	userRoles   repository.UserRoleRepository
	sessions    repository.SessionRepository
	loginTokens repository.LoginTokenRepository

	enforcer casbin.IEnforcer
	logger   *slog.Logger

	secret       []byte
	magicLinkTTL time.Duration
	sessionTTL   time.Duration

	authenticators []Authenticator
}

// Dependencies contains all runtime dependencies for IAM service construction.
type Dependencies struct {
	Users       repository.UserRepository
	UserRoles   repository.UserRoleRepository
	Sessions    repository.SessionRepository
	LoginTokens repository.LoginTokenRepository
	Enforcer    casbin.IEnforcer
	Logger      *slog.Logger
}

// Config contains tunables for IAM service construction, separated from
// runtime dependencies.
type Config struct {
	// Secret signs magic-link JWTs.
	Secret []byte
	// MagicLinkTTL bounds login link validity. Zero means the default.
	MagicLinkTTL time.Duration
	// SessionTTL bounds session lifetime. Zero means the default.
	SessionTTL time.Duration
}

// NewIAMService creates a new IAM service with all dependencies.
func NewIAMService(deps Dependencies, cfg Config) (Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("iam: signing secret is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	svc := &iamService{
		users:        deps.Users,
		userRoles:    deps.UserRoles,
		sessions:     deps.Sessions,
		loginTokens:  deps.LoginTokens,
		enforcer:     deps.Enforcer,
		logger:       deps.Logger,
		secret:       cfg.Secret,
		magicLinkTTL: cfg.MagicLinkTTL,
		sessionTTL:   cfg.SessionTTL,
	}
	if svc.magicLinkTTL <= 0 {
		svc.magicLinkTTL = auth.MagicLinkDuration
	}
	if svc.sessionTTL <= 0 {
		svc.sessionTTL = auth.SessionDuration
	}

	svc.authenticators = []Authenticator{
		NewSessionAuthenticator(deps.Users, deps.Sessions, svc),
	}

	return svc, nil
}

func (s *iamService) AuthenticateRequest(ctx context.Context, req AuthRequest) (*Principal, error) {
	for _, a := range s.authenticators {
		principal, err := a.Authenticate(ctx, req)
		if err != nil {
			return nil, err
		}
		if principal != nil {
			return principal, nil
		}
	}
	return nil, nil
}

func (s *iamService) ResolveRole(ctx context.Context, userID string) (string, error) {
	mapping, err := s.userRoles.GetRoleForUser(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return models.RoleViewer, nil
		}
		return "", fmt.Errorf("resolve role: %w", err)
	}

	// Unknown role values degrade to viewer rather than failing the request.
	if mapping.Role != models.RoleAdmin {
		return models.RoleViewer, nil
	}
	return models.RoleAdmin, nil
}

func (s *iamService) Authorize(ctx context.Context, principal *Principal, obj, act string) (bool, error) {
	if s.enforcer == nil {
		return false, fmt.Errorf("casbin enforcer not initialized")
	}

	role := models.RoleViewer
	if principal != nil && principal.Role != "" {
		role = principal.Role
	}

	allowed, err := s.enforcer.Enforce("role:"+role, obj, act)
	if err != nil {
		return false, fmt.Errorf("casbin enforce for role %s: %w", role, err)
	}
	if !allowed {
		s.logger.Debug("authorization denied", "role", role, "obj", obj, "act", act)
	}
	return allowed, nil
}

func (s *iamService) IssueLoginToken(ctx context.Context, email, redirectTo string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", fmt.Errorf("invalid email address")
	}

	token := &models.LoginToken{
		Email:      email,
		RedirectTo: redirectTo,
		ExpiresAt:  time.Now().Add(s.magicLinkTTL),
	}
	if err := s.loginTokens.Create(ctx, token); err != nil {
		return "", fmt.Errorf("record login token: %w", err)
	}

	signed, err := auth.MintLoginToken(s.secret, token.ID, email, s.magicLinkTTL)
	if err != nil {
		return "", err
	}
	return signed, nil
}

func (s *iamService) RedeemLoginToken(ctx context.Context, tokenString string, meta SessionMetadata) (*models.Session, string, string, error) {
	claims, err := auth.ParseLoginToken(s.secret, tokenString)
	if err != nil {
		return nil, "", "", err
	}

	// Consumption is single-winner; a replayed link loses the race here.
	record, err := s.loginTokens.Consume(ctx, claims.ID)
	if err != nil {
		return nil, "", "", err
	}
	if record.Email != claims.Email {
		return nil, "", "", fmt.Errorf("login token email mismatch")
	}

	user, err := s.GetOrCreateUser(ctx, record.Email, "")
	if err != nil {
		return nil, "", "", err
	}
	if user.IsDisabled() {
		return nil, "", "", fmt.Errorf("user is disabled")
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("touch last login", "user_id", user.ID, "error", err)
	}

	token, tokenHash, err := auth.GenerateBearerToken()
	if err != nil {
		return nil, "", "", err
	}

	ttl := meta.TTL
	if ttl <= 0 {
		ttl = s.sessionTTL
	}
	session := &models.Session{
		UserID:    user.ID,
		TokenHash: tokenHash,
		ExpiresAt: auth.CalculateExpiry(time.Now(), ttl),
	}
	if meta.UserAgent != "" {
		session.UserAgent = &meta.UserAgent
	}
	if meta.IPAddress != "" {
		session.IPAddress = &meta.IPAddress
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", "", fmt.Errorf("create session: %w", err)
	}

	return session, token, record.RedirectTo, nil
}

func (s *iamService) RevokeSession(ctx context.Context, sessionID string) error {
	return s.sessions.Revoke(ctx, sessionID)
}

func (s *iamService) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *iamService) GetOrCreateUser(ctx context.Context, email, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	user = &models.User{Email: email, Name: name}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("provisioned user", "user_id", user.ID, "email", email)
	return user, nil
}

func (s *iamService) AssignRole(ctx context.Context, userID, role, assignedBy string) error {
	if role != models.RoleAdmin && role != models.RoleViewer {
		return fmt.Errorf("unknown role %q", role)
	}

	mapping := &models.UserRole{
		UserID:     userID,
		Role:       role,
		AssignedBy: assignedBy,
	}
	return s.userRoles.Assign(ctx, mapping)
}

func (s *iamService) RemoveRole(ctx context.Context, userID string) error {
	return s.userRoles.Remove(ctx, userID)
}

func (s *iamService) CleanupExpired(ctx context.Context) (int64, int64, error) {
	sessions, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, 0, err
	}
	tokens, err := s.loginTokens.DeleteExpired(ctx)
	if err != nil {
		return sessions, 0, err
	}
	return sessions, tokens, nil
}
