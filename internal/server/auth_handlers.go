package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hulugan-ph/hulugan/internal/auth"
	"github.com/hulugan-ph/hulugan/internal/config"
	"github.com/hulugan-ph/hulugan/internal/mailer"
	"github.com/hulugan-ph/hulugan/internal/middleware"
	"github.com/hulugan-ph/hulugan/internal/services/iam"
)

// MagicLinkRequest is the body for POST /auth/magic-link.
type MagicLinkRequest struct {
	Email      string `json:"email"`
	RedirectTo string `json:"redirect_to"`
}

// UserResponse represents user data in API responses.
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

// WhoamiResponse is the body for GET /api/auth/whoami.
type WhoamiResponse struct {
	User      UserResponse `json:"user"`
	SessionID string       `json:"session_id"`
}

// HandleMagicLink records a pending login and mails the signed link.
//
// A 202 reveals nothing about whether the address belongs to an existing
// user: the login token row is created either way, and the user is only
// provisioned on redemption.
func HandleMagicLink(iamService iam.Service, m mailer.Mailer, cfg *config.Config, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req MagicLinkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Email) == "" {
			writeError(w, http.StatusBadRequest, "email is required")
			return
		}

		token, err := iamService.IssueLoginToken(ctx, req.Email, req.RedirectTo)
		if err != nil {
			logger.Warn("issue login token", "email", req.Email, "error", err)
			writeError(w, http.StatusBadRequest, "could not issue login link")
			return
		}

		if m != nil {
			link := serverURL(cfg) + "/auth/verify?token=" + url.QueryEscape(token)
			if err := m.SendMagicLink(ctx, req.Email, link); err != nil {
				logger.Error("send magic link", "email", req.Email, "error", err)
				writeError(w, http.StatusBadGateway, "could not deliver login link")
				return
			}
		}

		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

// HandleVerify redeems a magic-link token, opens a session, and redirects to
// the target recorded when the link was issued.
func HandleVerify(iamService iam.Service, cfg *config.Config, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			writeError(w, http.StatusBadRequest, "missing token")
			return
		}

		meta := iam.SessionMetadata{
			UserAgent: r.UserAgent(),
			IPAddress: r.RemoteAddr,
			TTL:       sessionTTL(cfg),
		}
		session, bearer, redirectTo, err := iamService.RedeemLoginToken(r.Context(), token, meta)
		if err != nil {
			logger.Warn("redeem login token", "error", err)
			writeError(w, http.StatusUnauthorized, "invalid or expired login link")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     auth.SessionCookieName,
			Value:    bearer,
			Path:     "/",
			Expires:  session.ExpiresAt,
			HttpOnly: true,
			Secure:   r.URL.Scheme == "https",
			SameSite: http.SameSiteLaxMode,
		})

		http.Redirect(w, r, safeRedirect(redirectTo), http.StatusFound)
	}
}

// HandleWhoAmI returns the authenticated user's identity and effective role.
func HandleWhoAmI() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.PrincipalFromContext(r.Context())
		if principal == nil {
			writeError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}

		writeJSON(w, http.StatusOK, WhoamiResponse{
			User: UserResponse{
				ID:    principal.UserID,
				Email: principal.Email,
				Name:  principal.Name,
				Role:  principal.Role,
			},
			SessionID: principal.SessionID,
		})
	}
}

// HandleLogout revokes the caller's session and clears the cookie. Anonymous
// calls still clear the cookie and succeed.
func HandleLogout(iamService iam.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if principal := middleware.PrincipalFromContext(r.Context()); principal != nil {
			if err := iamService.RevokeSession(r.Context(), principal.SessionID); err != nil {
				logger.Error("revoke session", "session_id", principal.SessionID, "error", err)
				writeError(w, http.StatusInternalServerError, "logout failed")
				return
			}
		}

		http.SetCookie(w, &http.Cookie{
			Name:     auth.SessionCookieName,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   r.URL.Scheme == "https",
			SameSite: http.SameSiteLaxMode,
		})

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Logged out"))
	}
}

func serverURL(cfg *config.Config) string {
	if cfg == nil || cfg.ServerURL == "" {
		return "http://localhost:8080"
	}
	return strings.TrimSuffix(cfg.ServerURL, "/")
}

func sessionTTL(cfg *config.Config) time.Duration {
	if cfg == nil || cfg.Auth.SessionTTL <= 0 {
		return auth.SessionDuration
	}
	return cfg.Auth.SessionTTL
}

// safeRedirect restricts post-login redirects to same-site paths so a forged
// link cannot bounce the session to another origin.
func safeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "/"
	}
	return target
}
