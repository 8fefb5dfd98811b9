package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hulugan-ph/hulugan/internal/services/iam"
)

type principalContextKey struct{}

// SetPrincipal stores the authenticated principal on the context for
// downstream handlers.
func SetPrincipal(ctx context.Context, principal *iam.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext retrieves the authenticated principal, or nil for an
// anonymous request.
func PrincipalFromContext(ctx context.Context) *iam.Principal {
	principal, _ := ctx.Value(principalContextKey{}).(*iam.Principal)
	return principal
}

// Authentication resolves the request's principal and stores it in context.
//
//  1. Build an AuthRequest from headers and cookies
//  2. Run the IAM authenticator chain (session cookie, bearer token)
//  3. Store the Principal in context when authentication succeeds
//
// Requests with no credentials pass through anonymously; permission checks
// happen in the fund service, not here. Presenting invalid credentials is a
// 401.
func Authentication(iamService iam.Service, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authReq := iam.AuthRequest{
				Headers: r.Header,
				Cookies: r.Cookies(),
			}

			principal, err := iamService.AuthenticateRequest(ctx, authReq)
			if err != nil {
				logger.Warn("authentication failed",
					"method", r.Method,
					"path", r.URL.Path,
					"error", err,
				)
				http.Error(w, "authentication failed", http.StatusUnauthorized)
				return
			}

			if principal != nil {
				ctx = SetPrincipal(ctx, principal)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthenticated rejects anonymous requests. Used on endpoints whose
// response only makes sense for a signed-in user; fund authorization itself
// is enforced deeper, at the service layer.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if PrincipalFromContext(r.Context()) == nil {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
