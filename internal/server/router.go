package server

import (
	"log/slog"
	"net/http"

	"github.com/hulugan-ph/hulugan/internal/config"
	"github.com/hulugan-ph/hulugan/internal/mailer"
	huluganmiddleware "github.com/hulugan-ph/hulugan/internal/middleware"
	"github.com/hulugan-ph/hulugan/internal/services/fund"
	"github.com/hulugan-ph/hulugan/internal/services/iam"
	"github.com/hulugan-ph/hulugan/internal/telemetry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions controls the construction of the HTTP router.
// The zero value is valid; sensible defaults are applied where fields are not set.
type RouterOptions struct {
	Fund          *fund.Service
	IAM           iam.Service
	Mailer        mailer.Mailer
	Metrics       *telemetry.ServerMetrics
	Cfg           *config.Config
	Logger        *slog.Logger
	CORSOptions   *cors.Options
	Middleware    []func(http.Handler) http.Handler
	HealthHandler http.HandlerFunc
	ExtraRoutes   func(chi.Router)
}

// DefaultCORSOptions returns the shared development CORS policy.
func DefaultCORSOptions() cors.Options {
	return CORSOptionsForOrigins([]string{
		"http://localhost:5173",
		"http://127.0.0.1:5173",
	})
}

// CORSOptionsForOrigins builds the CORS policy for a configured origin list.
// Credentials are allowed so the session cookie travels with API calls.
func CORSOptionsForOrigins(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
		},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter assembles a chi.Router with shared middleware, CORS policy, and
// the fund and auth handlers mounted. The router can be tailored via
// RouterOptions for CLI usage, tests, or other entrypoints.
func NewRouter(opts RouterOptions) chi.Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Baseline middleware shared across entrypoints.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if opts.Metrics != nil {
		r.Use(huluganmiddleware.Metrics(opts.Metrics))
	}

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	} else if opts.Cfg != nil && len(opts.Cfg.CORSOrigins) > 0 {
		corsCfg = CORSOptionsForOrigins(opts.Cfg.CORSOrigins)
	}
	r.Use(cors.Handler(corsCfg))

	// Resolve the principal for every request; authorization itself happens
	// in the fund service.
	if opts.IAM != nil {
		r.Use(huluganmiddleware.Authentication(opts.IAM, logger))
	}

	// Apply custom middleware passed from the caller.
	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	if opts.Fund != nil {
		// Public read surface.
		r.Get("/api/fund/groups", HandleFundSnapshot(opts.Fund, logger))

		// Admin mutation surface. Handlers reject anonymous callers for a
		// clean 401; the role check itself lives in the fund service.
		r.Post("/api/admin/groups", HandleCreateGroup(opts.Fund, opts.Metrics, logger))
		r.Post("/api/admin/groups/{id}/paid-weeks", HandleSetPaidWeeks(opts.Fund, opts.Metrics, logger))
	}

	if opts.IAM != nil {
		r.Post("/auth/magic-link", HandleMagicLink(opts.IAM, opts.Mailer, opts.Cfg, logger))
		r.Get("/auth/verify", HandleVerify(opts.IAM, opts.Cfg, logger))
		r.Get("/api/auth/whoami", HandleWhoAmI())
		r.Post("/auth/logout", HandleLogout(opts.IAM, logger))
	}

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	r.Get("/health", healthHandler)

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	if opts.ExtraRoutes != nil {
		opts.ExtraRoutes(r)
	}

	return r
}
