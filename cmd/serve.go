package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"golang.org/x/sync/errgroup"

	"github.com/hulugan-ph/hulugan/internal/auth"
	"github.com/hulugan-ph/hulugan/internal/db/bunx"
	"github.com/hulugan-ph/hulugan/internal/mailer"
	"github.com/hulugan-ph/hulugan/internal/migrations"
	"github.com/hulugan-ph/hulugan/internal/repository"
	"github.com/hulugan-ph/hulugan/internal/server"
	"github.com/hulugan-ph/hulugan/internal/services/fund"
	"github.com/hulugan-ph/hulugan/internal/services/iam"
	"github.com/hulugan-ph/hulugan/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the hulugan API server",
	Long:  `Starts the HTTP server with the fund API, magic-link auth endpoints, and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.Default()

		db, err := bunx.NewDB(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer bunx.Close(db)

		logger.Info("connected to database")

		if err := warnPendingMigrations(cmd.Context(), db, logger); err != nil {
			return err
		}

		enforcer, err := auth.InitEnforcer(db)
		if err != nil {
			return fmt.Errorf("configure casbin enforcer: %w", err)
		}
		// Authorization is read-only at runtime; policy rows change only via
		// migrations.
		enforcer.EnableAutoSave(false)

		groupRepo := repository.NewBunGroupRepository(db)
		userRepo := repository.NewBunUserRepository(db)
		userRoleRepo := repository.NewBunUserRoleRepository(db)
		sessionRepo := repository.NewBunSessionRepository(db)
		loginTokenRepo := repository.NewBunLoginTokenRepository(db)

		iamService, err := iam.NewIAMService(
			iam.Dependencies{
				Users:       userRepo,
				UserRoles:   userRoleRepo,
				Sessions:    sessionRepo,
				LoginTokens: loginTokenRepo,
				Enforcer:    enforcer,
				Logger:      logger,
			},
			iam.Config{
				Secret:       []byte(cfg.Auth.Secret),
				MagicLinkTTL: cfg.Auth.MagicLinkTTL,
				SessionTTL:   cfg.Auth.SessionTTL,
			},
		)
		if err != nil {
			return fmt.Errorf("create IAM service: %w", err)
		}

		fundService := fund.NewService(groupRepo, iamService, logger)

		var linkMailer mailer.Mailer = mailer.NewLogMailer(logger)
		if cfg.Mail.URL != "" {
			amqpMailer, err := mailer.NewAMQPMailer(cfg.Mail.URL, cfg.Mail.Exchange, cfg.Mail.Queue, logger)
			if err != nil {
				return fmt.Errorf("connect to mail broker: %w", err)
			}
			linkMailer = amqpMailer
		}
		defer linkMailer.Close()

		metrics := telemetry.NewServerMetrics()

		router := server.NewRouter(server.RouterOptions{
			Fund:    fundService,
			IAM:     iamService,
			Mailer:  linkMailer,
			Metrics: metrics,
			Cfg:     cfg,
			Logger:  logger,
		})

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			logger.Info("starting server", "addr", cfg.ServerAddr, "url", cfg.ServerURL)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})

		// Janitor: expired sessions and login tokens accumulate otherwise.
		g.Go(func() error {
			ticker := time.NewTicker(cfg.Auth.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					sessions, tokens, err := iamService.CleanupExpired(gctx)
					if err != nil {
						logger.Error("auth cleanup failed", "error", err)
						continue
					}
					if sessions > 0 || tokens > 0 {
						logger.Info("auth cleanup", "sessions", sessions, "login_tokens", tokens)
					}
				case <-gctx.Done():
					return nil
				}
			}
		})

		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down gracefully")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}
		logger.Info("server stopped")
		return nil
	},
}

// warnPendingMigrations surfaces unapplied migrations at startup instead of
// failing later with missing-table errors.
func warnPendingMigrations(ctx context.Context, db *bun.DB, logger *slog.Logger) error {
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		// Fresh database without migration tables yet.
		logger.Warn("migration status unavailable, run 'hulugan db init' and 'hulugan db migrate'", "error", err)
		return nil
	}
	if unapplied := ms.Unapplied(); len(unapplied) > 0 {
		logger.Warn("pending migrations, run 'hulugan db migrate'", "count", len(unapplied))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
