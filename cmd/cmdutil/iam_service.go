package cmdutil

import (
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/hulugan-ph/hulugan/internal/auth"
	"github.com/hulugan-ph/hulugan/internal/config"
	"github.com/hulugan-ph/hulugan/internal/db/bunx"
	"github.com/hulugan-ph/hulugan/internal/repository"
	"github.com/hulugan-ph/hulugan/internal/services/iam"
)

// IAMServiceBundle bundles the service with its underlying DB connection so
// callers can reuse the connection for other repositories when necessary.
type IAMServiceBundle struct {
	Service iam.Service
	DB      *bun.DB
}

// Close releases the underlying database connection.
func (b *IAMServiceBundle) Close() {
	if b == nil || b.DB == nil {
		return
	}
	bunx.Close(b.DB)
}

// NewIAMServiceBundle centralizes IAM service construction for CLI commands.
// It wires repositories, initializes Casbin, and returns a ready-to-use service.
func NewIAMServiceBundle(cfg *config.Config) (*IAMServiceBundle, error) {
	db, err := bunx.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	enforcer, err := auth.InitEnforcer(db)
	if err != nil {
		bunx.Close(db)
		return nil, fmt.Errorf("initialize casbin enforcer: %w", err)
	}
	enforcer.EnableAutoSave(false)

	iamService, err := iam.NewIAMService(
		iam.Dependencies{
			Users:       repository.NewBunUserRepository(db),
			UserRoles:   repository.NewBunUserRoleRepository(db),
			Sessions:    repository.NewBunSessionRepository(db),
			LoginTokens: repository.NewBunLoginTokenRepository(db),
			Enforcer:    enforcer,
			Logger:      slog.Default(),
		},
		iam.Config{
			Secret:       []byte(cfg.Auth.Secret),
			MagicLinkTTL: cfg.Auth.MagicLinkTTL,
			SessionTTL:   cfg.Auth.SessionTTL,
		},
	)
	if err != nil {
		bunx.Close(db)
		return nil, fmt.Errorf("create IAM service: %w", err)
	}

	return &IAMServiceBundle{
		Service: iamService,
		DB:      db,
	}, nil
}
