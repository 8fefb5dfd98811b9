package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/hulugan-ph/hulugan/internal/db/bunx"
	"github.com/hulugan-ph/hulugan/internal/db/models"
)

// BunLoginTokenRepository persists single-use magic-link tokens using Bun.
type BunLoginTokenRepository struct {
	db *bun.DB
}

// NewBunLoginTokenRepository constructs a login-token repository backed by Bun.
func NewBunLoginTokenRepository(db *bun.DB) *BunLoginTokenRepository {
	return &BunLoginTokenRepository{db: db}
}

// Create inserts a new login token. The generated ID doubles as the JWT jti.
func (r *BunLoginTokenRepository) Create(ctx context.Context, token *models.LoginToken) error {
	if token.ID == "" {
		token.ID = bunx.NewUUIDv7()
	}
	token.CreatedAt = time.Now()

	if _, err := r.db.NewInsert().Model(token).Exec(ctx); err != nil {
		return fmt.Errorf("insert login token: %w", err)
	}
	return nil
}

// GetByID fetches a login token by ID regardless of consumption state.
func (r *BunLoginTokenRepository) GetByID(ctx context.Context, id string) (*models.LoginToken, error) {
	token := new(models.LoginToken)
	err := r.db.NewSelect().Model(token).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("login token '%s': %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("query login token: %w", err)
	}
	return token, nil
}

// Consume marks a token used. The conditional update makes consumption
// single-winner: a replayed link loses the race and gets ErrTokenConsumed.
func (r *BunLoginTokenRepository) Consume(ctx context.Context, id string) (*models.LoginToken, error) {
	now := time.Now()
	result, err := r.db.NewUpdate().
		Model((*models.LoginToken)(nil)).
		Set("consumed_at = ?", now).
		Where("id = ?", id).
		Where("consumed_at IS NULL").
		Where("expires_at > ?", now).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("consume login token: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		token, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if token.ConsumedAt != nil {
			return nil, fmt.Errorf("login token '%s': %w", id, ErrTokenConsumed)
		}
		return nil, fmt.Errorf("login token '%s' expired: %w", id, ErrNotFound)
	}

	return r.GetByID(ctx, id)
}

// DeleteExpired removes tokens past their expiry and returns how many rows
// were deleted.
func (r *BunLoginTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*models.LoginToken)(nil)).
		Where("expires_at <= ?", time.Now()).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete expired login tokens: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}
