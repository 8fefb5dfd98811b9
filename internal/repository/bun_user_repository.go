package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/hulugan-ph/hulugan/internal/db/bunx"
	"github.com/hulugan-ph/hulugan/internal/db/models"
)

// BunUserRepository persists users using Bun.
type BunUserRepository struct {
	db *bun.DB
}

// NewBunUserRepository constructs a user repository backed by Bun.
func NewBunUserRepository(db *bun.DB) *BunUserRepository {
	return &BunUserRepository{db: db}
}

// Create inserts a new user row. Emails are stored lowercased.
func (r *BunUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.Email == "" {
		return fmt.Errorf("user email is required")
	}
	user.Email = strings.ToLower(user.Email)

	if user.ID == "" {
		user.ID = bunx.NewUUIDv7()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.db.NewInsert().Model(user).Exec(ctx); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID fetches a user by ID.
func (r *BunUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().Model(user).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user '%s': %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// GetByEmail fetches a user by email, case-insensitively.
func (r *BunUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().Model(user).Where("email = ?", strings.ToLower(email)).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user '%s': %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	return user, nil
}

// Update persists changes to an existing user.
func (r *BunUserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()

	result, err := r.db.NewUpdate().Model(user).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("user '%s': %w", user.ID, ErrNotFound)
	}
	return nil
}

// TouchLastLogin stamps last_login_at for the user.
func (r *BunUserRepository) TouchLastLogin(ctx context.Context, id string) error {
	now := time.Now()
	result, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("last_login_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("user '%s': %w", id, ErrNotFound)
	}
	return nil
}
