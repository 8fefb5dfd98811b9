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

// BunUserRoleRepository persists role assignments using Bun.
type BunUserRoleRepository struct {
	db *bun.DB
}

// NewBunUserRoleRepository constructs a role repository backed by Bun.
func NewBunUserRoleRepository(db *bun.DB) *BunUserRoleRepository {
	return &BunUserRoleRepository{db: db}
}

// GetRoleForUser returns the role assignment for a user. Users with no
// assignment get ErrNotFound; callers treat that as the viewer default.
func (r *BunUserRoleRepository) GetRoleForUser(ctx context.Context, userID string) (*models.UserRole, error) {
	role := new(models.UserRole)
	err := r.db.NewSelect().Model(role).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role for user '%s': %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("query user role: %w", err)
	}
	return role, nil
}

// Assign upserts the role for a user. A user holds at most one role, so a
// second assignment replaces the first.
func (r *BunUserRoleRepository) Assign(ctx context.Context, role *models.UserRole) error {
	if role.ID == "" {
		role.ID = bunx.NewUUIDv7()
	}
	role.AssignedAt = time.Now()

	_, err := r.db.NewInsert().
		Model(role).
		On("CONFLICT (user_id) DO UPDATE").
		Set("role = EXCLUDED.role").
		Set("assigned_by = EXCLUDED.assigned_by").
		Set("assigned_at = EXCLUDED.assigned_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

// Remove deletes the role assignment for a user, demoting them to viewer.
func (r *BunUserRoleRepository) Remove(ctx context.Context, userID string) error {
	result, err := r.db.NewDelete().
		Model((*models.UserRole)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("remove role: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("role for user '%s': %w", userID, ErrNotFound)
	}
	return nil
}
