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

// BunGroupRepository persists hulugan groups using Bun.
type BunGroupRepository struct {
	db *bun.DB
}

// NewBunGroupRepository constructs a group repository backed by Bun.
func NewBunGroupRepository(db *bun.DB) *BunGroupRepository {
	return &BunGroupRepository{db: db}
}

// Create inserts a new group row. The ID is generated when unset.
func (r *BunGroupRepository) Create(ctx context.Context, group *models.Group) error {
	if err := group.ValidateForCreate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if group.ID == "" {
		group.ID = bunx.NewUUIDv7()
	}
	now := time.Now()
	group.CreatedAt = now
	group.UpdatedAt = now

	if _, err := r.db.NewInsert().Model(group).Exec(ctx); err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

// GetByID fetches a group by its ID.
func (r *BunGroupRepository) GetByID(ctx context.Context, id string) (*models.Group, error) {
	group := new(models.Group)
	err := r.db.NewSelect().Model(group).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("group '%s': %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("query group: %w", err)
	}
	return group, nil
}

// List returns all groups ordered by updated_at descending.
func (r *BunGroupRepository) List(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	if err := r.db.NewSelect().Model(&groups).Order("updated_at DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	if groups == nil {
		groups = []models.Group{}
	}
	return groups, nil
}

// SetPaidWeeks updates paid_weeks on the exact row matching id and stamps a
// fresh updated_at. Writing the same value twice is safe; each write produces
// a new updated_at.
func (r *BunGroupRepository) SetPaidWeeks(ctx context.Context, id string, paidWeeks int) error {
	result, err := r.db.NewUpdate().
		Model((*models.Group)(nil)).
		Set("paid_weeks = ?", paidWeeks).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update paid_weeks: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("group '%s': %w", id, ErrNotFound)
	}
	return nil
}
