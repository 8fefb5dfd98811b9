package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hulugan-ph/hulugan/internal/db/models"
)

func TestGroupRepositoryCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewBunGroupRepository(db)
	ctx := context.Background()

	group := &models.Group{Name: "Sampaguita", WeeklyAmount: 10, WeeksTotal: 4, PaidWeeks: 2}
	require.NoError(t, repo.Create(ctx, group))
	require.NotEmpty(t, group.ID)
	require.False(t, group.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sampaguita", got.Name)
	assert.Equal(t, float64(10), got.WeeklyAmount)
	assert.Equal(t, 4, got.WeeksTotal)
	assert.Equal(t, 2, got.PaidWeeks)
}

func TestGroupRepositoryCreateValidation(t *testing.T) {
	db := newTestDB(t)
	repo := NewBunGroupRepository(db)
	ctx := context.Background()

	cases := []struct {
		name  string
		group models.Group
		want  error
	}{
		{"missing name", models.Group{WeeklyAmount: 10, WeeksTotal: 4}, models.ErrGroupNameRequired},
		{"negative amount", models.Group{Name: "x", WeeklyAmount: -1, WeeksTotal: 4}, models.ErrWeeklyAmountNegative},
		{"zero weeks", models.Group{Name: "x", WeeklyAmount: 10, WeeksTotal: 0}, models.ErrWeeksTotalInvalid},
		{"paid above total", models.Group{Name: "x", WeeklyAmount: 10, WeeksTotal: 4, PaidWeeks: 5}, models.ErrPaidWeeksOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := repo.Create(ctx, &tc.group)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestGroupRepositoryGetByIDNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewBunGroupRepository(db)

	_, err := repo.GetByID(context.Background(), "does-not-exist")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGroupRepositoryListOrdersByUpdatedAtDescending(t *testing.T) {
	db := newTestDB(t)
	repo := NewBunGroupRepository(db)
	ctx := context.Background()

	first := &models.Group{Name: "First", WeeklyAmount: 10, WeeksTotal: 4}
	second := &models.Group{Name: "Second", WeeklyAmount: 10, WeeksTotal: 4}
	require.NoError(t, repo.Create(ctx, first))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, repo.Create(ctx, second))

	groups, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Second", groups[0].Name)
	assert.Equal(t, "First", groups[1].Name)

	// Updating the older group promotes it to the front.
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, repo.SetPaidWeeks(ctx, first.ID, 1))

	groups, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "First", groups[0].Name)
}

func TestGroupRepositoryListEmpty(t *testing.T) {
	db := newTestDB(t)
	repo := NewBunGroupRepository(db)

	groups, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}

func TestGroupRepositorySetPaidWeeks(t *testing.T) {
	db := newTestDB(t)
	repo := NewBunGroupRepository(db)
	ctx := context.Background()

	group := &models.Group{Name: "Sampaguita", WeeklyAmount: 10, WeeksTotal: 4, PaidWeeks: 2}
	require.NoError(t, repo.Create(ctx, group))
	created := group.UpdatedAt

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, repo.SetPaidWeeks(ctx, group.ID, 4))

	got, err := repo.GetByID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.PaidWeeks)
	assert.True(t, got.UpdatedAt.After(created))

	// Writing the same value again still stamps a fresh updated_at.
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, repo.SetPaidWeeks(ctx, group.ID, 4))

	again, err := repo.GetByID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, again.PaidWeeks)
	assert.True(t, again.UpdatedAt.After(got.UpdatedAt))
}

func TestGroupRepositorySetPaidWeeksNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewBunGroupRepository(db)

	err := repo.SetPaidWeeks(context.Background(), "does-not-exist", 1)
	require.ErrorIs(t, err, ErrNotFound)
}
