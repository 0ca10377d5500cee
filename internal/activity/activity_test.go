package activity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestDraft_Activity(t *testing.T) {
	full := Draft{Day: ptr("Lun"), Steps: ptr(5200), DistanceKm: ptr(3.4), ActiveTime: ptr("45m")}
	a, err := full.Activity()
	require.NoError(t, err)
	assert.Equal(t, Activity{Day: "Lun", Steps: 5200, DistanceKm: 3.4, ActiveTime: "45m"}, a)

	_, err = Draft{Day: ptr("Lun"), Steps: ptr(1)}.Activity()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "distanceKm")
	assert.Contains(t, err.Error(), "activeTime")

	_, err = Draft{Day: ptr("Lun"), Steps: ptr(-1), DistanceKm: ptr(0.0), ActiveTime: ptr("0s")}.Activity()
	assert.Error(t, err, "negative steps")
}

func TestPatch_Apply(t *testing.T) {
	base := Activity{ID: "a", Day: "Mar", Steps: 7600, DistanceKm: 5.1, ActiveTime: "1h 10m"}

	assert.True(t, Patch{}.Empty())
	got, err := Patch{Steps: ptr(8000)}.Apply(base)
	require.NoError(t, err)
	assert.Equal(t, 8000, got.Steps)
	assert.Equal(t, "Mar", got.Day, "unset fields untouched")

	_, err = Patch{Day: ptr("  ")}.Apply(base)
	assert.Error(t, err)
}

func TestMemoryRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	created, err := repo.Create(ctx, Activity{Day: "Jue", Steps: 8900, DistanceKm: 6.4, ActiveTime: "1h 25m"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	updated, err := repo.Update(ctx, created.ID, Patch{DistanceKm: ptr(7.0)})
	require.NoError(t, err)
	assert.Equal(t, 7.0, updated.DistanceKm)
	assert.Equal(t, 8900, updated.Steps)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.Get(ctx, created.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), ErrNotFound)
	_, err = repo.Update(ctx, "missing", Patch{Steps: ptr(1)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	n, err := Seed(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = Seed(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "non-empty store is left alone")

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 7)
}

func TestSeed_CreateError(t *testing.T) {
	repo := NewMemoryRepository()
	repo.CreateErr = errors.New("disk full")
	_, err := Seed(context.Background(), repo)
	assert.ErrorContains(t, err, "disk full")
}
