package campus_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/campus"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

func setup(t *testing.T) *campus.Service {
	t.Helper()
	core.NewTestConfig()
	return campus.NewService(inmemdb.NewCampusRepository(inmemdb.Open()))
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	cmp, err := svc.Create(ctx, campus.NewCampus{Name: "Green Hills Academy", ContactEmail: "office@greenhills.cd"})
	require.NoError(t, err)
	assert.Equal(t, "green-hills-academy", cmp.Slug)
	assert.Equal(t, campus.StatusTrial, cmp.Status)
	assert.False(t, cmp.Features[campus.FeaturePayments]) // off until the platform enables it
	assert.True(t, cmp.IsActive())

	// slugs are unique
	_, err = svc.Create(ctx, campus.NewCampus{Name: "Green Hills Academy", ContactEmail: "other@greenhills.cd"})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)

	got, err := svc.GetBySlug(ctx, "green-hills-academy")
	require.NoError(t, err)
	assert.Equal(t, cmp.ID, got.ID)
}

func TestService_lifecycle(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	cmp, err := svc.Create(ctx, campus.NewCampus{Name: "Sun Valley", ContactEmail: "hi@sunvalley.cd"})
	require.NoError(t, err)

	cmp, err = svc.SetStatus(ctx, cmp.ID, campus.StatusSuspended)
	require.NoError(t, err)
	assert.False(t, cmp.IsActive())

	cmp, err = svc.SetStatus(ctx, cmp.ID, campus.StatusActive)
	require.NoError(t, err)
	assert.True(t, cmp.IsActive())

	cmp, err = svc.SetFeature(ctx, cmp.ID, campus.FeaturePayments, true)
	require.NoError(t, err)
	assert.True(t, cmp.FeatureEnabled(campus.FeaturePayments))

	require.NoError(t, svc.Deactivate(ctx, cmp.ID))
	campuses, err := svc.Query(ctx, &campus.QueryFilter{}, nil)
	require.NoError(t, err)
	assert.Empty(t, campuses) // soft-deleted campuses are hidden

	cmp, err = svc.Restore(ctx, cmp.ID)
	require.NoError(t, err)
	assert.False(t, cmp.IsDeleted)
	campuses, err = svc.Query(ctx, &campus.QueryFilter{}, nil)
	require.NoError(t, err)
	assert.Len(t, campuses, 1)
}

func TestService_GetByID_notFound(t *testing.T) {
	svc := setup(t)
	_, err := svc.GetByID(context.Background(), "5b7c2f3b9d1e8a6b4c2d1e0f")
	assert.Equal(t, campus.ErrNotFound, err)
}
