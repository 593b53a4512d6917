package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/reframe/internal/pkg/errors"
	"github.com/xxxsen/reframe/internal/repo"
	"github.com/xxxsen/reframe/internal/testutil"
)

func TestRegistryServiceNumbering(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewRegistryService(db, repo.NewModelVersionRepo(db, testutil.Driver))
	ctx := context.Background()

	latest, err := svc.LatestVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, latest)

	first, err := svc.RecordVersion(ctx, VersionInput{TrainingSampleCount: 10, Accuracy: 0.5, Notes: "first"})
	require.NoError(t, err)
	require.Equal(t, 1, first.VersionNumber)

	latest, err = svc.LatestVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, latest)

	prev := first.VersionNumber
	for i := 0; i < 3; i++ {
		v, err := svc.RecordVersion(ctx, VersionInput{TrainingSampleCount: 10 + i, Accuracy: 0.7})
		require.NoError(t, err)
		require.Greater(t, v.VersionNumber, prev)
		prev = v.VersionNumber
	}
	require.Equal(t, 4, prev)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)

	got, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "first", got.Notes)
}

func TestRegistryServiceRejectsBadInput(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewRegistryService(db, repo.NewModelVersionRepo(db, testutil.Driver))
	ctx := context.Background()

	_, err := svc.RecordVersion(ctx, VersionInput{TrainingSampleCount: -1, Accuracy: 0.5})
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = svc.RecordVersion(ctx, VersionInput{TrainingSampleCount: 1, Accuracy: 1.2})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = svc.Get(ctx, 1)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}
