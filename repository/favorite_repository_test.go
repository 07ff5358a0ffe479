package repository_test

import (
	"context"
	"testing"

	"bety/repository"
	"bety/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavoriteRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	profileRepo := repository.NewProfileRepository(testDB.DB)
	betRepo := repository.NewBetRepository(testDB.DB)
	favoriteRepo := repository.NewFavoriteRepository(testDB.DB)

	admin := testutil.CreateTestAdmin("admin")
	require.NoError(t, profileRepo.Create(ctx, admin))
	user := testutil.CreateTestProfile("user")
	require.NoError(t, profileRepo.Create(ctx, user))

	bet := testutil.CreateTestBet(admin.ID, "Derby")
	require.NoError(t, betRepo.Create(ctx, bet))

	t.Run("insert reports whether the row was new", func(t *testing.T) {
		inserted, err := favoriteRepo.Insert(ctx, bet.ID, user.ID)
		require.NoError(t, err)
		assert.True(t, inserted)

		inserted, err = favoriteRepo.Insert(ctx, bet.ID, user.ID)
		require.NoError(t, err)
		assert.False(t, inserted)
	})

	t.Run("counter arithmetic runs server side", func(t *testing.T) {
		count, err := favoriteRepo.IncrementCount(ctx, bet.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		rows, err := favoriteRepo.CountRows(ctx, bet.ID)
		require.NoError(t, err)
		assert.Equal(t, count, rows)
	})

	t.Run("delete reports whether the row existed", func(t *testing.T) {
		deleted, err := favoriteRepo.Delete(ctx, bet.ID, user.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = favoriteRepo.Delete(ctx, bet.ID, user.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("counter never goes below zero", func(t *testing.T) {
		count, err := favoriteRepo.DecrementCount(ctx, bet.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		count, err = favoriteRepo.DecrementCount(ctx, bet.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("list reflects current markers", func(t *testing.T) {
		betIDs, err := favoriteRepo.ListBetIDsByUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Empty(t, betIDs)

		_, err = favoriteRepo.Insert(ctx, bet.ID, user.ID)
		require.NoError(t, err)

		betIDs, err = favoriteRepo.ListBetIDsByUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, betIDs, 1)
		assert.Equal(t, bet.ID, betIDs[0])
	})
}
