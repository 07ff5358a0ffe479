package repository_test

import (
	"context"
	"testing"
	"time"

	"bety/models"
	"bety/repository"
	"bety/repository/testutil"
	"bety/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBetLifecycle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	profileRepo := repository.NewProfileRepository(testDB.DB)
	betRepo := repository.NewBetRepository(testDB.DB)

	admin := testutil.CreateTestAdmin("admin")
	require.NoError(t, profileRepo.Create(ctx, admin))
	winner := testutil.CreateTestProfile("winner")
	require.NoError(t, profileRepo.Create(ctx, winner))
	loser := testutil.CreateTestProfile("loser")
	require.NoError(t, profileRepo.Create(ctx, loser))

	bet := testutil.CreateTestBet(admin.ID, "Derby")
	require.NoError(t, betRepo.Create(ctx, bet))
	assert.NotEqual(t, uuid.Nil, bet.ID)

	t.Run("participations freeze the stake amount", func(t *testing.T) {
		require.NoError(t, betRepo.CreateParticipation(ctx, testutil.CreateTestParticipation(bet.ID, winner.ID, bet.Cost)))
		require.NoError(t, betRepo.CreateParticipation(ctx, testutil.CreateTestParticipation(bet.ID, loser.ID, bet.Cost)))

		// Raising the cost afterwards must not rewrite existing stakes
		bet.Cost = decimal.NewFromInt(80)
		require.NoError(t, betRepo.Update(ctx, bet))

		participations, err := betRepo.ListParticipationsByBet(ctx, bet.ID)
		require.NoError(t, err)
		require.Len(t, participations, 2)
		for _, p := range participations {
			assert.True(t, p.Amount.Equal(decimal.NewFromInt(50)), "stake was %s", p.Amount)
			assert.Equal(t, models.ParticipationPending, p.Status)
		}
	})

	t.Run("duplicate join is rejected by the unique constraint", func(t *testing.T) {
		err := betRepo.CreateParticipation(ctx, testutil.CreateTestParticipation(bet.ID, winner.ID, bet.Cost))
		assert.ErrorIs(t, err, service.ErrAlreadyJoined)
	})

	t.Run("guarded close wins exactly once", func(t *testing.T) {
		closed, err := betRepo.MarkClosed(ctx, bet.ID, &winner.ID, time.Now())
		require.NoError(t, err)
		assert.True(t, closed)

		// The second close sees no ACTIVE row to flip
		closed, err = betRepo.MarkClosed(ctx, bet.ID, &winner.ID, time.Now())
		require.NoError(t, err)
		assert.False(t, closed)
	})

	t.Run("closed but unsettled bets are reported for repair", func(t *testing.T) {
		unsettled, err := betRepo.ListUnsettled(ctx)
		require.NoError(t, err)
		require.Len(t, unsettled, 1)
		assert.Equal(t, bet.ID, unsettled[0].ID)
		require.NotNil(t, unsettled[0].WinnerID)
		assert.Equal(t, winner.ID, *unsettled[0].WinnerID)
	})

	t.Run("one statement settles every pending stake", func(t *testing.T) {
		settled, err := betRepo.SettleParticipations(ctx, bet.ID, winner.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), settled)

		winnerPart, err := betRepo.GetParticipation(ctx, bet.ID, winner.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ParticipationWon, winnerPart.Status)

		loserPart, err := betRepo.GetParticipation(ctx, bet.ID, loser.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ParticipationLost, loserPart.Status)

		// Settling again touches nothing: only PENDING rows qualify
		settled, err = betRepo.SettleParticipations(ctx, bet.ID, winner.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), settled)

		unsettled, err := betRepo.ListUnsettled(ctx)
		require.NoError(t, err)
		assert.Empty(t, unsettled)
	})

	t.Run("delete cascades to participations", func(t *testing.T) {
		require.NoError(t, betRepo.Delete(ctx, bet.ID))

		gone, err := betRepo.GetByID(ctx, bet.ID)
		require.NoError(t, err)
		assert.Nil(t, gone)

		participations, err := betRepo.ListParticipationsByPlayer(ctx, winner.ID)
		require.NoError(t, err)
		assert.Empty(t, participations)
	})
}

func TestBetRepository_GetDetail_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	profileRepo := repository.NewProfileRepository(testDB.DB)
	betRepo := repository.NewBetRepository(testDB.DB)

	admin := testutil.CreateTestAdmin("admin")
	require.NoError(t, profileRepo.Create(ctx, admin))
	player := testutil.CreateTestProfile("player")
	require.NoError(t, profileRepo.Create(ctx, player))

	bet := testutil.CreateTestBet(admin.ID, "Cup final")
	require.NoError(t, betRepo.Create(ctx, bet))
	require.NoError(t, betRepo.CreateParticipation(ctx, testutil.CreateTestParticipation(bet.ID, player.ID, bet.Cost)))

	detail, err := betRepo.GetDetailByID(ctx, bet.ID)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, bet.ID, detail.Bet.ID)
	require.Len(t, detail.Participations, 1)
	assert.Equal(t, player.ID, detail.Participations[0].PlayerID)
	assert.NotNil(t, detail.Participant(player.ID))
	assert.Nil(t, detail.Participant(admin.ID))

	missing, err := betRepo.GetDetailByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
