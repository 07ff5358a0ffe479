package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"bety/config"
	"bety/events"
	"bety/models"
	"bety/repository"
	"bety/repository/testutil"
	"bety/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func integrationConfig() *config.Config {
	return &config.Config{
		RequestTimeout: 30 * time.Second,
		WinnerPoints:   10,
		JWTSecret:      "integration-secret",
		TokenTTL:       time.Hour,
		Environment:    "test",
	}
}

func TestBetSettlement_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	cfg := integrationConfig()
	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(testDB.DB, eventBus)
	profileRepo := repository.NewProfileRepository(testDB.DB)

	betService := service.NewBetService(uowFactory, cfg)
	walletService := service.NewWalletService(uowFactory)

	admin := testutil.CreateTestAdmin("admin")
	require.NoError(t, profileRepo.Create(ctx, admin))
	winner := testutil.CreateTestProfile("winner")
	require.NoError(t, profileRepo.Create(ctx, winner))
	loser := testutil.CreateTestProfile("loser")
	require.NoError(t, profileRepo.Create(ctx, loser))

	// Admin creates a 50-unit bet with 10% commission
	bet, err := betService.CreateBet(ctx, admin.ID, service.CreateBetInput{
		Title:         "Derby",
		Description:   "Who wins the derby",
		Cost:          decimal.NewFromInt(50),
		CommissionPct: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	require.True(t, bet.Commission.Equal(decimal.NewFromInt(5)))

	// Both players stake the cost
	_, err = betService.JoinBet(ctx, winner.ID, bet.ID)
	require.NoError(t, err)
	_, err = betService.JoinBet(ctx, loser.ID, bet.ID)
	require.NoError(t, err)

	// Clients cannot close bets
	_, err = betService.CloseBet(ctx, winner.ID, bet.ID, winner.ID)
	require.Error(t, err)
	assert.Equal(t, service.KindForbidden, service.KindOf(err))

	// Settlement happens atomically
	result, err := betService.CloseBet(ctx, admin.ID, bet.ID, winner.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Settled)
	assert.Equal(t, 10, result.PointsAwarded)

	t.Run("winner wallet gains the stake", func(t *testing.T) {
		statement, err := walletService.StatementFor(ctx, winner.ID)
		require.NoError(t, err)
		assert.True(t, statement.Balance.Equal(decimal.NewFromInt(50)), "balance was %s", statement.Balance)
	})

	t.Run("loser wallet loses the stake", func(t *testing.T) {
		statement, err := walletService.StatementFor(ctx, loser.ID)
		require.NoError(t, err)
		assert.True(t, statement.Balance.Equal(decimal.NewFromInt(-50)), "balance was %s", statement.Balance)
	})

	t.Run("admin wallet collects the commission", func(t *testing.T) {
		statement, err := walletService.StatementFor(ctx, admin.ID)
		require.NoError(t, err)
		assert.True(t, statement.Balance.Equal(decimal.NewFromInt(5)), "balance was %s", statement.Balance)
	})

	t.Run("winner is credited points", func(t *testing.T) {
		refreshed, err := profileRepo.GetByID(ctx, winner.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, refreshed.Points)
	})

	t.Run("second close is rejected", func(t *testing.T) {
		_, err := betService.CloseBet(ctx, admin.ID, bet.ID, winner.ID)
		require.Error(t, err)
		assert.Equal(t, service.KindConflict, service.KindOf(err))
	})

	t.Run("nothing is left to repair", func(t *testing.T) {
		repaired, err := betService.RepairSettlements(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, repaired)
	})
}

func TestFavoriteToggle_Concurrent_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(testDB.DB, eventBus)
	profileRepo := repository.NewProfileRepository(testDB.DB)
	betRepo := repository.NewBetRepository(testDB.DB)
	favoriteRepo := repository.NewFavoriteRepository(testDB.DB)

	favoriteService := service.NewFavoriteService(uowFactory, integrationConfig())

	admin := testutil.CreateTestAdmin("admin")
	require.NoError(t, profileRepo.Create(ctx, admin))

	bet := testutil.CreateTestBet(admin.ID, "Derby")
	require.NoError(t, betRepo.Create(ctx, bet))

	const users = 8
	profiles := make([]*models.Profile, users)
	for i := range profiles {
		profiles[i] = testutil.CreateTestProfile("fan")
		require.NoError(t, profileRepo.Create(ctx, profiles[i]))
	}

	// Every user toggles three times at once: on, off, on
	var wg sync.WaitGroup
	for _, p := range profiles {
		wg.Add(1)
		go func(userID uuid.UUID) {
			defer wg.Done()
			for i := 0; i < 3; i++ {
				_, err := favoriteService.Toggle(ctx, bet.ID, userID)
				assert.NoError(t, err)
			}
		}(p.ID)
	}
	wg.Wait()

	// The denormalized counter matches the actual rows exactly
	refreshed, err := betRepo.GetByID(ctx, bet.ID)
	require.NoError(t, err)
	rows, err := favoriteRepo.CountRows(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, rows, refreshed.FavoritesCount)
	// An odd number of toggles leaves every marker on
	assert.Equal(t, users, rows)
}
