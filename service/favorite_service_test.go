package service

import (
	"context"
	"testing"

	"bety/events"
	"bety/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func createTestFavoriteService() (FavoriteService, *MockUnitOfWork, *MockBetRepository, *MockFavoriteRepository) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockBetRepo := new(MockBetRepository)
	mockFavoriteRepo := new(MockFavoriteRepository)

	mockUoW.SetRepositories(nil, mockBetRepo, mockFavoriteRepo, nil, nil)
	mockFactory.On("Create").Return(mockUoW)

	service := NewFavoriteService(mockFactory, testConfig())
	return service, mockUoW, mockBetRepo, mockFavoriteRepo
}

func TestToggle_AddsFavoriteAndBumpsCounter(t *testing.T) {
	ctx := context.Background()
	service, mockUoW, mockBetRepo, mockFavoriteRepo := createTestFavoriteService()
	setupTransactionMocks(mockUoW)

	userID := uuid.New()
	bet := &models.Bet{ID: uuid.New(), Cost: decimal.NewFromInt(10), Status: models.BetStatusActive}

	mockBetRepo.On("GetByID", mock.Anything, bet.ID).Return(bet, nil)
	mockFavoriteRepo.On("Delete", mock.Anything, bet.ID, userID).Return(false, nil)
	mockFavoriteRepo.On("Insert", mock.Anything, bet.ID, userID).Return(true, nil)
	mockFavoriteRepo.On("IncrementCount", mock.Anything, bet.ID).Return(1, nil)

	result, err := service.Toggle(ctx, bet.ID, userID)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Favorited)
	assert.Equal(t, 1, result.Count)

	published := mockUoW.PublishedEvents()
	require.Len(t, published, 1)
	toggled, ok := published[0].(events.FavoriteToggledEvent)
	require.True(t, ok)
	assert.True(t, toggled.Favorited)
	assert.Equal(t, 1, toggled.Count)
}

func TestToggle_RemovesFavoriteAndLowersCounter(t *testing.T) {
	ctx := context.Background()
	service, mockUoW, mockBetRepo, mockFavoriteRepo := createTestFavoriteService()
	setupTransactionMocks(mockUoW)

	userID := uuid.New()
	bet := &models.Bet{ID: uuid.New(), Status: models.BetStatusActive, FavoritesCount: 1}

	mockBetRepo.On("GetByID", mock.Anything, bet.ID).Return(bet, nil)
	mockFavoriteRepo.On("Delete", mock.Anything, bet.ID, userID).Return(true, nil)
	mockFavoriteRepo.On("DecrementCount", mock.Anything, bet.ID).Return(0, nil)

	result, err := service.Toggle(ctx, bet.ID, userID)

	require.NoError(t, err)
	assert.False(t, result.Favorited)
	assert.Equal(t, 0, result.Count)
	mockFavoriteRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)
}

func TestToggle_ConcurrentInsertLeavesCounterAlone(t *testing.T) {
	ctx := context.Background()
	service, mockUoW, mockBetRepo, mockFavoriteRepo := createTestFavoriteService()
	setupTransactionMocks(mockUoW)

	userID := uuid.New()
	bet := &models.Bet{ID: uuid.New(), Status: models.BetStatusActive, FavoritesCount: 3}

	mockBetRepo.On("GetByID", mock.Anything, bet.ID).Return(bet, nil)
	mockFavoriteRepo.On("Delete", mock.Anything, bet.ID, userID).Return(false, nil)
	// The row already exists: a concurrent toggle won and already bumped
	// the counter
	mockFavoriteRepo.On("Insert", mock.Anything, bet.ID, userID).Return(false, nil)

	result, err := service.Toggle(ctx, bet.ID, userID)

	require.NoError(t, err)
	assert.True(t, result.Favorited)
	assert.Equal(t, 3, result.Count)
	mockFavoriteRepo.AssertNotCalled(t, "IncrementCount", mock.Anything, mock.Anything)
}

func TestToggle_WithoutUserIsANoOp(t *testing.T) {
	ctx := context.Background()
	service, _, mockBetRepo, _ := createTestFavoriteService()

	result, err := service.Toggle(ctx, uuid.New(), uuid.Nil)

	assert.NoError(t, err)
	assert.Nil(t, result)
	mockBetRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestToggle_UnknownBet(t *testing.T) {
	ctx := context.Background()
	service, mockUoW, mockBetRepo, _ := createTestFavoriteService()
	setupTransactionMocks(mockUoW)

	betID := uuid.New()
	mockBetRepo.On("GetByID", mock.Anything, betID).Return(nil, nil)

	result, err := service.Toggle(ctx, betID, uuid.New())

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, KindNotFound, KindOf(err))
}
