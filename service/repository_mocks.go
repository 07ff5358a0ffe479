package service

import (
	"context"
	"sync"
	"time"

	"bety/events"
	"bety/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockProfileRepository is a mock implementation of ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockProfileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockProfileRepository) Update(ctx context.Context, profile *models.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockProfileRepository) List(ctx context.Context, excludeID uuid.UUID) ([]*models.Profile, error) {
	args := m.Called(ctx, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Profile), args.Error(1)
}

func (m *MockProfileRepository) AddPoints(ctx context.Context, id uuid.UUID, delta int) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

// MockBetRepository is a mock implementation of BetRepository
type MockBetRepository struct {
	mock.Mock
}

func (m *MockBetRepository) Create(ctx context.Context, bet *models.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBetRepository) GetDetailByID(ctx context.Context, id uuid.UUID) (*models.BetDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BetDetail), args.Error(1)
}

func (m *MockBetRepository) List(ctx context.Context) ([]*models.Bet, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) Update(ctx context.Context, bet *models.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBetRepository) MarkClosed(ctx context.Context, betID uuid.UUID, winnerID *uuid.UUID, closedAt time.Time) (bool, error) {
	args := m.Called(ctx, betID, winnerID, closedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockBetRepository) CreateParticipation(ctx context.Context, p *models.Participation) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockBetRepository) GetParticipation(ctx context.Context, betID, playerID uuid.UUID) (*models.Participation, error) {
	args := m.Called(ctx, betID, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Participation), args.Error(1)
}

func (m *MockBetRepository) ListParticipationsByBet(ctx context.Context, betID uuid.UUID) ([]*models.Participation, error) {
	args := m.Called(ctx, betID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Participation), args.Error(1)
}

func (m *MockBetRepository) ListParticipationsByPlayer(ctx context.Context, playerID uuid.UUID) ([]*models.Participation, error) {
	args := m.Called(ctx, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Participation), args.Error(1)
}

func (m *MockBetRepository) SettleParticipations(ctx context.Context, betID, winnerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, betID, winnerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBetRepository) ListUnsettled(ctx context.Context) ([]*models.Bet, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

// MockFavoriteRepository is a mock implementation of FavoriteRepository
type MockFavoriteRepository struct {
	mock.Mock
}

func (m *MockFavoriteRepository) Insert(ctx context.Context, betID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, betID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFavoriteRepository) Delete(ctx context.Context, betID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, betID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFavoriteRepository) IncrementCount(ctx context.Context, betID uuid.UUID) (int, error) {
	args := m.Called(ctx, betID)
	return args.Int(0), args.Error(1)
}

func (m *MockFavoriteRepository) DecrementCount(ctx context.Context, betID uuid.UUID) (int, error) {
	args := m.Called(ctx, betID)
	return args.Int(0), args.Error(1)
}

func (m *MockFavoriteRepository) ListBetIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockFavoriteRepository) CountRows(ctx context.Context, betID uuid.UUID) (int, error) {
	args := m.Called(ctx, betID)
	return args.Int(0), args.Error(1)
}

// MockChatRepository is a mock implementation of ChatRepository
type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) GetOrCreate(ctx context.Context, userA, userB uuid.UUID) (*models.Chat, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockChatRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockChatRepository) ListOverviewsByUser(ctx context.Context, userID uuid.UUID) ([]*models.ChatOverview, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ChatOverview), args.Error(1)
}

func (m *MockChatRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockChatRepository) GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockChatRepository) ListMessages(ctx context.Context, chatID uuid.UUID) ([]*models.Message, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Message), args.Error(1)
}

func (m *MockChatRepository) SetText(ctx context.Context, messageID uuid.UUID, text string) error {
	args := m.Called(ctx, messageID, text)
	return args.Error(0)
}

func (m *MockChatRepository) MarkSeen(ctx context.Context, messageID uuid.UUID) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MockChatRepository) MarkDeleted(ctx context.Context, messageID uuid.UUID) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

// MockWalletRepository is a mock implementation of WalletRepository
type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) ClientEntries(ctx context.Context, playerID uuid.UUID) ([]*models.WalletEntry, error) {
	args := m.Called(ctx, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WalletEntry), args.Error(1)
}

func (m *MockWalletRepository) AdminEntries(ctx context.Context, adminID uuid.UUID) ([]*models.WalletEntry, error) {
	args := m.Called(ctx, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WalletEntry), args.Error(1)
}

// RecordingPublisher captures published events for assertions
type RecordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *RecordingPublisher) Publish(event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

// Events returns the events published so far
func (p *RecordingPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Event, len(p.events))
	copy(out, p.events)
	return out
}

// MockUnitOfWork is a mock implementation of UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
	profileRepo  ProfileRepository
	betRepo      BetRepository
	favoriteRepo FavoriteRepository
	chatRepo     ChatRepository
	walletRepo   WalletRepository
	publisher    *RecordingPublisher
}

// SetRepositories configures the repositories this unit of work returns
func (m *MockUnitOfWork) SetRepositories(profiles ProfileRepository, bets BetRepository, favorites FavoriteRepository, chats ChatRepository, wallets WalletRepository) {
	m.profileRepo = profiles
	m.betRepo = bets
	m.favoriteRepo = favorites
	m.chatRepo = chats
	m.walletRepo = wallets
	m.publisher = &RecordingPublisher{}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) ProfileRepository() ProfileRepository {
	return m.profileRepo
}

func (m *MockUnitOfWork) BetRepository() BetRepository {
	return m.betRepo
}

func (m *MockUnitOfWork) FavoriteRepository() FavoriteRepository {
	return m.favoriteRepo
}

func (m *MockUnitOfWork) ChatRepository() ChatRepository {
	return m.chatRepo
}

func (m *MockUnitOfWork) WalletRepository() WalletRepository {
	return m.walletRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	if m.publisher == nil {
		m.publisher = &RecordingPublisher{}
	}
	return m.publisher
}

// PublishedEvents returns the events services published through this unit of
// work
func (m *MockUnitOfWork) PublishedEvents() []events.Event {
	return m.EventBus().(*RecordingPublisher).Events()
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
