package service

import (
	"context"
	"time"

	"bety/events"
	"bety/models"

	"github.com/google/uuid"
)

// ProfileRepository defines the interface for profile data access
type ProfileRepository interface {
	// Create inserts a new profile, assigning its id and timestamps
	Create(ctx context.Context, profile *models.Profile) error

	// GetByID retrieves a profile by id, returning nil when absent
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)

	// GetByEmail retrieves a profile by email, returning nil when absent
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)

	// Update persists mutable profile fields
	Update(ctx context.Context, profile *models.Profile) error

	// List returns all profiles except the given one
	List(ctx context.Context, excludeID uuid.UUID) ([]*models.Profile, error)

	// AddPoints atomically adjusts a profile's points counter
	AddPoints(ctx context.Context, id uuid.UUID, delta int) error
}

// BetRepository defines the interface for bet and participation data access
type BetRepository interface {
	// Create inserts a new bet, assigning its id and created_at
	Create(ctx context.Context, bet *models.Bet) error

	// GetByID retrieves a bet by id, returning nil when absent
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bet, error)

	// GetDetailByID retrieves a bet with all its participations
	GetDetailByID(ctx context.Context, id uuid.UUID) (*models.BetDetail, error)

	// List returns all bets newest first
	List(ctx context.Context) ([]*models.Bet, error)

	// Update persists mutable bet fields
	Update(ctx context.Context, bet *models.Bet) error

	// Delete removes a bet; participations and favorites cascade
	Delete(ctx context.Context, id uuid.UUID) error

	// MarkClosed flips an ACTIVE bet to CLOSED, durably recording the
	// winner. Returns false when the bet was not ACTIVE.
	MarkClosed(ctx context.Context, betID uuid.UUID, winnerID *uuid.UUID, closedAt time.Time) (bool, error)

	// CreateParticipation inserts a participation; ErrAlreadyJoined when
	// the (bet, player) pair already exists
	CreateParticipation(ctx context.Context, p *models.Participation) error

	// GetParticipation retrieves one participation, nil when absent
	GetParticipation(ctx context.Context, betID, playerID uuid.UUID) (*models.Participation, error)

	// ListParticipationsByBet returns all participations for a bet
	ListParticipationsByBet(ctx context.Context, betID uuid.UUID) ([]*models.Participation, error)

	// ListParticipationsByPlayer returns all participations for a player
	ListParticipationsByPlayer(ctx context.Context, playerID uuid.UUID) ([]*models.Participation, error)

	// SettleParticipations resolves every PENDING participation of a bet in
	// one statement: WON for the winner, LOST for everyone else. Returns
	// the number of rows settled.
	SettleParticipations(ctx context.Context, betID, winnerID uuid.UUID) (int64, error)

	// ListUnsettled returns CLOSED bets that still have PENDING
	// participations (interrupted settlements needing repair)
	ListUnsettled(ctx context.Context) ([]*models.Bet, error)
}

// FavoriteRepository defines the interface for favorite marker data access.
// Row changes and counter arithmetic run in the same unit of work.
type FavoriteRepository interface {
	// Insert adds the marker; false when it already existed
	Insert(ctx context.Context, betID, userID uuid.UUID) (bool, error)

	// Delete removes the marker; false when it was absent
	Delete(ctx context.Context, betID, userID uuid.UUID) (bool, error)

	// IncrementCount atomically bumps the bet's denormalized counter,
	// returning the new value
	IncrementCount(ctx context.Context, betID uuid.UUID) (int, error)

	// DecrementCount atomically lowers the counter, never below zero,
	// returning the new value
	DecrementCount(ctx context.Context, betID uuid.UUID) (int, error)

	// ListBetIDsByUser returns the bets the user currently favorites
	ListBetIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	// CountRows returns the number of favorite rows for a bet
	CountRows(ctx context.Context, betID uuid.UUID) (int, error)
}

// ChatRepository defines the interface for chat and message data access
type ChatRepository interface {
	// GetOrCreate resolves the unordered pair to its single chat row,
	// creating it when absent. Concurrent calls collapse to one row.
	GetOrCreate(ctx context.Context, userA, userB uuid.UUID) (*models.Chat, error)

	// GetByID retrieves a chat by id, nil when absent
	GetByID(ctx context.Context, id uuid.UUID) (*models.Chat, error)

	// ListOverviewsByUser returns the user's chats with participant names
	// and the latest message
	ListOverviewsByUser(ctx context.Context, userID uuid.UUID) ([]*models.ChatOverview, error)

	// CreateMessage inserts a message; id and created_at are assigned by
	// the store
	CreateMessage(ctx context.Context, m *models.Message) error

	// GetMessage retrieves a message by id, nil when absent
	GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error)

	// ListMessages returns all messages of a chat ordered by created_at
	// ascending, ties broken by id
	ListMessages(ctx context.Context, chatID uuid.UUID) ([]*models.Message, error)

	// SetText updates a message body and stamps edited_at
	SetText(ctx context.Context, messageID uuid.UUID, text string) error

	// MarkSeen stamps seen_at if not already set
	MarkSeen(ctx context.Context, messageID uuid.UUID) error

	// MarkDeleted stamps deleted_at; the row is never removed
	MarkDeleted(ctx context.Context, messageID uuid.UUID) error
}

// WalletRepository defines the read-side queries behind the wallet
// projection
type WalletRepository interface {
	// ClientEntries returns a player's participations joined with bet
	// titles, amounts signed by outcome
	ClientEntries(ctx context.Context, playerID uuid.UUID) ([]*models.WalletEntry, error)

	// AdminEntries returns the commissions of bets created by an
	// administrator
	AdminEntries(ctx context.Context, adminID uuid.UUID) ([]*models.WalletEntry, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction and discards pending events
	Rollback() error

	// Repository getters
	ProfileRepository() ProfileRepository
	BetRepository() BetRepository
	FavoriteRepository() FavoriteRepository
	ChatRepository() ChatRepository
	WalletRepository() WalletRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// BlobStore abstracts the object-storage collaborator: upload a blob under
// a path and resolve a public URL for it.
type BlobStore interface {
	Upload(ctx context.Context, path string, contentType string, data []byte) (string, error)
	PublicURL(path string) string
}
