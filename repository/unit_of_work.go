package repository

import (
	"context"
	"fmt"

	"bety/database"
	"bety/events"
	"bety/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	profileRepo      service.ProfileRepository
	betRepo          service.BetRepository
	favoriteRepo     service.FavoriteRepository
	chatRepo         service.ChatRepository
	walletRepo       service.WalletRepository
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.profileRepo = newProfileRepositoryWithTx(tx)
	u.betRepo = newBetRepositoryWithTx(tx)
	u.favoriteRepo = newFavoriteRepositoryWithTx(tx)
	u.chatRepo = newChatRepositoryWithTx(tx)
	u.walletRepo = newWalletRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction and flushes pending events afterwards, so
// subscribers only ever observe committed state.
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction and discards pending events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

// ProfileRepository returns the profile repository for this unit of work
func (u *unitOfWork) ProfileRepository() service.ProfileRepository {
	if u.profileRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.profileRepo
}

// BetRepository returns the bet repository for this unit of work
func (u *unitOfWork) BetRepository() service.BetRepository {
	if u.betRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.betRepo
}

// FavoriteRepository returns the favorite repository for this unit of work
func (u *unitOfWork) FavoriteRepository() service.FavoriteRepository {
	if u.favoriteRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.favoriteRepo
}

// ChatRepository returns the chat repository for this unit of work
func (u *unitOfWork) ChatRepository() service.ChatRepository {
	if u.chatRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.chatRepo
}

// WalletRepository returns the wallet repository for this unit of work
func (u *unitOfWork) WalletRepository() service.WalletRepository {
	if u.walletRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.walletRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
