package service

import (
	"context"
	"fmt"

	"bety/config"
	"bety/events"
	"bety/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// FavoriteService defines the interface for the favorites counter
type FavoriteService interface {
	// Toggle flips the favorite marker for (betID, userID) and adjusts the
	// bet's denormalized counter in the same transaction. A zero userID is
	// a silent no-op; this is an explicit guard, not an error path.
	Toggle(ctx context.Context, betID, userID uuid.UUID) (*models.FavoriteToggleResult, error)

	// ListForUser returns the bets the user currently favorites
	ListForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type favoriteService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
}

// NewFavoriteService creates a new favorite service
func NewFavoriteService(uowFactory UnitOfWorkFactory, cfg *config.Config) FavoriteService {
	return &favoriteService{
		uowFactory: uowFactory,
		config:     cfg,
	}
}

// Toggle flips the marker and the counter in one transaction, keeping
// favorites_count == count(rows) under any interleaving of toggles. Whether
// the toggle turned the favorite on or off is decided by which row
// operation actually changed something.
func (s *favoriteService) Toggle(ctx context.Context, betID, userID uuid.UUID) (*models.FavoriteToggleResult, error) {
	if userID == uuid.Nil {
		log.WithField("betId", betID).Debug("Favorite toggle without a user, ignoring")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bet, err := uow.BetRepository().GetByID(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	if bet == nil {
		return nil, notFoundf("bet %s not found", betID)
	}

	result := &models.FavoriteToggleResult{BetID: betID}

	deleted, err := uow.FavoriteRepository().Delete(ctx, betID, userID)
	if err != nil {
		return nil, err
	}

	if deleted {
		result.Favorited = false
		result.Count, err = uow.FavoriteRepository().DecrementCount(ctx, betID)
		if err != nil {
			return nil, err
		}
	} else {
		inserted, err := uow.FavoriteRepository().Insert(ctx, betID, userID)
		if err != nil {
			return nil, err
		}
		result.Favorited = true
		if inserted {
			result.Count, err = uow.FavoriteRepository().IncrementCount(ctx, betID)
			if err != nil {
				return nil, err
			}
		} else {
			// A concurrent toggle already inserted the row; the counter was
			// adjusted by whoever won, leave it alone
			result.Count = bet.FavoritesCount
		}
	}

	uow.EventBus().Publish(events.FavoriteToggledEvent{
		BetID:     betID,
		UserID:    userID,
		Favorited: result.Favorited,
		Count:     result.Count,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}

// ListForUser returns the bets the user currently favorites
func (s *favoriteService) ListForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if userID == uuid.Nil {
		return nil, nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	betIDs, err := uow.FavoriteRepository().ListBetIDsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return betIDs, nil
}
