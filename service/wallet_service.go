package service

import (
	"context"
	"fmt"

	"bety/database"
	"bety/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletService derives a balance and transaction history from ledger
// state. It is a pure projection: nothing here is persisted, every call
// recomputes from the current bet and participation rows.
type WalletService interface {
	StatementFor(ctx context.Context, profileID uuid.UUID) (*models.WalletStatement, error)
}

type walletService struct {
	uowFactory UnitOfWorkFactory
}

// NewWalletService creates a new wallet service
func NewWalletService(uowFactory UnitOfWorkFactory) WalletService {
	return &walletService{uowFactory: uowFactory}
}

// StatementFor computes the statement for the profile's role. Clients sum
// signed participation outcomes; administrators sum the commissions of the
// bets they created. The read retries with backoff since it is idempotent.
func (s *walletService) StatementFor(ctx context.Context, profileID uuid.UUID) (*models.WalletStatement, error) {
	var statement *models.WalletStatement

	err := database.WithReadRetry(ctx, func() error {
		var err error
		statement, err = s.computeStatement(ctx, profileID)
		if err != nil && KindOf(err) != KindTransient {
			// Not-found and validation failures will not heal with time
			return backoff.Permanent(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	return statement, nil
}

func (s *walletService) computeStatement(ctx context.Context, profileID uuid.UUID) (*models.WalletStatement, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	profile, err := uow.ProfileRepository().GetByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		return nil, notFoundf("profile %s not found", profileID)
	}

	var entries []*models.WalletEntry
	switch profile.Role {
	case models.RoleClient:
		entries, err = uow.WalletRepository().ClientEntries(ctx, profileID)
	case models.RoleAdmin:
		entries, err = uow.WalletRepository().AdminEntries(ctx, profileID)
	default:
		return nil, fmt.Errorf("unknown role %q on profile %s", profile.Role, profileID)
	}
	if err != nil {
		return nil, err
	}

	balance := decimal.Zero
	for _, e := range entries {
		balance = balance.Add(e.Amount)
	}

	return &models.WalletStatement{
		ProfileID: profileID,
		Role:      profile.Role,
		Balance:   balance,
		Entries:   entries,
	}, nil
}
