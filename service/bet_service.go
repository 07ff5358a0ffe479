package service

import (
	"context"
	"fmt"
	"time"

	"bety/config"
	"bety/events"
	"bety/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var oneHundred = decimal.NewFromInt(100)

// CreateBetInput carries the fields of a new bet. The commission is given
// as a percentage of the cost; the absolute amount is computed and stored.
type CreateBetInput struct {
	Title         string
	Description   string
	ImageURL      *string
	Cost          decimal.Decimal
	CommissionPct decimal.Decimal
	EndsAt        *time.Time
}

// BetService defines the interface for bet ledger operations
type BetService interface {
	// CreateBet creates a new ACTIVE bet; administrator only
	CreateBet(ctx context.Context, actorID uuid.UUID, input CreateBetInput) (*models.Bet, error)

	// JoinBet stakes the bet's cost for the actor on an ACTIVE, unexpired bet
	JoinBet(ctx context.Context, actorID, betID uuid.UUID) (*models.Participation, error)

	// EditBet patches bet fields; administrator only. Existing participation
	// amounts stay frozen.
	EditBet(ctx context.Context, actorID, betID uuid.UUID, patch models.BetPatch) (*models.Bet, error)

	// CloseBet settles the bet atomically: status flips to CLOSED, the
	// winner's participation becomes WON and all others LOST
	CloseBet(ctx context.Context, actorID, betID, winnerID uuid.UUID) (*models.SettlementResult, error)

	// DeleteBet removes a bet and, by cascade, its participations and
	// favorites; administrator only
	DeleteBet(ctx context.Context, actorID, betID uuid.UUID) error

	// ListBets returns all bets newest first
	ListBets(ctx context.Context) ([]*models.Bet, error)

	// GetBetDetail returns a bet with its participations
	GetBetDetail(ctx context.Context, betID uuid.UUID) (*models.BetDetail, error)

	// ListParticipations returns the actor's participations
	ListParticipations(ctx context.Context, playerID uuid.UUID) ([]*models.Participation, error)

	// RepairSettlements finds CLOSED bets with PENDING participations and
	// resumes their settlement using the winner recorded at close time.
	// Returns the number of bets repaired.
	RepairSettlements(ctx context.Context) (int, error)
}

type betService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
}

// NewBetService creates a new bet service
func NewBetService(uowFactory UnitOfWorkFactory, cfg *config.Config) BetService {
	return &betService{
		uowFactory: uowFactory,
		config:     cfg,
	}
}

// requireAdmin loads the actor inside the current unit of work and checks
// the administrator role with an exhaustive role switch.
func requireAdmin(ctx context.Context, uow UnitOfWork, actorID uuid.UUID) (*models.Profile, error) {
	actor, err := uow.ProfileRepository().GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get actor: %w", err)
	}
	if actor == nil {
		return nil, notFoundf("profile %s not found", actorID)
	}

	switch actor.Role {
	case models.RoleAdmin:
		return actor, nil
	case models.RoleClient:
		return nil, forbiddenf("operation requires the administrator role")
	default:
		return nil, fmt.Errorf("unknown role %q on profile %s", actor.Role, actor.ID)
	}
}

// CreateBet creates a new ACTIVE bet
func (s *betService) CreateBet(ctx context.Context, actorID uuid.UUID, input CreateBetInput) (*models.Bet, error) {
	// Validate before any remote call
	if input.Title == "" {
		return nil, validationf("title cannot be empty")
	}
	if input.Description == "" {
		return nil, validationf("description cannot be empty")
	}
	if !input.Cost.IsPositive() {
		return nil, validationf("cost must be positive")
	}
	if input.CommissionPct.IsNegative() || input.CommissionPct.GreaterThan(oneHundred) {
		return nil, validationf("commission percentage must be between 0 and 100")
	}
	if input.EndsAt != nil && !input.EndsAt.After(time.Now()) {
		return nil, validationf("end date must be in the future")
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	actor, err := requireAdmin(ctx, uow, actorID)
	if err != nil {
		return nil, err
	}

	// Commission is stored as an absolute amount, e.g. 10% of 50 stores 5
	commission := input.CommissionPct.Div(oneHundred).Mul(input.Cost)

	bet := &models.Bet{
		Title:       input.Title,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		Cost:        input.Cost,
		Commission:  commission,
		Status:      models.BetStatusActive,
		CreatedBy:   actor.ID,
		EndsAt:      input.EndsAt,
	}

	if err := uow.BetRepository().Create(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to create bet: %w", err)
	}

	uow.EventBus().Publish(events.BetCreatedEvent{BetID: bet.ID, CreatedBy: actor.ID})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"betId": bet.ID,
		"cost":  bet.Cost,
	}).Info("Bet created")

	return bet, nil
}

// JoinBet stakes the bet's cost for the actor. The stake amount is frozen
// at join time.
func (s *betService) JoinBet(ctx context.Context, actorID, betID uuid.UUID) (*models.Participation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	actor, err := uow.ProfileRepository().GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get actor: %w", err)
	}
	if actor == nil {
		return nil, notFoundf("profile %s not found", actorID)
	}

	bet, err := uow.BetRepository().GetByID(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	if bet == nil {
		return nil, notFoundf("bet %s not found", betID)
	}
	if !bet.IsJoinable(time.Now()) {
		return nil, ErrBetNotJoinable
	}

	existing, err := uow.BetRepository().GetParticipation(ctx, betID, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing participation: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyJoined
	}

	participation := &models.Participation{
		BetID:    betID,
		PlayerID: actorID,
		Amount:   bet.Cost,
		Status:   models.ParticipationPending,
	}

	// The unique constraint catches a concurrent duplicate join that the
	// check above could not see
	if err := uow.BetRepository().CreateParticipation(ctx, participation); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return participation, nil
}

// EditBet patches bet fields. Changing cost or commission percentage
// recomputes the stored absolute commission; amounts of existing
// participations are frozen at join time and never rewritten.
func (s *betService) EditBet(ctx context.Context, actorID, betID uuid.UUID, patch models.BetPatch) (*models.Bet, error) {
	if patch.Title != nil && *patch.Title == "" {
		return nil, validationf("title cannot be empty")
	}
	if patch.Cost != nil && !patch.Cost.IsPositive() {
		return nil, validationf("cost must be positive")
	}
	if patch.CommissionPct != nil && (patch.CommissionPct.IsNegative() || patch.CommissionPct.GreaterThan(oneHundred)) {
		return nil, validationf("commission percentage must be between 0 and 100")
	}
	if patch.EndsAt != nil && !patch.EndsAt.After(time.Now()) {
		return nil, validationf("end date must be in the future")
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := requireAdmin(ctx, uow, actorID); err != nil {
		return nil, err
	}

	bet, err := uow.BetRepository().GetByID(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	if bet == nil {
		return nil, notFoundf("bet %s not found", betID)
	}
	if bet.IsClosed() {
		return nil, &Error{Kind: KindConflict, Message: "closed bets cannot be edited"}
	}

	if patch.Title != nil {
		bet.Title = *patch.Title
	}
	if patch.Description != nil {
		bet.Description = *patch.Description
	}
	if patch.ImageURL != nil {
		bet.ImageURL = patch.ImageURL
	}
	if patch.ClearEndsAt {
		bet.EndsAt = nil
	} else if patch.EndsAt != nil {
		bet.EndsAt = patch.EndsAt
	}

	if patch.Cost != nil || patch.CommissionPct != nil {
		cost := bet.Cost
		if patch.Cost != nil {
			cost = *patch.Cost
		}
		// Recover the percentage from the stored absolute commission when
		// only the cost changes
		pct := decimal.Zero
		if !bet.Cost.IsZero() {
			pct = bet.Commission.Div(bet.Cost).Mul(oneHundred)
		}
		if patch.CommissionPct != nil {
			pct = *patch.CommissionPct
		}
		bet.Cost = cost
		bet.Commission = pct.Div(oneHundred).Mul(cost)
	}

	if err := uow.BetRepository().Update(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to update bet: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return bet, nil
}

// CloseBet settles the bet. The status flip, winner record and every
// participation outcome commit together, so a crash can never leave the bet
// CLOSED with stakes still PENDING and no way to finish the job.
func (s *betService) CloseBet(ctx context.Context, actorID, betID, winnerID uuid.UUID) (*models.SettlementResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := requireAdmin(ctx, uow, actorID); err != nil {
		return nil, err
	}

	detail, err := uow.BetRepository().GetDetailByID(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet detail: %w", err)
	}
	if detail == nil {
		return nil, notFoundf("bet %s not found", betID)
	}
	bet := detail.Bet
	if !bet.IsActive() {
		return nil, &Error{Kind: KindConflict, Message: "bet is already closed"}
	}

	result := &models.SettlementResult{Bet: bet}
	hasParticipants := len(detail.Participations) > 0

	var recordedWinner *uuid.UUID
	if hasParticipants {
		winner := detail.Participant(winnerID)
		if winner == nil {
			return nil, validationf("winner %s is not a participant of bet %s", winnerID, betID)
		}
		result.Winner = winner
		recordedWinner = &winnerID
	}

	closedAt := time.Now()
	closed, err := uow.BetRepository().MarkClosed(ctx, betID, recordedWinner, closedAt)
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, &Error{Kind: KindConflict, Message: "bet is already closed"}
	}
	bet.Status = models.BetStatusClosed
	bet.WinnerID = recordedWinner
	bet.ClosedAt = &closedAt

	if hasParticipants {
		settled, err := uow.BetRepository().SettleParticipations(ctx, betID, winnerID)
		if err != nil {
			return nil, err
		}
		result.Settled = int(settled)

		for _, p := range detail.Participations {
			if p.PlayerID == winnerID {
				p.Status = models.ParticipationWon
			} else {
				p.Status = models.ParticipationLost
				result.Losers = append(result.Losers, p)
			}
		}

		// Winner points credit commits with the settlement
		if s.config.WinnerPoints > 0 {
			if err := uow.ProfileRepository().AddPoints(ctx, winnerID, s.config.WinnerPoints); err != nil {
				return nil, fmt.Errorf("failed to award winner points: %w", err)
			}
			result.PointsAwarded = s.config.WinnerPoints
		}
	}

	uow.EventBus().Publish(events.BetClosedEvent{
		BetID:        betID,
		WinnerID:     recordedWinner,
		Participants: len(detail.Participations),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"betId":        betID,
		"winnerId":     winnerID,
		"participants": len(detail.Participations),
	}).Info("Bet closed and settled")

	return result, nil
}

// DeleteBet removes a bet along with its participations and favorites
func (s *betService) DeleteBet(ctx context.Context, actorID, betID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := requireAdmin(ctx, uow, actorID); err != nil {
		return err
	}

	bet, err := uow.BetRepository().GetByID(ctx, betID)
	if err != nil {
		return fmt.Errorf("failed to get bet: %w", err)
	}
	if bet == nil {
		return notFoundf("bet %s not found", betID)
	}

	if err := uow.BetRepository().Delete(ctx, betID); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListBets returns all bets newest first
func (s *betService) ListBets(ctx context.Context) ([]*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bets, err := uow.BetRepository().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}

	return bets, nil
}

// GetBetDetail returns a bet with its participations
func (s *betService) GetBetDetail(ctx context.Context, betID uuid.UUID) (*models.BetDetail, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	detail, err := uow.BetRepository().GetDetailByID(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet detail: %w", err)
	}
	if detail == nil {
		return nil, notFoundf("bet %s not found", betID)
	}

	return detail, nil
}

// ListParticipations returns a player's participations
func (s *betService) ListParticipations(ctx context.Context, playerID uuid.UUID) ([]*models.Participation, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	participations, err := uow.BetRepository().ListParticipationsByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participations: %w", err)
	}

	return participations, nil
}

// RepairSettlements resumes interrupted settlements. A CLOSED bet with
// PENDING participations is treated as requiring repair, never as already
// settled. Bets closed without a recorded winner cannot be repaired
// automatically and are logged for an administrator.
func (s *betService) RepairSettlements(ctx context.Context) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	broken, err := uow.BetRepository().ListUnsettled(ctx)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, bet := range broken {
		if bet.WinnerID == nil {
			log.WithField("betId", bet.ID).Error("Closed bet has pending participations but no recorded winner; manual intervention required")
			continue
		}

		settled, err := uow.BetRepository().SettleParticipations(ctx, bet.ID, *bet.WinnerID)
		if err != nil {
			return repaired, err
		}

		log.WithFields(log.Fields{
			"betId":   bet.ID,
			"settled": settled,
		}).Warn("Repaired interrupted settlement")
		repaired++
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return repaired, nil
}
