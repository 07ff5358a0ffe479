package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BetStatus represents the lifecycle state of a bet.
type BetStatus string

const (
	BetStatusActive BetStatus = "ACTIVE"
	BetStatusClosed BetStatus = "CLOSED"
)

// Bet represents a wager pool with a fixed entry cost. Commission is stored
// as an absolute currency amount, computed from a percentage at creation.
type Bet struct {
	ID             uuid.UUID       `db:"id"`
	Title          string          `db:"title"`
	Description    string          `db:"description"`
	ImageURL       *string         `db:"image_url"`
	Cost           decimal.Decimal `db:"cost"`
	Commission     decimal.Decimal `db:"commission"`
	Status         BetStatus       `db:"status"`
	CreatedBy      uuid.UUID       `db:"created_by"`
	WinnerID       *uuid.UUID      `db:"winner_id"`
	FavoritesCount int             `db:"favorites_count"`
	CreatedAt      time.Time       `db:"created_at"`
	EndsAt         *time.Time      `db:"ends_at"`
	ClosedAt       *time.Time      `db:"closed_at"`
}

// IsActive checks if the bet is still open.
func (b *Bet) IsActive() bool {
	return b.Status == BetStatusActive
}

// IsClosed checks if the bet has been settled. A closed bet never
// transitions back to active.
func (b *Bet) IsClosed() bool {
	return b.Status == BetStatusClosed
}

// HasEnded checks if the bet's end time, when set, has passed. Ended bets
// stay ACTIVE until an administrator closes them; the end time is only
// enforced when joining.
func (b *Bet) HasEnded(now time.Time) bool {
	return b.EndsAt != nil && now.After(*b.EndsAt)
}

// IsJoinable checks whether a new participation may be created.
func (b *Bet) IsJoinable(now time.Time) bool {
	return b.IsActive() && !b.HasEnded(now)
}

// ParticipationStatus represents the settlement outcome of a participation.
type ParticipationStatus string

const (
	ParticipationPending ParticipationStatus = "PENDING"
	ParticipationWon     ParticipationStatus = "WON"
	ParticipationLost    ParticipationStatus = "LOST"
)

// Participation represents one player's stake in one bet. The amount is
// frozen at join time and never changes, even if the bet's cost is later
// edited. Status is mutated exactly once, by settlement.
type Participation struct {
	ID        uuid.UUID           `db:"id"`
	BetID     uuid.UUID           `db:"bet_id"`
	PlayerID  uuid.UUID           `db:"player_id"`
	Amount    decimal.Decimal     `db:"amount"`
	Status    ParticipationStatus `db:"status"`
	CreatedAt time.Time           `db:"created_at"`
	UpdatedAt time.Time           `db:"updated_at"`
}

// IsSettled checks whether the participation has a final outcome.
func (p *Participation) IsSettled() bool {
	return p.Status == ParticipationWon || p.Status == ParticipationLost
}

// BetDetail combines a bet with its participations.
type BetDetail struct {
	Bet            *Bet
	Participations []*Participation
}

// Participant returns the participation for the given player, or nil.
func (d *BetDetail) Participant(playerID uuid.UUID) *Participation {
	for _, p := range d.Participations {
		if p.PlayerID == playerID {
			return p
		}
	}
	return nil
}

// SettlementResult describes the outcome of closing a bet.
type SettlementResult struct {
	Bet           *Bet
	Winner        *Participation
	Losers        []*Participation
	Settled       int
	PointsAwarded int
}

// BetPatch describes a partial administrator edit of a bet. Nil fields are
// left untouched. Changing Cost or CommissionPct recomputes the stored
// absolute commission but never touches existing participation amounts.
type BetPatch struct {
	Title         *string
	Description   *string
	ImageURL      *string
	Cost          *decimal.Decimal
	CommissionPct *decimal.Decimal
	EndsAt        *time.Time
	ClearEndsAt   bool
}
