package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletEntry is one line of a wallet statement: a participation outcome for
// clients, or a created bet's commission for administrators. Amount is
// signed: positive for WON and commissions, negative for LOST, zero while
// PENDING.
type WalletEntry struct {
	BetID     uuid.UUID
	BetTitle  string
	Amount    decimal.Decimal
	Status    ParticipationStatus
	CreatedAt time.Time
}

// WalletStatement is the derived balance and transaction history for one
// profile. It is recomputed on demand from bet and participation rows and is
// never persisted.
type WalletStatement struct {
	ProfileID uuid.UUID
	Role      Role
	Balance   decimal.Decimal
	Entries   []*WalletEntry
}
