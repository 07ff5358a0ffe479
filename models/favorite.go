package models

import (
	"time"

	"github.com/google/uuid"
)

// Favorite marks a bet as bookmarked by a user. At most one row exists per
// (bet, user) pair; the bet's favorites_count is adjusted atomically with
// every insert and delete.
type Favorite struct {
	BetID     uuid.UUID `db:"bet_id"`
	UserID    uuid.UUID `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

// FavoriteToggleResult reports the state after a toggle.
type FavoriteToggleResult struct {
	BetID     uuid.UUID
	Favorited bool
	Count     int
}
