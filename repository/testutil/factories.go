package testutil

import (
	"fmt"
	"time"

	"bety/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateTestProfile creates a client profile with default values
func CreateTestProfile(name string) *models.Profile {
	return &models.Profile{
		Name:         name,
		Email:        fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		PasswordHash: "$2a$04$test.hash.placeholder.value.for.tests",
		Role:         models.RoleClient,
	}
}

// CreateTestAdmin creates an administrator profile with default values
func CreateTestAdmin(name string) *models.Profile {
	profile := CreateTestProfile(name)
	profile.Role = models.RoleAdmin
	return profile
}

// CreateTestBet creates an ACTIVE bet owned by the given administrator.
// Cost 50 with a stored absolute commission of 5 (10%).
func CreateTestBet(createdBy uuid.UUID, title string) *models.Bet {
	return &models.Bet{
		Title:       title,
		Description: "test bet",
		Cost:        decimal.NewFromInt(50),
		Commission:  decimal.NewFromInt(5),
		Status:      models.BetStatusActive,
		CreatedBy:   createdBy,
	}
}

// CreateTestBetWithEnd creates a bet with an explicit end time
func CreateTestBetWithEnd(createdBy uuid.UUID, title string, endsAt time.Time) *models.Bet {
	bet := CreateTestBet(createdBy, title)
	bet.EndsAt = &endsAt
	return bet
}

// CreateTestParticipation creates a PENDING stake at the bet's cost
func CreateTestParticipation(betID, playerID uuid.UUID, amount decimal.Decimal) *models.Participation {
	return &models.Participation{
		BetID:    betID,
		PlayerID: playerID,
		Amount:   amount,
		Status:   models.ParticipationPending,
	}
}

// CreateTestMessage creates a message in the given chat
func CreateTestMessage(chatID, sentBy uuid.UUID, text string) *models.Message {
	return &models.Message{
		ChatID: chatID,
		SentBy: sentBy,
		Text:   text,
	}
}
