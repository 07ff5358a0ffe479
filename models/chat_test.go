package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeChatPair(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	firstA, firstB := NormalizeChatPair(a, b)
	secondA, secondB := NormalizeChatPair(b, a)

	// Both call orders land on the same canonical pair
	assert.Equal(t, firstA, secondA)
	assert.Equal(t, firstB, secondB)
	assert.Equal(t, a, firstA)
	assert.Equal(t, b, firstB)
}

func TestChatParticipants(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	userA, userB := NormalizeChatPair(a, b)
	chat := &Chat{ID: uuid.New(), UserA: userA, UserB: userB}

	assert.True(t, chat.HasParticipant(a))
	assert.True(t, chat.HasParticipant(b))
	assert.False(t, chat.HasParticipant(uuid.New()))
	assert.Equal(t, b, chat.Peer(a))
	assert.Equal(t, a, chat.Peer(b))
}

func TestMessageBefore(t *testing.T) {
	now := time.Now()
	earlier := &Message{ID: uuid.New(), CreatedAt: now}
	later := &Message{ID: uuid.New(), CreatedAt: now.Add(time.Second)}

	assert.True(t, earlier.Before(later))
	assert.False(t, later.Before(earlier))

	// Equal timestamps fall back to id order, so the relation stays total
	low := &Message{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), CreatedAt: now}
	high := &Message{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), CreatedAt: now}
	assert.True(t, low.Before(high))
	assert.False(t, high.Before(low))
}

func TestBetJoinability(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	open := &Bet{Status: BetStatusActive}
	assert.True(t, open.IsJoinable(now))

	withDeadline := &Bet{Status: BetStatusActive, EndsAt: &future}
	assert.True(t, withDeadline.IsJoinable(now))

	ended := &Bet{Status: BetStatusActive, EndsAt: &past}
	assert.False(t, ended.IsJoinable(now))
	// Ended bets stay ACTIVE until an administrator closes them
	assert.True(t, ended.IsActive())

	closed := &Bet{Status: BetStatusClosed}
	assert.False(t, closed.IsJoinable(now))
}
