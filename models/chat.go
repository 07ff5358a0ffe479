package models

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// Chat is a conversation between exactly two profiles. The pair is
// unordered: (A,B) and (B,A) denote the same conversation. Rows are stored
// canonically with UserA < UserB so the storage-level uniqueness constraint
// collapses concurrent creation attempts to a single row.
type Chat struct {
	ID        uuid.UUID `db:"id"`
	UserA     uuid.UUID `db:"user_a"`
	UserB     uuid.UUID `db:"user_b"`
	CreatedAt time.Time `db:"created_at"`
}

// NormalizeChatPair returns the two profile ids in canonical storage order.
func NormalizeChatPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) > 0 {
		return b, a
	}
	return a, b
}

// HasParticipant checks whether the given profile is one of the chat's two
// participants.
func (c *Chat) HasParticipant(id uuid.UUID) bool {
	return c.UserA == id || c.UserB == id
}

// Peer returns the other participant's id for a given participant.
func (c *Chat) Peer(id uuid.UUID) uuid.UUID {
	if c.UserA == id {
		return c.UserB
	}
	return c.UserA
}

// Message is one chat entry. Id and created_at are assigned by the store so
// ordering is consistent across senders regardless of client clock skew.
// Messages are never physically removed; edit, seen and delete are
// soft-state timestamps.
type Message struct {
	ID        uuid.UUID  `db:"id"`
	ChatID    uuid.UUID  `db:"chat_id"`
	SentBy    uuid.UUID  `db:"sent_by"`
	Text      string     `db:"text"`
	MediaURL  *string    `db:"media_url"`
	MediaType *string    `db:"media_type"`
	CreatedAt time.Time  `db:"created_at"`
	EditedAt  *time.Time `db:"edited_at"`
	DeletedAt *time.Time `db:"deleted_at"`
	SeenAt    *time.Time `db:"seen_at"`
}

// IsDeleted checks whether the message carries the soft-delete marker.
func (m *Message) IsDeleted() bool {
	return m.DeletedAt != nil
}

// Before orders messages by created_at, ties broken by id, matching the
// retrieval order of the store.
func (m *Message) Before(other *Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return bytes.Compare(m.ID[:], other.ID[:]) < 0
	}
	return m.CreatedAt.Before(other.CreatedAt)
}

// ChatOverview is a chat joined with both participant profiles and its most
// recent message, for conversation listings.
type ChatOverview struct {
	Chat        *Chat
	UserAName   string
	UserBName   string
	LastMessage *Message
}
