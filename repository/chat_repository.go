package repository

import (
	"context"
	"fmt"
	"time"

	"bety/database"
	"bety/models"
	"bety/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ChatRepository implements chat and message data access
type ChatRepository struct {
	q queryable
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *database.DB) *ChatRepository {
	return &ChatRepository{q: db.Pool}
}

// newChatRepositoryWithTx creates a new chat repository with a transaction
func newChatRepositoryWithTx(tx queryable) service.ChatRepository {
	return &ChatRepository{q: tx}
}

// GetOrCreate resolves the unordered pair to its single chat row, creating
// it when absent. The pair is stored canonically (smaller id first) and the
// insert tolerates a concurrent winner, so two racing first-messages
// collapse to one row.
func (r *ChatRepository) GetOrCreate(ctx context.Context, userA, userB uuid.UUID) (*models.Chat, error) {
	if userA == userB {
		return nil, fmt.Errorf("chat requires two distinct participants")
	}
	a, b := models.NormalizeChatPair(userA, userB)

	insert := `
		INSERT INTO chats (user_a, user_b)
		VALUES ($1, $2)
		ON CONFLICT (user_a, user_b) DO NOTHING
		RETURNING id, user_a, user_b, created_at
	`

	var chat models.Chat
	err := r.q.QueryRow(ctx, insert, a, b).Scan(&chat.ID, &chat.UserA, &chat.UserB, &chat.CreatedAt)
	if err == nil {
		return &chat, nil
	}
	if err != pgx.ErrNoRows {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	// Conflict: another caller created the row first, read it back.
	query := `SELECT id, user_a, user_b, created_at FROM chats WHERE user_a = $1 AND user_b = $2`
	err = r.q.QueryRow(ctx, query, a, b).Scan(&chat.ID, &chat.UserA, &chat.UserB, &chat.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat for pair: %w", err)
	}

	return &chat, nil
}

// GetByID retrieves a chat by id, nil when absent
func (r *ChatRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	var chat models.Chat
	err := r.q.QueryRow(ctx,
		`SELECT id, user_a, user_b, created_at FROM chats WHERE id = $1`, id).
		Scan(&chat.ID, &chat.UserA, &chat.UserB, &chat.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat %s: %w", id, err)
	}

	return &chat, nil
}

// ListOverviewsByUser returns the user's chats with participant names and
// the latest message of each, newest activity first.
func (r *ChatRepository) ListOverviewsByUser(ctx context.Context, userID uuid.UUID) ([]*models.ChatOverview, error) {
	query := `
		SELECT c.id, c.user_a, c.user_b, c.created_at,
		       pa.name, pb.name,
		       m.id, m.chat_id, m.sent_by, m.text, m.media_url, m.media_type,
		       m.created_at, m.edited_at, m.deleted_at, m.seen_at
		FROM chats c
		JOIN profiles pa ON pa.id = c.user_a
		JOIN profiles pb ON pb.id = c.user_b
		LEFT JOIN LATERAL (
			SELECT * FROM messages
			WHERE chat_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) m ON TRUE
		WHERE c.user_a = $1 OR c.user_b = $1
		ORDER BY COALESCE(m.created_at, c.created_at) DESC
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats for user %s: %w", userID, err)
	}
	defer rows.Close()

	var overviews []*models.ChatOverview
	for rows.Next() {
		var (
			chat models.Chat
			o    models.ChatOverview
			m    models.Message
			// Nullable because the lateral join finds nothing for empty chats
			mID        *uuid.UUID
			mChatID    *uuid.UUID
			mSentBy    *uuid.UUID
			mText      *string
			mCreatedAt *time.Time
		)
		err := rows.Scan(
			&chat.ID, &chat.UserA, &chat.UserB, &chat.CreatedAt,
			&o.UserAName, &o.UserBName,
			&mID, &mChatID, &mSentBy, &mText, &m.MediaURL, &m.MediaType,
			&mCreatedAt, &m.EditedAt, &m.DeletedAt, &m.SeenAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat overview: %w", err)
		}
		o.Chat = &chat
		if mID != nil {
			m.ID = *mID
			m.ChatID = *mChatID
			m.SentBy = *mSentBy
			m.Text = *mText
			m.CreatedAt = *mCreatedAt
			o.LastMessage = &m
		}
		overviews = append(overviews, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat overviews: %w", err)
	}

	return overviews, nil
}

// CreateMessage inserts a message. The id and created_at come back from the
// database so ordering is consistent across senders regardless of client
// clocks.
func (r *ChatRepository) CreateMessage(ctx context.Context, m *models.Message) error {
	query := `
		INSERT INTO messages (chat_id, sent_by, text, media_url, media_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, m.ChatID, m.SentBy, m.Text, m.MediaURL, m.MediaType).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create message in chat %s: %w", m.ChatID, err)
	}

	return nil
}

const messageColumns = `id, chat_id, sent_by, text, media_url, media_type, created_at, edited_at, deleted_at, seen_at`

// GetMessage retrieves a message by id, nil when absent
func (r *ChatRepository) GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var m models.Message
	err := r.q.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = $1`, id).Scan(
		&m.ID, &m.ChatID, &m.SentBy, &m.Text, &m.MediaURL, &m.MediaType,
		&m.CreatedAt, &m.EditedAt, &m.DeletedAt, &m.SeenAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	return &m, nil
}

// ListMessages returns all messages of a chat ordered by created_at
// ascending, ties broken by id.
func (r *ChatRepository) ListMessages(ctx context.Context, chatID uuid.UUID) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE chat_id = $1 ORDER BY created_at, id`

	rows, err := r.q.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for chat %s: %w", chatID, err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var m models.Message
		err := rows.Scan(
			&m.ID, &m.ChatID, &m.SentBy, &m.Text, &m.MediaURL, &m.MediaType,
			&m.CreatedAt, &m.EditedAt, &m.DeletedAt, &m.SeenAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

// SetText updates the message body and stamps edited_at
func (r *ChatRepository) SetText(ctx context.Context, messageID uuid.UUID, text string) error {
	result, err := r.q.Exec(ctx,
		`UPDATE messages SET text = $1, edited_at = NOW() WHERE id = $2`, text, messageID)
	if err != nil {
		return fmt.Errorf("failed to edit message %s: %w", messageID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("message %s not found", messageID)
	}

	return nil
}

// MarkSeen stamps seen_at once; repeated calls keep the first timestamp
func (r *ChatRepository) MarkSeen(ctx context.Context, messageID uuid.UUID) error {
	_, err := r.q.Exec(ctx,
		`UPDATE messages SET seen_at = NOW() WHERE id = $1 AND seen_at IS NULL`, messageID)
	if err != nil {
		return fmt.Errorf("failed to mark message %s seen: %w", messageID, err)
	}

	return nil
}

// MarkDeleted stamps deleted_at; the row is never physically removed
func (r *ChatRepository) MarkDeleted(ctx context.Context, messageID uuid.UUID) error {
	result, err := r.q.Exec(ctx,
		`UPDATE messages SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, messageID)
	if err != nil {
		return fmt.Errorf("failed to delete message %s: %w", messageID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("message %s not found or already deleted", messageID)
	}

	return nil
}
