package service

import (
	"context"
	"fmt"
	"sync"

	"bety/config"
	"bety/database"
	"bety/events"
	"bety/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// MediaRef attaches an uploaded media object to a message
type MediaRef struct {
	URL  string
	Type string // "image" or "video"
}

// ChatService defines the interface for two-party conversations
type ChatService interface {
	// GetOrCreateChat resolves the unordered pair to its single chat,
	// creating it lazily on the first message attempt
	GetOrCreateChat(ctx context.Context, userA, userB uuid.UUID) (*models.Chat, error)

	// SendMessage persists a message; id and timestamp are assigned by the
	// store so ordering across senders ignores client clocks. The sender
	// must be one of the chat's two participants.
	SendMessage(ctx context.Context, chatID, senderID uuid.UUID, text string, media *MediaRef) (*models.Message, error)

	// Messages returns all messages of a chat ordered by created_at
	// ascending
	Messages(ctx context.Context, chatID uuid.UUID) ([]*models.Message, error)

	// ListChats returns the user's conversations with the latest message
	ListChats(ctx context.Context, userID uuid.UUID) ([]*models.ChatOverview, error)

	// OpenStream starts live delivery for a chat: the full history first,
	// then each newly committed message exactly once, in commit order.
	OpenStream(ctx context.Context, chatID uuid.UUID, onMessage func(*models.Message)) (*ChatStream, error)

	// EditMessage replaces the text and stamps edited_at; sender only
	EditMessage(ctx context.Context, actorID, messageID uuid.UUID, text string) error

	// MarkSeen stamps seen_at; only the recipient can mark a message seen
	MarkSeen(ctx context.Context, actorID, messageID uuid.UUID) error

	// DeleteMessage stamps deleted_at; sender only. Rows are never
	// physically removed.
	DeleteMessage(ctx context.Context, actorID, messageID uuid.UUID) error
}

type chatService struct {
	uowFactory UnitOfWorkFactory
	bus        *events.Bus
	config     *config.Config
}

// NewChatService creates a new chat service
func NewChatService(uowFactory UnitOfWorkFactory, bus *events.Bus, cfg *config.Config) ChatService {
	return &chatService{
		uowFactory: uowFactory,
		bus:        bus,
		config:     cfg,
	}
}

// GetOrCreateChat resolves the unordered pair to its single chat row
func (s *chatService) GetOrCreateChat(ctx context.Context, userA, userB uuid.UUID) (*models.Chat, error) {
	if userA == uuid.Nil || userB == uuid.Nil {
		return nil, validationf("both participants are required")
	}
	if userA == userB {
		return nil, validationf("cannot open a chat with yourself")
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	chat, err := uow.ChatRepository().GetOrCreate(ctx, userA, userB)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return chat, nil
}

// SendMessage persists a message and announces it after commit
func (s *chatService) SendMessage(ctx context.Context, chatID, senderID uuid.UUID, text string, media *MediaRef) (*models.Message, error) {
	if text == "" && media == nil {
		return nil, validationf("message cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	chat, err := uow.ChatRepository().GetByID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	if chat == nil {
		return nil, notFoundf("chat %s not found", chatID)
	}
	if !chat.HasParticipant(senderID) {
		return nil, forbiddenf("sender is not a participant of this chat")
	}

	message := &models.Message{
		ChatID: chatID,
		SentBy: senderID,
		Text:   text,
	}
	if media != nil {
		message.MediaURL = &media.URL
		message.MediaType = &media.Type
	}

	if err := uow.ChatRepository().CreateMessage(ctx, message); err != nil {
		return nil, err
	}

	// Flushed only after commit, so subscribers never see an uncommitted
	// message
	uow.EventBus().Publish(events.MessageCreatedEvent{Message: message})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return message, nil
}

// Messages returns the full ordered history of a chat
func (s *chatService) Messages(ctx context.Context, chatID uuid.UUID) ([]*models.Message, error) {
	var messages []*models.Message

	err := database.WithReadRetry(ctx, func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		var err error
		messages, err = uow.ChatRepository().ListMessages(ctx, chatID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return messages, nil
}

// ListChats returns the user's conversations with the latest message
func (s *chatService) ListChats(ctx context.Context, userID uuid.UUID) ([]*models.ChatOverview, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	overviews, err := uow.ChatRepository().ListOverviewsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return overviews, nil
}

// ChatStream delivers one chat's messages to a callback: history first,
// then live events. Messages present in both the initial fetch and the live
// feed are delivered once; the seen set keyed by message id closes the
// window between subscribing and fetching.
type ChatStream struct {
	chatID    uuid.UUID
	onMessage func(*models.Message)

	mu        sync.Mutex
	seen      map[uuid.UUID]struct{}
	buffering bool
	buffered  []*models.Message
	closed    bool

	cancel func()
}

func (st *ChatStream) handleLive(m *models.Message) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.closed {
		return
	}
	if st.buffering {
		// Initial fetch still in flight; hold the event until the history
		// is delivered so ordering survives
		st.buffered = append(st.buffered, m)
		return
	}
	st.deliverLocked(m)
}

func (st *ChatStream) deliverLocked(m *models.Message) {
	if _, ok := st.seen[m.ID]; ok {
		return
	}
	st.seen[m.ID] = struct{}{}
	st.onMessage(m)
}

// Close stops delivery. Messages arriving afterwards are still durably
// stored and show up on the next full fetch; the stream does not backfill.
func (st *ChatStream) Close() {
	st.mu.Lock()
	st.closed = true
	st.buffered = nil
	st.mu.Unlock()

	if st.cancel != nil {
		st.cancel()
	}
}

// OpenStream subscribes before fetching, then reconciles: history is
// delivered first, live events seen during the fetch are replayed minus
// duplicates, and from then on each committed message arrives exactly once
// in commit order.
func (s *chatService) OpenStream(ctx context.Context, chatID uuid.UUID, onMessage func(*models.Message)) (*ChatStream, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	chat, err := uow.ChatRepository().GetByID(ctx, chatID)
	uow.Rollback()
	if err != nil {
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	if chat == nil {
		return nil, notFoundf("chat %s not found", chatID)
	}

	stream := &ChatStream{
		chatID:    chatID,
		onMessage: onMessage,
		seen:      make(map[uuid.UUID]struct{}),
		buffering: true,
	}

	stream.cancel = s.bus.Subscribe(events.EventTypeMessageCreated, func(_ context.Context, ev events.Event) {
		created, ok := ev.(events.MessageCreatedEvent)
		if !ok || created.Message == nil || created.Message.ChatID != chatID {
			return
		}
		stream.handleLive(created.Message)
	})

	history, err := s.Messages(ctx, chatID)
	if err != nil {
		stream.Close()
		return nil, err
	}

	stream.mu.Lock()
	for _, m := range history {
		stream.deliverLocked(m)
	}
	for _, m := range stream.buffered {
		stream.deliverLocked(m)
	}
	stream.buffered = nil
	stream.buffering = false
	stream.mu.Unlock()

	log.WithFields(log.Fields{
		"chatId":  chatID,
		"history": len(history),
	}).Debug("Chat stream opened")

	return stream, nil
}

// messageWithChat loads a message and its chat for an authorization check
func (s *chatService) messageWithChat(ctx context.Context, uow UnitOfWork, messageID uuid.UUID) (*models.Message, *models.Chat, error) {
	message, err := uow.ChatRepository().GetMessage(ctx, messageID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get message: %w", err)
	}
	if message == nil {
		return nil, nil, notFoundf("message %s not found", messageID)
	}

	chat, err := uow.ChatRepository().GetByID(ctx, message.ChatID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get chat: %w", err)
	}
	if chat == nil {
		return nil, nil, notFoundf("chat %s not found", message.ChatID)
	}

	return message, chat, nil
}

// EditMessage replaces the text and stamps edited_at
func (s *chatService) EditMessage(ctx context.Context, actorID, messageID uuid.UUID, text string) error {
	if text == "" {
		return validationf("message cannot be empty")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	message, _, err := s.messageWithChat(ctx, uow, messageID)
	if err != nil {
		return err
	}
	if message.SentBy != actorID {
		return forbiddenf("only the sender can edit a message")
	}
	if message.IsDeleted() {
		return &Error{Kind: KindConflict, Message: "deleted messages cannot be edited"}
	}

	if err := uow.ChatRepository().SetText(ctx, messageID, text); err != nil {
		return err
	}

	return uow.Commit()
}

// MarkSeen stamps seen_at once
func (s *chatService) MarkSeen(ctx context.Context, actorID, messageID uuid.UUID) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	message, chat, err := s.messageWithChat(ctx, uow, messageID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(actorID) || message.SentBy == actorID {
		return forbiddenf("only the recipient can mark a message seen")
	}

	if err := uow.ChatRepository().MarkSeen(ctx, messageID); err != nil {
		return err
	}

	return uow.Commit()
}

// DeleteMessage stamps deleted_at; the row stays
func (s *chatService) DeleteMessage(ctx context.Context, actorID, messageID uuid.UUID) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	message, _, err := s.messageWithChat(ctx, uow, messageID)
	if err != nil {
		return err
	}
	if message.SentBy != actorID {
		return forbiddenf("only the sender can delete a message")
	}

	if err := uow.ChatRepository().MarkDeleted(ctx, messageID); err != nil {
		return err
	}

	return uow.Commit()
}
