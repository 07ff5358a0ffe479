package service

import (
	"context"
	"testing"
	"time"

	"bety/events"
	"bety/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func createTestChatService() (ChatService, *events.Bus, *MockUnitOfWork, *MockChatRepository) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockChatRepo := new(MockChatRepository)

	mockUoW.SetRepositories(nil, nil, nil, mockChatRepo, nil)
	mockFactory.On("Create").Return(mockUoW)

	bus := events.NewBus()
	service := NewChatService(mockFactory, bus, testConfig())
	return service, bus, mockUoW, mockChatRepo
}

func testChat(a, b uuid.UUID) *models.Chat {
	userA, userB := models.NormalizeChatPair(a, b)
	return &models.Chat{ID: uuid.New(), UserA: userA, UserB: userB}
}

func TestGetOrCreateChat_RejectsSelfChat(t *testing.T) {
	ctx := context.Background()
	service, _, _, _ := createTestChatService()

	userID := uuid.New()
	chat, err := service.GetOrCreateChat(ctx, userID, userID)

	assert.Error(t, err)
	assert.Nil(t, chat)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestSendMessage_RejectsNonParticipant(t *testing.T) {
	ctx := context.Background()
	service, _, mockUoW, mockChatRepo := createTestChatService()
	setupTransactionMocks(mockUoW)

	chat := testChat(uuid.New(), uuid.New())
	stranger := uuid.New()

	mockChatRepo.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)

	message, err := service.SendMessage(ctx, chat.ID, stranger, "hello", nil)

	assert.Error(t, err)
	assert.Nil(t, message)
	assert.Equal(t, KindForbidden, KindOf(err))
	mockChatRepo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestSendMessage_PublishesAfterCommit(t *testing.T) {
	ctx := context.Background()
	service, _, mockUoW, mockChatRepo := createTestChatService()
	setupTransactionMocks(mockUoW)

	sender := uuid.New()
	chat := testChat(sender, uuid.New())

	mockChatRepo.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)
	mockChatRepo.On("CreateMessage", mock.Anything, mock.AnythingOfType("*models.Message")).
		Run(func(args mock.Arguments) {
			m := args.Get(1).(*models.Message)
			m.ID = uuid.New()
			m.CreatedAt = time.Now()
		}).Return(nil)

	message, err := service.SendMessage(ctx, chat.ID, sender, "hello", nil)

	require.NoError(t, err)
	require.NotNil(t, message)
	assert.NotEqual(t, uuid.Nil, message.ID)

	published := mockUoW.PublishedEvents()
	require.Len(t, published, 1)
	created, ok := published[0].(events.MessageCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, message.ID, created.Message.ID)
}

func TestEditMessage_OnlySender(t *testing.T) {
	ctx := context.Background()
	service, _, mockUoW, mockChatRepo := createTestChatService()
	setupTransactionMocks(mockUoW)

	sender := uuid.New()
	chat := testChat(sender, uuid.New())
	message := &models.Message{ID: uuid.New(), ChatID: chat.ID, SentBy: sender, Text: "hi"}

	mockChatRepo.On("GetMessage", mock.Anything, message.ID).Return(message, nil)
	mockChatRepo.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)

	err := service.EditMessage(ctx, chat.Peer(sender), message.ID, "edited")

	assert.Error(t, err)
	assert.Equal(t, KindForbidden, KindOf(err))
	mockChatRepo.AssertNotCalled(t, "SetText", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkSeen_SenderCannotMarkOwnMessage(t *testing.T) {
	ctx := context.Background()
	service, _, mockUoW, mockChatRepo := createTestChatService()
	setupTransactionMocks(mockUoW)

	sender := uuid.New()
	chat := testChat(sender, uuid.New())
	message := &models.Message{ID: uuid.New(), ChatID: chat.ID, SentBy: sender, Text: "hi"}

	mockChatRepo.On("GetMessage", mock.Anything, message.ID).Return(message, nil)
	mockChatRepo.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)

	err := service.MarkSeen(ctx, sender, message.ID)

	assert.Error(t, err)
	assert.Equal(t, KindForbidden, KindOf(err))
	mockChatRepo.AssertNotCalled(t, "MarkSeen", mock.Anything, mock.Anything)
}

func TestDeleteMessage_SoftDeletesAsSender(t *testing.T) {
	ctx := context.Background()
	service, _, mockUoW, mockChatRepo := createTestChatService()
	setupTransactionMocks(mockUoW)

	sender := uuid.New()
	chat := testChat(sender, uuid.New())
	message := &models.Message{ID: uuid.New(), ChatID: chat.ID, SentBy: sender, Text: "hi"}

	mockChatRepo.On("GetMessage", mock.Anything, message.ID).Return(message, nil)
	mockChatRepo.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)
	mockChatRepo.On("MarkDeleted", mock.Anything, message.ID).Return(nil)

	err := service.DeleteMessage(ctx, sender, message.ID)

	require.NoError(t, err)
	mockChatRepo.AssertExpectations(t)
}

func TestOpenStream_HistoryThenLiveWithoutDuplicates(t *testing.T) {
	ctx := context.Background()
	service, bus, mockUoW, mockChatRepo := createTestChatService()
	setupTransactionMocks(mockUoW)

	sender := uuid.New()
	chat := testChat(sender, uuid.New())
	now := time.Now()
	m1 := &models.Message{ID: uuid.New(), ChatID: chat.ID, SentBy: sender, Text: "one", CreatedAt: now}
	m2 := &models.Message{ID: uuid.New(), ChatID: chat.ID, SentBy: sender, Text: "two", CreatedAt: now.Add(time.Second)}
	m3 := &models.Message{ID: uuid.New(), ChatID: chat.ID, SentBy: sender, Text: "three", CreatedAt: now.Add(2 * time.Second)}

	mockChatRepo.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)
	mockChatRepo.On("ListMessages", mock.Anything, chat.ID).Return([]*models.Message{m1, m2}, nil)

	received := make(chan uuid.UUID, 16)
	stream, err := service.OpenStream(ctx, chat.ID, func(m *models.Message) {
		received <- m.ID
	})
	require.NoError(t, err)
	defer stream.Close()

	// History arrives first, in stored order
	assert.Equal(t, m1.ID, <-received)
	assert.Equal(t, m2.ID, <-received)

	// A live duplicate of m2 is dropped; m3 comes through once
	bus.Emit(ctx, events.MessageCreatedEvent{Message: m2})
	bus.Emit(ctx, events.MessageCreatedEvent{Message: m3})

	select {
	case id := <-received:
		assert.Equal(t, m3.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("live message was not delivered")
	}

	select {
	case id := <-received:
		t.Fatalf("unexpected extra delivery %s", id)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestOpenStream_IgnoresOtherChats(t *testing.T) {
	ctx := context.Background()
	service, bus, mockUoW, mockChatRepo := createTestChatService()
	setupTransactionMocks(mockUoW)

	chat := testChat(uuid.New(), uuid.New())
	mockChatRepo.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)
	mockChatRepo.On("ListMessages", mock.Anything, chat.ID).Return([]*models.Message{}, nil)

	received := make(chan uuid.UUID, 16)
	stream, err := service.OpenStream(ctx, chat.ID, func(m *models.Message) {
		received <- m.ID
	})
	require.NoError(t, err)
	defer stream.Close()

	other := &models.Message{ID: uuid.New(), ChatID: uuid.New(), SentBy: uuid.New(), Text: "elsewhere"}
	bus.Emit(ctx, events.MessageCreatedEvent{Message: other})

	select {
	case id := <-received:
		t.Fatalf("message from another chat delivered: %s", id)
	case <-time.After(100 * time.Millisecond):
	}
}
