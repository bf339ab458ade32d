package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pulsegram/internal/domain"
	"pulsegram/internal/service"
)

type messageFixture struct {
	messages *MockMessageRepo
	chats    *MockChatRepo
	posts    *MockPostRepo
	pub      *capturePublisher
	svc      *service.MessageService
}

func newMessageFixture() *messageFixture {
	f := &messageFixture{
		messages: new(MockMessageRepo),
		chats:    new(MockChatRepo),
		posts:    new(MockPostRepo),
		pub:      &capturePublisher{},
	}
	f.svc = service.NewMessageService(f.messages, f.chats, f.posts, inlineTx{}, f.pub, zerolog.Nop())
	return f
}

func directChat(a, b primitive.ObjectID) *domain.Chat {
	return &domain.Chat{
		ID:           primitive.NewObjectID(),
		Participants: []primitive.ObjectID{a, b},
		PairKey:      service.DirectPairKey(a, b),
	}
}

func TestSendMessage(t *testing.T) {
	sender := primitive.NewObjectID()
	receiver := primitive.NewObjectID()

	t.Run("TextMessage", func(t *testing.T) {
		f := newMessageFixture()
		chat := directChat(sender, receiver)

		f.chats.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)
		f.messages.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
			return m.Type == domain.MessageText && m.Content == "hey" &&
				m.Receiver != nil && *m.Receiver == receiver
		})).Return(nil)
		f.chats.On("SetLastMessage", mock.Anything, chat.ID, mock.Anything, mock.Anything).Return(nil)
		f.chats.On("IncrementUnread", mock.Anything, chat.ID, sender).Return(nil)

		msg, err := f.svc.Send(context.Background(), chat.ID, sender, service.SendMessageInput{Content: "  hey  "})
		assert.NoError(t, err)
		assert.NotNil(t, msg)

		events := f.pub.Events()
		if assert.Len(t, events, 1) {
			assert.Equal(t, chat.ID.Hex(), events[0].Room)
			assert.Equal(t, service.EventNewMessage, events[0].Event)
		}
	})

	t.Run("EmptyPayloadRejected", func(t *testing.T) {
		f := newMessageFixture()
		chat := directChat(sender, receiver)
		f.chats.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)

		_, err := f.svc.Send(context.Background(), chat.ID, sender, service.SendMessageInput{Content: "   "})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		f.messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("MediaNeedsKnownType", func(t *testing.T) {
		f := newMessageFixture()
		chat := directChat(sender, receiver)
		f.chats.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)

		_, err := f.svc.Send(context.Background(), chat.ID, sender, service.SendMessageInput{
			MediaURL: "https://cdn.example.com/a.png",
			Type:     "gif",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("SharedPostMustExist", func(t *testing.T) {
		f := newMessageFixture()
		chat := directChat(sender, receiver)
		postID := primitive.NewObjectID()

		f.chats.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)
		f.posts.On("GetByID", mock.Anything, postID).Return(nil, nil)

		_, err := f.svc.Send(context.Background(), chat.ID, sender, service.SendMessageInput{PostID: &postID})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("NonParticipantRefused", func(t *testing.T) {
		f := newMessageFixture()
		chat := directChat(sender, receiver)
		outsider := primitive.NewObjectID()
		f.chats.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)

		_, err := f.svc.Send(context.Background(), chat.ID, outsider, service.SendMessageInput{Content: "hi"})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("ResurfacesHiddenChat", func(t *testing.T) {
		f := newMessageFixture()
		chat := directChat(sender, receiver)
		chat.HiddenBy = []primitive.ObjectID{receiver}

		f.chats.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)
		f.messages.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.chats.On("SetLastMessage", mock.Anything, chat.ID, mock.Anything, mock.Anything).Return(nil)
		f.chats.On("IncrementUnread", mock.Anything, chat.ID, sender).Return(nil)
		f.chats.On("ClearHidden", mock.Anything, chat.ID).Return(nil)

		_, err := f.svc.Send(context.Background(), chat.ID, sender, service.SendMessageInput{Content: "you there?"})
		assert.NoError(t, err)
		f.chats.AssertCalled(t, "ClearHidden", mock.Anything, chat.ID)
	})
}

func TestListMessages(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	t.Run("DoesNotTouchReadState", func(t *testing.T) {
		f := newMessageFixture()
		chat := directChat(a, b)

		f.chats.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)
		f.messages.On("ListForChat", mock.Anything, chat.ID, a, 1, 50).Return([]*domain.Message{}, nil)

		_, err := f.svc.List(context.Background(), chat.ID, a, 1, 50)
		assert.NoError(t, err)
		f.chats.AssertNotCalled(t, "ResetUnread", mock.Anything, mock.Anything, mock.Anything)
		f.messages.AssertNotCalled(t, "MarkReadInChat", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("CapsPageSize", func(t *testing.T) {
		f := newMessageFixture()
		chat := directChat(a, b)

		f.chats.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)
		f.messages.On("ListForChat", mock.Anything, chat.ID, a, 1, 100).Return([]*domain.Message{}, nil)

		_, err := f.svc.List(context.Background(), chat.ID, a, 1, 5000)
		assert.NoError(t, err)
		f.messages.AssertCalled(t, "ListForChat", mock.Anything, chat.ID, a, 1, 100)
	})
}

func TestMarkRead(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	t.Run("ZerosCounterAndStampsReceipts", func(t *testing.T) {
		f := newMessageFixture()
		chat := directChat(a, b)
		chat.UnreadCounts = map[string]int{a.Hex(): 4}

		f.chats.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)
		f.chats.On("ResetUnread", mock.Anything, chat.ID, a).Return(nil)
		f.messages.On("MarkReadInChat", mock.Anything, chat.ID, a).Return(nil)

		assert.NoError(t, f.svc.MarkRead(context.Background(), chat.ID, a))
		f.chats.AssertExpectations(t)
		f.messages.AssertExpectations(t)
	})

	t.Run("NonParticipantRefused", func(t *testing.T) {
		f := newMessageFixture()
		chat := directChat(a, b)
		f.chats.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)

		err := f.svc.MarkRead(context.Background(), chat.ID, primitive.NewObjectID())
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestDeleteMessage(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	t.Run("ForMeOnlyHidesFromRequester", func(t *testing.T) {
		f := newMessageFixture()
		chat := directChat(a, b)
		msg := &domain.Message{ID: primitive.NewObjectID(), Chat: chat.ID, Sender: b}

		f.messages.On("GetByID", mock.Anything, msg.ID).Return(msg, nil)
		f.chats.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)
		f.messages.On("AddDeletedFor", mock.Anything, msg.ID, a).Return(nil)

		assert.NoError(t, f.svc.Delete(context.Background(), msg.ID, a, false))
		f.messages.AssertNotCalled(t, "SetDeleted", mock.Anything, mock.Anything)
	})

	t.Run("ForEveryoneRequiresSender", func(t *testing.T) {
		f := newMessageFixture()
		chat := directChat(a, b)
		msg := &domain.Message{ID: primitive.NewObjectID(), Chat: chat.ID, Sender: b}

		f.messages.On("GetByID", mock.Anything, msg.ID).Return(msg, nil)
		f.chats.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)

		err := f.svc.Delete(context.Background(), msg.ID, a, true)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("ForEveryoneRefreshesLastMessage", func(t *testing.T) {
		f := newMessageFixture()
		chat := directChat(a, b)
		msg := &domain.Message{ID: primitive.NewObjectID(), Chat: chat.ID, Sender: a}
		chat.LastMessage = &msg.ID
		prior := &domain.Message{ID: primitive.NewObjectID(), Chat: chat.ID, CreatedAt: time.Now().Add(-time.Minute)}

		f.messages.On("GetByID", mock.Anything, msg.ID).Return(msg, nil)
		f.chats.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)
		f.messages.On("SetDeleted", mock.Anything, msg.ID).Return(nil)
		f.messages.On("LastForChat", mock.Anything, chat.ID).Return(prior, nil)
		f.chats.On("SetLastMessage", mock.Anything, chat.ID, prior.ID, prior.CreatedAt).Return(nil)

		assert.NoError(t, f.svc.Delete(context.Background(), msg.ID, a, true))

		events := f.pub.Events()
		if assert.Len(t, events, 1) {
			assert.Equal(t, service.EventMessagesDeleted, events[0].Event)
		}
	})

	t.Run("ForEveryoneOnLastRemainingMessageClearsPointer", func(t *testing.T) {
		f := newMessageFixture()
		chat := directChat(a, b)
		msg := &domain.Message{ID: primitive.NewObjectID(), Chat: chat.ID, Sender: a}
		chat.LastMessage = &msg.ID

		f.messages.On("GetByID", mock.Anything, msg.ID).Return(msg, nil)
		f.chats.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)
		f.messages.On("SetDeleted", mock.Anything, msg.ID).Return(nil)
		f.messages.On("LastForChat", mock.Anything, chat.ID).Return(nil, nil)
		f.chats.On("ClearLastMessage", mock.Anything, chat.ID).Return(nil)

		assert.NoError(t, f.svc.Delete(context.Background(), msg.ID, a, true))
		f.chats.AssertCalled(t, "ClearLastMessage", mock.Anything, chat.ID)
		f.chats.AssertNotCalled(t, "SetLastMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
