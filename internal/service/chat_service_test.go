package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pulsegram/internal/domain"
	"pulsegram/internal/service"
)

func newChatService(chats *MockChatRepo, users *MockUserRepo) *service.ChatService {
	return service.NewChatService(chats, users, zerolog.Nop())
}

func TestDirectPairKey(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	assert.Equal(t, service.DirectPairKey(a, b), service.DirectPairKey(b, a))
	assert.NotEqual(t, service.DirectPairKey(a, b), service.DirectPairKey(a, primitive.NewObjectID()))
}

func TestGetOrCreateDirect(t *testing.T) {
	actor := primitive.NewObjectID()
	other := primitive.NewObjectID()
	key := service.DirectPairKey(actor, other)

	t.Run("ReturnsExisting", func(t *testing.T) {
		chats := new(MockChatRepo)
		users := new(MockUserRepo)
		svc := newChatService(chats, users)

		existing := directChat(actor, other)
		users.On("GetByID", mock.Anything, other).Return(&domain.User{ID: other}, nil)
		chats.On("FindDirectByPairKey", mock.Anything, key).Return(existing, nil)

		chat, err := svc.GetOrCreateDirect(context.Background(), actor, other)
		assert.NoError(t, err)
		assert.Equal(t, existing.ID, chat.ID)
		chats.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("CreatesWhenAbsent", func(t *testing.T) {
		chats := new(MockChatRepo)
		users := new(MockUserRepo)
		svc := newChatService(chats, users)

		users.On("GetByID", mock.Anything, other).Return(&domain.User{ID: other}, nil)
		chats.On("FindDirectByPairKey", mock.Anything, key).Return(nil, nil)
		chats.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Chat) bool {
			return c.PairKey == key && len(c.Participants) == 2 && !c.IsGroup
		})).Return(nil)

		chat, err := svc.GetOrCreateDirect(context.Background(), actor, other)
		assert.NoError(t, err)
		assert.Equal(t, key, chat.PairKey)
	})

	t.Run("LosingRaceRefetchesWinner", func(t *testing.T) {
		chats := new(MockChatRepo)
		users := new(MockUserRepo)
		svc := newChatService(chats, users)

		winner := directChat(actor, other)
		users.On("GetByID", mock.Anything, other).Return(&domain.User{ID: other}, nil)
		chats.On("FindDirectByPairKey", mock.Anything, key).Return(nil, nil).Once()
		chats.On("Create", mock.Anything, mock.Anything).
			Return(fmt.Errorf("%w: duplicate chat", domain.ErrConflict))
		chats.On("FindDirectByPairKey", mock.Anything, key).Return(winner, nil).Once()

		chat, err := svc.GetOrCreateDirect(context.Background(), actor, other)
		assert.NoError(t, err)
		assert.Equal(t, winner.ID, chat.ID)
	})

	t.Run("SelfChatRejected", func(t *testing.T) {
		svc := newChatService(new(MockChatRepo), new(MockUserRepo))
		_, err := svc.GetOrCreateDirect(context.Background(), actor, actor)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("UnhidesForReopeningUser", func(t *testing.T) {
		chats := new(MockChatRepo)
		users := new(MockUserRepo)
		svc := newChatService(chats, users)

		hidden := directChat(actor, other)
		hidden.HiddenBy = []primitive.ObjectID{actor}
		users.On("GetByID", mock.Anything, other).Return(&domain.User{ID: other}, nil)
		chats.On("FindDirectByPairKey", mock.Anything, key).Return(hidden, nil)
		chats.On("UnhideFor", mock.Anything, hidden.ID, actor).Return(nil)

		chat, err := svc.GetOrCreateDirect(context.Background(), actor, other)
		assert.NoError(t, err)
		assert.Empty(t, chat.HiddenBy)
	})

	t.Run("ReopenLeavesOtherParticipantHidden", func(t *testing.T) {
		chats := new(MockChatRepo)
		users := new(MockUserRepo)
		svc := newChatService(chats, users)

		hidden := directChat(actor, other)
		hidden.HiddenBy = []primitive.ObjectID{actor, other}
		users.On("GetByID", mock.Anything, other).Return(&domain.User{ID: other}, nil)
		chats.On("FindDirectByPairKey", mock.Anything, key).Return(hidden, nil)
		chats.On("UnhideFor", mock.Anything, hidden.ID, actor).Return(nil)

		chat, err := svc.GetOrCreateDirect(context.Background(), actor, other)
		assert.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{other}, chat.HiddenBy)
		chats.AssertNotCalled(t, "ClearHidden", mock.Anything, mock.Anything)
	})
}

func TestHideChat(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	t.Run("ParticipantHides", func(t *testing.T) {
		chats := new(MockChatRepo)
		svc := newChatService(chats, new(MockUserRepo))

		chat := directChat(a, b)
		chats.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)
		chats.On("SetHidden", mock.Anything, chat.ID, a).Return(nil)

		assert.NoError(t, svc.Hide(context.Background(), chat.ID, a))
	})

	t.Run("OutsiderRefused", func(t *testing.T) {
		chats := new(MockChatRepo)
		svc := newChatService(chats, new(MockUserRepo))

		chat := directChat(a, b)
		chats.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)

		err := svc.Hide(context.Background(), chat.ID, primitive.NewObjectID())
		assert.ErrorIs(t, err, domain.ErrForbidden)
		chats.AssertNotCalled(t, "SetHidden", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCanJoin(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	chats := new(MockChatRepo)
	svc := newChatService(chats, new(MockUserRepo))

	chat := directChat(a, b)
	chats.On("GetByID", mock.Anything, chat.ID).Return(chat, nil)

	assert.True(t, svc.CanJoin(context.Background(), chat.ID, a))
	assert.False(t, svc.CanJoin(context.Background(), chat.ID, primitive.NewObjectID()))
}
