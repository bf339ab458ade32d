package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pulsegram/internal/domain"
)

// Mock repositories shared by the service tests.

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByVerifyTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByResetTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*domain.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockUserRepo) Search(ctx context.Context, query string, limit int) ([]*domain.User, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockUserRepo) Update(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepo) SetVerified(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepo) BumpTokenVersion(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepo) AdjustPostsCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

func (m *MockUserRepo) SetFollow(ctx context.Context, follower, followee primitive.ObjectID, follow bool) error {
	args := m.Called(ctx, follower, followee, follow)
	return args.Error(0)
}

func (m *MockUserRepo) PushRecentSearch(ctx context.Context, userID, target primitive.ObjectID) error {
	args := m.Called(ctx, userID, target)
	return args.Error(0)
}

func (m *MockUserRepo) RemoveRecentSearch(ctx context.Context, userID, target primitive.ObjectID) error {
	args := m.Called(ctx, userID, target)
	return args.Error(0)
}

type MockPostRepo struct {
	mock.Mock
}

func (m *MockPostRepo) Create(ctx context.Context, p *domain.Post) error {
	args := m.Called(ctx, p)
	if args.Error(0) == nil && p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	return args.Error(0)
}

func (m *MockPostRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Post), args.Error(1)
}

func (m *MockPostRepo) Update(ctx context.Context, p *domain.Post) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPostRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPostRepo) ListFeed(ctx context.Context, viewer primitive.ObjectID, authors []primitive.ObjectID, visibilities []string, page, limit int) ([]*domain.Post, error) {
	args := m.Called(ctx, viewer, authors, visibilities, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Post), args.Error(1)
}

func (m *MockPostRepo) ListByAuthor(ctx context.Context, author primitive.ObjectID, visibilities []string, page, limit int) ([]*domain.Post, error) {
	args := m.Called(ctx, author, visibilities, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Post), args.Error(1)
}

func (m *MockPostRepo) ListSavedBy(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*domain.Post, error) {
	args := m.Called(ctx, userID, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Post), args.Error(1)
}

func (m *MockPostRepo) SetLike(ctx context.Context, postID, userID primitive.ObjectID, on bool) error {
	args := m.Called(ctx, postID, userID, on)
	return args.Error(0)
}

func (m *MockPostRepo) SetSave(ctx context.Context, postID, userID primitive.ObjectID, on bool) error {
	args := m.Called(ctx, postID, userID, on)
	return args.Error(0)
}

func (m *MockPostRepo) AdjustCommentsCount(ctx context.Context, postID primitive.ObjectID, delta int) error {
	args := m.Called(ctx, postID, delta)
	return args.Error(0)
}

type MockCommentRepo struct {
	mock.Mock
}

func (m *MockCommentRepo) Create(ctx context.Context, c *domain.Comment) error {
	args := m.Called(ctx, c)
	if args.Error(0) == nil && c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	return args.Error(0)
}

func (m *MockCommentRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Comment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Comment), args.Error(1)
}

func (m *MockCommentRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCommentRepo) DeleteReplies(ctx context.Context, parentID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, parentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCommentRepo) DeleteByPost(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, postID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCommentRepo) ListTopLevel(ctx context.Context, postID primitive.ObjectID, page, limit int) ([]*domain.Comment, error) {
	args := m.Called(ctx, postID, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Comment), args.Error(1)
}

func (m *MockCommentRepo) ListReplies(ctx context.Context, parentID primitive.ObjectID, page, limit int) ([]*domain.Comment, error) {
	args := m.Called(ctx, parentID, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Comment), args.Error(1)
}

type MockStoryRepo struct {
	mock.Mock
}

func (m *MockStoryRepo) Create(ctx context.Context, s *domain.Story) error {
	args := m.Called(ctx, s)
	if args.Error(0) == nil && s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	return args.Error(0)
}

func (m *MockStoryRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Story, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Story), args.Error(1)
}

func (m *MockStoryRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStoryRepo) ListActiveByUsers(ctx context.Context, userIDs []primitive.ObjectID, now time.Time) ([]*domain.Story, error) {
	args := m.Called(ctx, userIDs, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Story), args.Error(1)
}

func (m *MockStoryRepo) AddViewer(ctx context.Context, storyID, userID primitive.ObjectID) error {
	args := m.Called(ctx, storyID, userID)
	return args.Error(0)
}

type MockChatRepo struct {
	mock.Mock
}

func (m *MockChatRepo) Create(ctx context.Context, c *domain.Chat) error {
	args := m.Called(ctx, c)
	if args.Error(0) == nil && c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	return args.Error(0)
}

func (m *MockChatRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Chat, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chat), args.Error(1)
}

func (m *MockChatRepo) FindDirectByPairKey(ctx context.Context, pairKey string) (*domain.Chat, error) {
	args := m.Called(ctx, pairKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chat), args.Error(1)
}

func (m *MockChatRepo) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]*domain.Chat, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chat), args.Error(1)
}

func (m *MockChatRepo) SetLastMessage(ctx context.Context, chatID, msgID primitive.ObjectID, at time.Time) error {
	args := m.Called(ctx, chatID, msgID, at)
	return args.Error(0)
}

func (m *MockChatRepo) ClearLastMessage(ctx context.Context, chatID primitive.ObjectID) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

func (m *MockChatRepo) IncrementUnread(ctx context.Context, chatID primitive.ObjectID, except primitive.ObjectID) error {
	args := m.Called(ctx, chatID, except)
	return args.Error(0)
}

func (m *MockChatRepo) ResetUnread(ctx context.Context, chatID, userID primitive.ObjectID) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

func (m *MockChatRepo) UnhideFor(ctx context.Context, chatID, userID primitive.ObjectID) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

func (m *MockChatRepo) ClearHidden(ctx context.Context, chatID primitive.ObjectID) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

func (m *MockChatRepo) SetHidden(ctx context.Context, chatID, userID primitive.ObjectID) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	if args.Error(0) == nil && msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
		msg.CreatedAt = time.Now().UTC()
	}
	return args.Error(0)
}

func (m *MockMessageRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) ListForChat(ctx context.Context, chatID, requester primitive.ObjectID, page, limit int) ([]*domain.Message, error) {
	args := m.Called(ctx, chatID, requester, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) LastForChat(ctx context.Context, chatID primitive.ObjectID) (*domain.Message, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) MarkReadInChat(ctx context.Context, chatID, userID primitive.ObjectID) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

func (m *MockMessageRepo) AddDeletedFor(ctx context.Context, msgID, userID primitive.ObjectID) error {
	args := m.Called(ctx, msgID, userID)
	return args.Error(0)
}

func (m *MockMessageRepo) SetDeleted(ctx context.Context, msgID primitive.ObjectID) error {
	args := m.Called(ctx, msgID)
	return args.Error(0)
}

func (m *MockMessageRepo) ListByPost(ctx context.Context, postID primitive.ObjectID) ([]*domain.Message, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) DeleteByPost(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, postID)
	return args.Get(0).(int64), args.Error(1)
}

type MockNotificationRepo struct {
	mock.Mock
}

func (m *MockNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationRepo) ListForRecipient(ctx context.Context, recipient primitive.ObjectID, page, limit int) ([]*domain.Notification, error) {
	args := m.Called(ctx, recipient, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Notification), args.Error(1)
}

func (m *MockNotificationRepo) CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, recipient)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepo) MarkRead(ctx context.Context, id, recipient primitive.ObjectID) error {
	args := m.Called(ctx, id, recipient)
	return args.Error(0)
}

func (m *MockNotificationRepo) MarkAllRead(ctx context.Context, recipient primitive.ObjectID) error {
	args := m.Called(ctx, recipient)
	return args.Error(0)
}

func (m *MockNotificationRepo) SoftDelete(ctx context.Context, id, recipient primitive.ObjectID) error {
	args := m.Called(ctx, id, recipient)
	return args.Error(0)
}

func (m *MockNotificationRepo) ClearFor(ctx context.Context, recipient primitive.ObjectID) error {
	args := m.Called(ctx, recipient)
	return args.Error(0)
}

func (m *MockNotificationRepo) DeleteByPost(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, postID)
	return args.Get(0).(int64), args.Error(1)
}

// inlineTx runs the function directly, without a real transaction.
type inlineTx struct{}

func (inlineTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

type capturedEvent struct {
	Room    string
	Event   string
	Payload any
}

func (p *capturePublisher) Publish(room, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{Room: room, Event: event, Payload: payload})
}

func (p *capturePublisher) Events() []capturedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]capturedEvent, len(p.events))
	copy(out, p.events)
	return out
}

// captureMailer records enqueued mail.
type captureMailer struct {
	mu   sync.Mutex
	sent []capturedMail
}

type capturedMail struct {
	To      string
	Subject string
	Body    string
}

func (m *captureMailer) Enqueue(to, subject, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, capturedMail{To: to, Subject: subject, Body: body})
}

func (m *captureMailer) Sent() []capturedMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]capturedMail, len(m.sent))
	copy(out, m.sent)
	return out
}

// MockAssetStore records removed asset keys.
type MockAssetStore struct {
	mock.Mock
}

func (m *MockAssetStore) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockAssetStore) PresignPut(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockAssetStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}
