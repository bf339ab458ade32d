package domain

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TxRunner executes fn inside a storage transaction. Repository calls made
// with the context passed to fn participate in that transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByVerifyTokenHash(ctx context.Context, hash string) (*User, error)
	GetByResetTokenHash(ctx context.Context, hash string) (*User, error)
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*User, error)
	Search(ctx context.Context, query string, limit int) ([]*User, error)

	Update(ctx context.Context, u *User) error
	SetVerified(ctx context.Context, id primitive.ObjectID) error
	BumpTokenVersion(ctx context.Context, id primitive.ObjectID) error
	AdjustPostsCount(ctx context.Context, id primitive.ObjectID, delta int) error

	// SetFollow applies the paired follower/following mutation across both
	// user documents. Call inside a TxRunner transaction.
	SetFollow(ctx context.Context, follower, followee primitive.ObjectID, follow bool) error

	PushRecentSearch(ctx context.Context, userID, target primitive.ObjectID) error
	RemoveRecentSearch(ctx context.Context, userID, target primitive.ObjectID) error
}

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Create(ctx context.Context, p *Post) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Post, error)
	Update(ctx context.Context, p *Post) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	// ListFeed returns visible posts authored by the given users plus all
	// of the viewer's own posts, newest-first, in one paginated query.
	ListFeed(ctx context.Context, viewer primitive.ObjectID, authors []primitive.ObjectID, visibilities []string, page, limit int) ([]*Post, error)
	ListByAuthor(ctx context.Context, author primitive.ObjectID, visibilities []string, page, limit int) ([]*Post, error)
	ListSavedBy(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*Post, error)

	SetLike(ctx context.Context, postID, userID primitive.ObjectID, on bool) error
	SetSave(ctx context.Context, postID, userID primitive.ObjectID, on bool) error
	AdjustCommentsCount(ctx context.Context, postID primitive.ObjectID, delta int) error
}

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	Create(ctx context.Context, c *Comment) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Comment, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteReplies(ctx context.Context, parentID primitive.ObjectID) (int64, error)
	DeleteByPost(ctx context.Context, postID primitive.ObjectID) (int64, error)
	ListTopLevel(ctx context.Context, postID primitive.ObjectID, page, limit int) ([]*Comment, error)
	ListReplies(ctx context.Context, parentID primitive.ObjectID, page, limit int) ([]*Comment, error)
}

// StoryRepository defines persistence operations for stories. Listing
// filters out expired stories regardless of physical TTL deletion.
type StoryRepository interface {
	Create(ctx context.Context, s *Story) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Story, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	ListActiveByUsers(ctx context.Context, userIDs []primitive.ObjectID, now time.Time) ([]*Story, error)
	AddViewer(ctx context.Context, storyID, userID primitive.ObjectID) error
}

// ChatRepository defines persistence operations for chats.
type ChatRepository interface {
	Create(ctx context.Context, c *Chat) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Chat, error)
	FindDirectByPairKey(ctx context.Context, pairKey string) (*Chat, error)
	ListForUser(ctx context.Context, userID primitive.ObjectID) ([]*Chat, error)

	SetLastMessage(ctx context.Context, chatID, msgID primitive.ObjectID, at time.Time) error
	// ClearLastMessage unsets the pointer without touching updatedAt, for
	// when a deletion leaves the chat with no messages at all.
	ClearLastMessage(ctx context.Context, chatID primitive.ObjectID) error
	IncrementUnread(ctx context.Context, chatID primitive.ObjectID, except primitive.ObjectID) error
	ResetUnread(ctx context.Context, chatID, userID primitive.ObjectID) error
	ClearHidden(ctx context.Context, chatID primitive.ObjectID) error
	UnhideFor(ctx context.Context, chatID, userID primitive.ObjectID) error
	SetHidden(ctx context.Context, chatID, userID primitive.ObjectID) error
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Message, error)
	ListForChat(ctx context.Context, chatID, requester primitive.ObjectID, page, limit int) ([]*Message, error)
	LastForChat(ctx context.Context, chatID primitive.ObjectID) (*Message, error)
	MarkReadInChat(ctx context.Context, chatID, userID primitive.ObjectID) error
	AddDeletedFor(ctx context.Context, msgID, userID primitive.ObjectID) error
	SetDeleted(ctx context.Context, msgID primitive.ObjectID) error
	ListByPost(ctx context.Context, postID primitive.ObjectID) ([]*Message, error)
	DeleteByPost(ctx context.Context, postID primitive.ObjectID) (int64, error)
}

// NotificationRepository defines persistence operations for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListForRecipient(ctx context.Context, recipient primitive.ObjectID, page, limit int) ([]*Notification, error)
	CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, id, recipient primitive.ObjectID) error
	MarkAllRead(ctx context.Context, recipient primitive.ObjectID) error
	SoftDelete(ctx context.Context, id, recipient primitive.ObjectID) error
	ClearFor(ctx context.Context, recipient primitive.ObjectID) error
	DeleteByPost(ctx context.Context, postID primitive.ObjectID) (int64, error)
}
