package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Media kinds accepted for posts, stories, and message attachments.
const (
	MediaImage = "image"
	MediaVideo = "video"
)

// Post visibility levels.
const (
	VisibilityPublic    = "public"
	VisibilityFollowers = "followers"
	VisibilityPrivate   = "private"
)

// Message types.
const (
	MessageText  = "text"
	MessageImage = "image"
	MessageVideo = "video"
	MessageFile  = "file"
	MessagePost  = "post"
)

// Notification types.
const (
	NotificationLike    = "like"
	NotificationComment = "comment"
	NotificationFollow  = "follow"
)

// Video duration bounds in seconds.
const (
	MinVideoDuration = 3
	MaxVideoDuration = 30
)

// MaxRecentSearches bounds the per-user recent-search list.
const MaxRecentSearches = 5

// User represents an application user. Followers and Following are kept as
// two independent arrays; every follow mutation must leave them mirrored.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName     string             `bson:"fullName" json:"fullName"`
	Username     string             `bson:"username" json:"username"` // stored with leading '@'
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	DOB          string             `bson:"dob,omitempty" json:"dob,omitempty"`
	Bio          string             `bson:"bio,omitempty" json:"bio,omitempty"`
	AvatarURL    string             `bson:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`

	IsVerified   bool `bson:"isVerified" json:"isVerified"`
	TokenVersion int  `bson:"tokenVersion" json:"-"`

	VerifyTokenHash    string    `bson:"verifyTokenHash,omitempty" json:"-"`
	VerifyTokenExpires time.Time `bson:"verifyTokenExpires,omitempty" json:"-"`

	ResetOTPHash     string    `bson:"resetOtpHash,omitempty" json:"-"`
	ResetOTPExpires  time.Time `bson:"resetOtpExpires,omitempty" json:"-"`
	ResetOTPAttempts int       `bson:"resetOtpAttempts,omitempty" json:"-"`
	ResetOTPVerified bool      `bson:"resetOtpVerified,omitempty" json:"-"`

	ResetTokenHash    string    `bson:"resetTokenHash,omitempty" json:"-"`
	ResetTokenExpires time.Time `bson:"resetTokenExpires,omitempty" json:"-"`

	Followers      []primitive.ObjectID `bson:"followers" json:"followers"`
	Following      []primitive.ObjectID `bson:"following" json:"following"`
	RecentSearches []primitive.ObjectID `bson:"recentSearches,omitempty" json:"recentSearches,omitempty"`
	PostsCount     int                  `bson:"postsCount" json:"postsCount"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// MediaItem is a single media attachment on a post.
type MediaItem struct {
	URL       string `bson:"url" json:"url"`
	AssetKey  string `bson:"assetKey,omitempty" json:"-"`
	Kind      string `bson:"kind" json:"kind"` // image | video
	Thumbnail string `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Duration  int    `bson:"duration,omitempty" json:"duration,omitempty"` // seconds, video only
}

// Post is a feed post. CommentsCount is denormalized and must track the live
// comment count for the post.
type Post struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Author        primitive.ObjectID   `bson:"author" json:"author"`
	Caption       string               `bson:"caption,omitempty" json:"caption,omitempty"`
	Media         []MediaItem          `bson:"media,omitempty" json:"media,omitempty"`
	Likes         []primitive.ObjectID `bson:"likes" json:"likes"`
	Saves         []primitive.ObjectID `bson:"saves" json:"saves"`
	CommentsCount int                  `bson:"commentsCount" json:"commentsCount"`
	Visibility    string               `bson:"visibility" json:"visibility"`
	IsEdited      bool                 `bson:"isEdited" json:"isEdited"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Comment is a comment on a post. ParentComment is at most one level deep:
// replies to replies are flattened to the top-level parent.
type Comment struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Post          primitive.ObjectID  `bson:"post" json:"post"`
	Author        primitive.ObjectID  `bson:"author" json:"author"`
	Text          string              `bson:"text" json:"text"`
	ParentComment *primitive.ObjectID `bson:"parentComment,omitempty" json:"parentComment,omitempty"`
	ReplyToUser   *primitive.ObjectID `bson:"replyToUser,omitempty" json:"replyToUser,omitempty"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
}

// Story is ephemeral media that expires 24h after creation. Readers must
// never see an expired story even if TTL deletion lags.
type Story struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	User      primitive.ObjectID   `bson:"user" json:"user"`
	MediaURL  string               `bson:"mediaUrl" json:"mediaUrl"`
	AssetKey  string               `bson:"assetKey,omitempty" json:"-"`
	Kind      string               `bson:"kind" json:"kind"`
	Viewers   []primitive.ObjectID `bson:"viewers" json:"viewers"`
	ExpiresAt time.Time            `bson:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
}

// Chat is a conversation. PairKey is the normalized unordered participant
// pair (sorted hex ids joined with ':') for direct chats; a unique index on
// it prevents duplicate direct chats. Empty for groups.
type Chat struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	IsGroup      bool                 `bson:"isGroup" json:"isGroup"`
	Participants []primitive.ObjectID `bson:"participants" json:"participants"`
	PairKey      string               `bson:"pairKey,omitempty" json:"-"`
	LastMessage  *primitive.ObjectID  `bson:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	UnreadCounts map[string]int       `bson:"unreadCounts,omitempty" json:"unreadCounts,omitempty"`
	HiddenBy     []primitive.ObjectID `bson:"hiddenBy,omitempty" json:"-"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Message is a chat message. Receiver is set for direct chats only.
type Message struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Chat       primitive.ObjectID   `bson:"chat" json:"chat"`
	Sender     primitive.ObjectID   `bson:"sender" json:"sender"`
	Receiver   *primitive.ObjectID  `bson:"receiver,omitempty" json:"receiver,omitempty"`
	Content    string               `bson:"content,omitempty" json:"content,omitempty"`
	Type       string               `bson:"type" json:"type"`
	MediaURL   string               `bson:"mediaUrl,omitempty" json:"mediaUrl,omitempty"`
	Post       *primitive.ObjectID  `bson:"post,omitempty" json:"post,omitempty"`
	ReadBy     []primitive.ObjectID `bson:"readBy" json:"readBy"`
	DeletedFor []primitive.ObjectID `bson:"deletedFor,omitempty" json:"-"`
	IsEdited   bool                 `bson:"isEdited" json:"isEdited"`
	IsDeleted  bool                 `bson:"isDeleted" json:"isDeleted"`
	CreatedAt  time.Time            `bson:"createdAt" json:"createdAt"`
}

// Notification records a like/comment/follow event for a recipient.
type Notification struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Recipient primitive.ObjectID  `bson:"recipient" json:"recipient"`
	Sender    primitive.ObjectID  `bson:"sender" json:"sender"`
	Type      string              `bson:"type" json:"type"`
	Post      *primitive.ObjectID `bson:"post,omitempty" json:"post,omitempty"`
	Comment   *primitive.ObjectID `bson:"comment,omitempty" json:"comment,omitempty"`
	IsRead    bool                `bson:"isRead" json:"isRead"`
	IsDeleted bool                `bson:"isDeleted" json:"-"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
}

// ContainsID reports whether ids contains id.
func ContainsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
