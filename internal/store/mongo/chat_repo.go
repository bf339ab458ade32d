package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pulsegram/internal/domain"
)

type ChatRepo struct {
	col *mongo.Collection
}

func NewChatRepo(s *Store) *ChatRepo {
	return &ChatRepo{col: s.db.Collection(colChats)}
}

func (r *ChatRepo) Create(ctx context.Context, c *domain.Chat) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.UnreadCounts == nil {
		c.UnreadCounts = map[string]int{}
	}
	_, err := r.col.InsertOne(ctx, c)
	if IsDuplicateKey(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}
	return nil
}

func (r *ChatRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Chat, error) {
	var c domain.Chat
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find chat: %w", err)
	}
	return &c, nil
}

func (r *ChatRepo) FindDirectByPairKey(ctx context.Context, pairKey string) (*domain.Chat, error) {
	var c domain.Chat
	err := r.col.FindOne(ctx, bson.M{"pairKey": pairKey}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find direct chat: %w", err)
	}
	return &c, nil
}

// ListForUser returns the user's chats, most recently active first,
// excluding chats the user has hidden.
func (r *ChatRepo) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]*domain.Chat, error) {
	filter := bson.M{
		"participants": userID,
		"hiddenBy":     bson.M{"$ne": userID},
	}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	chats := []*domain.Chat{}
	if err := cur.All(ctx, &chats); err != nil {
		return nil, fmt.Errorf("decode chats: %w", err)
	}
	return chats, nil
}

func (r *ChatRepo) SetLastMessage(ctx context.Context, chatID, msgID primitive.ObjectID, at time.Time) error {
	update := bson.M{"$set": bson.M{"lastMessage": msgID, "updatedAt": at}}
	res, err := r.col.UpdateByID(ctx, chatID, update)
	if err != nil {
		return fmt.Errorf("set last message: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClearLastMessage unsets the pointer when a deletion empties the chat.
// updatedAt is left alone so the chat does not jump in anyone's list.
func (r *ChatRepo) ClearLastMessage(ctx context.Context, chatID primitive.ObjectID) error {
	update := bson.M{"$unset": bson.M{"lastMessage": ""}}
	res, err := r.col.UpdateByID(ctx, chatID, update)
	if err != nil {
		return fmt.Errorf("clear last message: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// IncrementUnread bumps the unread counter of every participant except the
// sender, initializing missing counters.
func (r *ChatRepo) IncrementUnread(ctx context.Context, chatID primitive.ObjectID, except primitive.ObjectID) error {
	chat, err := r.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if chat == nil {
		return domain.ErrNotFound
	}
	inc := bson.M{}
	for _, p := range chat.Participants {
		if p == except {
			continue
		}
		inc["unreadCounts."+p.Hex()] = 1
	}
	if len(inc) == 0 {
		return nil
	}
	if _, err := r.col.UpdateByID(ctx, chatID, bson.M{"$inc": inc}); err != nil {
		return fmt.Errorf("increment unread: %w", err)
	}
	return nil
}

func (r *ChatRepo) ResetUnread(ctx context.Context, chatID, userID primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"unreadCounts." + userID.Hex(): 0}}
	if _, err := r.col.UpdateByID(ctx, chatID, update); err != nil {
		return fmt.Errorf("reset unread: %w", err)
	}
	return nil
}

// ClearHidden makes the chat visible again for every participant. A new
// message un-hides the chat for anyone who had hidden it.
func (r *ChatRepo) ClearHidden(ctx context.Context, chatID primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"hiddenBy": []primitive.ObjectID{}}}
	if _, err := r.col.UpdateByID(ctx, chatID, update); err != nil {
		return fmt.Errorf("clear hidden: %w", err)
	}
	return nil
}

// UnhideFor resurfaces the chat for one participant only. Reopening a chat
// must not reveal it to others who hid it.
func (r *ChatRepo) UnhideFor(ctx context.Context, chatID, userID primitive.ObjectID) error {
	update := bson.M{"$pull": bson.M{"hiddenBy": userID}}
	if _, err := r.col.UpdateByID(ctx, chatID, update); err != nil {
		return fmt.Errorf("unhide chat: %w", err)
	}
	return nil
}

func (r *ChatRepo) SetHidden(ctx context.Context, chatID, userID primitive.ObjectID) error {
	update := bson.M{"$addToSet": bson.M{"hiddenBy": userID}}
	res, err := r.col.UpdateByID(ctx, chatID, update)
	if err != nil {
		return fmt.Errorf("set hidden: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
