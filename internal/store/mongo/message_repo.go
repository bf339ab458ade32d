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

type MessageRepo struct {
	col *mongo.Collection
}

func NewMessageRepo(s *Store) *MessageRepo {
	return &MessageRepo{col: s.db.Collection(colMessages)}
}

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	m.CreatedAt = time.Now().UTC()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if m.ReadBy == nil {
		m.ReadBy = []primitive.ObjectID{m.Sender}
	}
	if _, err := r.col.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Message, error) {
	var m domain.Message
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find message: %w", err)
	}
	return &m, nil
}

// ListForChat returns a page of the chat's messages oldest-first, excluding
// messages the requester has deleted for themselves.
func (r *MessageRepo) ListForChat(ctx context.Context, chatID, requester primitive.ObjectID, page, limit int) ([]*domain.Message, error) {
	skip, lim := pageOpts(page, limit)
	filter := bson.M{
		"chat":       chatID,
		"deletedFor": bson.M{"$ne": requester},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetSkip(skip).
		SetLimit(lim)
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	msgs := []*domain.Message{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return msgs, nil
}

func (r *MessageRepo) LastForChat(ctx context.Context, chatID primitive.ObjectID) (*domain.Message, error) {
	var m domain.Message
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	err := r.col.FindOne(ctx, bson.M{"chat": chatID}, opts).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find last message: %w", err)
	}
	return &m, nil
}

func (r *MessageRepo) MarkReadInChat(ctx context.Context, chatID, userID primitive.ObjectID) error {
	filter := bson.M{
		"chat":   chatID,
		"sender": bson.M{"$ne": userID},
		"readBy": bson.M{"$ne": userID},
	}
	if _, err := r.col.UpdateMany(ctx, filter, bson.M{"$addToSet": bson.M{"readBy": userID}}); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

func (r *MessageRepo) AddDeletedFor(ctx context.Context, msgID, userID primitive.ObjectID) error {
	res, err := r.col.UpdateByID(ctx, msgID, bson.M{"$addToSet": bson.M{"deletedFor": userID}})
	if err != nil {
		return fmt.Errorf("delete message for user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MessageRepo) SetDeleted(ctx context.Context, msgID primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"isDeleted": true, "content": "", "mediaUrl": ""}}
	res, err := r.col.UpdateByID(ctx, msgID, update)
	if err != nil {
		return fmt.Errorf("soft delete message: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MessageRepo) ListByPost(ctx context.Context, postID primitive.ObjectID) ([]*domain.Message, error) {
	cur, err := r.col.Find(ctx, bson.M{"post": postID})
	if err != nil {
		return nil, fmt.Errorf("list messages by post: %w", err)
	}
	msgs := []*domain.Message{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return msgs, nil
}

func (r *MessageRepo) DeleteByPost(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"post": postID})
	if err != nil {
		return 0, fmt.Errorf("delete messages by post: %w", err)
	}
	return res.DeletedCount, nil
}
