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

type NotificationRepo struct {
	col *mongo.Collection
}

func NewNotificationRepo(s *Store) *NotificationRepo {
	return &NotificationRepo{col: s.db.Collection(colNotifications)}
}

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	n.CreatedAt = time.Now().UTC()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if _, err := r.col.InsertOne(ctx, n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepo) ListForRecipient(ctx context.Context, recipient primitive.ObjectID, page, limit int) ([]*domain.Notification, error) {
	skip, lim := pageOpts(page, limit)
	filter := bson.M{"recipient": recipient, "isDeleted": false}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(lim)
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	ns := []*domain.Notification{}
	if err := cur.All(ctx, &ns); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}
	return ns, nil
}

func (r *NotificationRepo) CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{
		"recipient": recipient,
		"isRead":    false,
		"isDeleted": false,
	})
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id, recipient primitive.ObjectID) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "recipient": recipient},
		bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, recipient primitive.ObjectID) error {
	_, err := r.col.UpdateMany(ctx,
		bson.M{"recipient": recipient, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

func (r *NotificationRepo) SoftDelete(ctx context.Context, id, recipient primitive.ObjectID) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "recipient": recipient},
		bson.M{"$set": bson.M{"isDeleted": true}})
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *NotificationRepo) ClearFor(ctx context.Context, recipient primitive.ObjectID) error {
	_, err := r.col.UpdateMany(ctx,
		bson.M{"recipient": recipient},
		bson.M{"$set": bson.M{"isDeleted": true}})
	if err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}

func (r *NotificationRepo) DeleteByPost(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"post": postID})
	if err != nil {
		return 0, fmt.Errorf("delete notifications by post: %w", err)
	}
	return res.DeletedCount, nil
}
