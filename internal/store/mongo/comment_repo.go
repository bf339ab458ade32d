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

type CommentRepo struct {
	col *mongo.Collection
}

func NewCommentRepo(s *Store) *CommentRepo {
	return &CommentRepo{col: s.db.Collection(colComments)}
}

func (r *CommentRepo) Create(ctx context.Context, c *domain.Comment) error {
	c.CreatedAt = time.Now().UTC()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if _, err := r.col.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (r *CommentRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Comment, error) {
	var c domain.Comment
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find comment: %w", err)
	}
	return &c, nil
}

func (r *CommentRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CommentRepo) DeleteReplies(ctx context.Context, parentID primitive.ObjectID) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"parentComment": parentID})
	if err != nil {
		return 0, fmt.Errorf("delete replies: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *CommentRepo) DeleteByPost(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"post": postID})
	if err != nil {
		return 0, fmt.Errorf("delete comments by post: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *CommentRepo) list(ctx context.Context, filter bson.M, page, limit int) ([]*domain.Comment, error) {
	skip, lim := pageOpts(page, limit)
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetSkip(skip).
		SetLimit(lim)
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	comments := []*domain.Comment{}
	if err := cur.All(ctx, &comments); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	return comments, nil
}

func (r *CommentRepo) ListTopLevel(ctx context.Context, postID primitive.ObjectID, page, limit int) ([]*domain.Comment, error) {
	return r.list(ctx, bson.M{"post": postID, "parentComment": nil}, page, limit)
}

func (r *CommentRepo) ListReplies(ctx context.Context, parentID primitive.ObjectID, page, limit int) ([]*domain.Comment, error) {
	return r.list(ctx, bson.M{"parentComment": parentID}, page, limit)
}
