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

type PostRepo struct {
	col *mongo.Collection
}

func NewPostRepo(s *Store) *PostRepo {
	return &PostRepo{col: s.db.Collection(colPosts)}
}

func (r *PostRepo) Create(ctx context.Context, p *domain.Post) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Likes == nil {
		p.Likes = []primitive.ObjectID{}
	}
	if p.Saves == nil {
		p.Saves = []primitive.ObjectID{}
	}
	if p.Visibility == "" {
		p.Visibility = domain.VisibilityPublic
	}
	if _, err := r.col.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (r *PostRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Post, error) {
	var p domain.Post
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post: %w", err)
	}
	return &p, nil
}

func (r *PostRepo) Update(ctx context.Context, p *domain.Post) error {
	p.UpdatedAt = time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"caption":    p.Caption,
		"visibility": p.Visibility,
		"isEdited":   p.IsEdited,
		"updatedAt":  p.UpdatedAt,
	}}
	res, err := r.col.UpdateByID(ctx, p.ID, update)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostRepo) list(ctx context.Context, filter bson.M, page, limit int) ([]*domain.Post, error) {
	skip, lim := pageOpts(page, limit)
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(lim)
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	posts := []*domain.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	return posts, nil
}

func (r *PostRepo) ListFeed(ctx context.Context, viewer primitive.ObjectID, authors []primitive.ObjectID, visibilities []string, page, limit int) ([]*domain.Post, error) {
	followed := bson.M{
		"author":     bson.M{"$in": authors},
		"visibility": bson.M{"$in": visibilities},
	}
	// the viewer's own posts are visible regardless of visibility
	return r.list(ctx, bson.M{
		"$or": []bson.M{followed, {"author": viewer}},
	}, page, limit)
}

func (r *PostRepo) ListByAuthor(ctx context.Context, author primitive.ObjectID, visibilities []string, page, limit int) ([]*domain.Post, error) {
	return r.list(ctx, bson.M{
		"author":     author,
		"visibility": bson.M{"$in": visibilities},
	}, page, limit)
}

func (r *PostRepo) ListSavedBy(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*domain.Post, error) {
	return r.list(ctx, bson.M{"saves": userID}, page, limit)
}

func (r *PostRepo) SetLike(ctx context.Context, postID, userID primitive.ObjectID, on bool) error {
	return r.setMember(ctx, postID, "likes", userID, on)
}

func (r *PostRepo) SetSave(ctx context.Context, postID, userID primitive.ObjectID, on bool) error {
	return r.setMember(ctx, postID, "saves", userID, on)
}

func (r *PostRepo) setMember(ctx context.Context, postID primitive.ObjectID, field string, userID primitive.ObjectID, on bool) error {
	op := "$addToSet"
	if !on {
		op = "$pull"
	}
	res, err := r.col.UpdateByID(ctx, postID, bson.M{op: bson.M{field: userID}})
	if err != nil {
		return fmt.Errorf("update post %s: %w", field, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostRepo) AdjustCommentsCount(ctx context.Context, postID primitive.ObjectID, delta int) error {
	filter := bson.M{"_id": postID}
	if delta < 0 {
		filter["commentsCount"] = bson.M{"$gt": 0}
	}
	if _, err := r.col.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"commentsCount": delta}}); err != nil {
		return fmt.Errorf("adjust comments count: %w", err)
	}
	return nil
}
