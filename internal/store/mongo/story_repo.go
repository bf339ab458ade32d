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

type StoryRepo struct {
	col *mongo.Collection
}

func NewStoryRepo(s *Store) *StoryRepo {
	return &StoryRepo{col: s.db.Collection(colStories)}
}

func (r *StoryRepo) Create(ctx context.Context, story *domain.Story) error {
	story.CreatedAt = time.Now().UTC()
	if story.ID.IsZero() {
		story.ID = primitive.NewObjectID()
	}
	if story.Viewers == nil {
		story.Viewers = []primitive.ObjectID{}
	}
	if _, err := r.col.InsertOne(ctx, story); err != nil {
		return fmt.Errorf("insert story: %w", err)
	}
	return nil
}

func (r *StoryRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Story, error) {
	var s domain.Story
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find story: %w", err)
	}
	return &s, nil
}

func (r *StoryRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete story: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListActiveByUsers returns unexpired stories for the given users,
// oldest-first. The expiresAt filter is authoritative even when the TTL
// monitor has not yet removed an expired document.
func (r *StoryRepo) ListActiveByUsers(ctx context.Context, userIDs []primitive.ObjectID, now time.Time) ([]*domain.Story, error) {
	if len(userIDs) == 0 {
		return []*domain.Story{}, nil
	}
	filter := bson.M{
		"user":      bson.M{"$in": userIDs},
		"expiresAt": bson.M{"$gt": now},
	}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	stories := []*domain.Story{}
	if err := cur.All(ctx, &stories); err != nil {
		return nil, fmt.Errorf("decode stories: %w", err)
	}
	return stories, nil
}

func (r *StoryRepo) AddViewer(ctx context.Context, storyID, userID primitive.ObjectID) error {
	res, err := r.col.UpdateByID(ctx, storyID, bson.M{"$addToSet": bson.M{"viewers": userID}})
	if err != nil {
		return fmt.Errorf("add story viewer: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
