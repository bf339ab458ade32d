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

type UserRepo struct {
	col *mongo.Collection
}

func NewUserRepo(s *Store) *UserRepo {
	return &UserRepo{col: s.db.Collection(colUsers)}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Followers == nil {
		u.Followers = []primitive.ObjectID{}
	}
	if u.Following == nil {
		u.Following = []primitive.ObjectID{}
	}
	_, err := r.col.InsertOne(ctx, u)
	if IsDuplicateKey(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var u domain.User
	err := r.col.FindOne(ctx, filter).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepo) GetByVerifyTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"verifyTokenHash": hash})
}

func (r *UserRepo) GetByResetTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"resetTokenHash": hash})
}

func (r *UserRepo) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*domain.User, error) {
	if len(ids) == 0 {
		return []*domain.User{}, nil
	}
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var users []*domain.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (r *UserRepo) Search(ctx context.Context, query string, limit int) ([]*domain.User, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := primitive.Regex{Pattern: regexQuote(query), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"username": pattern},
		bson.M{"fullName": pattern},
	}}
	cur, err := r.col.Find(ctx, filter, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	var users []*domain.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if IsDuplicateKey(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepo) SetVerified(ctx context.Context, id primitive.ObjectID) error {
	update := bson.M{
		"$set":   bson.M{"isVerified": true, "updatedAt": time.Now().UTC()},
		"$unset": bson.M{"verifyTokenHash": "", "verifyTokenExpires": ""},
	}
	res, err := r.col.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("set verified: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepo) BumpTokenVersion(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$inc": bson.M{"tokenVersion": 1}})
	if err != nil {
		return fmt.Errorf("bump token version: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepo) AdjustPostsCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	filter := bson.M{"_id": id}
	if delta < 0 {
		// never decrement below zero
		filter["postsCount"] = bson.M{"$gt": 0}
	}
	_, err := r.col.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"postsCount": delta}})
	if err != nil {
		return fmt.Errorf("adjust posts count: %w", err)
	}
	return nil
}

func (r *UserRepo) SetFollow(ctx context.Context, follower, followee primitive.ObjectID, follow bool) error {
	op := "$addToSet"
	if !follow {
		op = "$pull"
	}
	if _, err := r.col.UpdateByID(ctx, follower, bson.M{op: bson.M{"following": followee}}); err != nil {
		return fmt.Errorf("update follower doc: %w", err)
	}
	if _, err := r.col.UpdateByID(ctx, followee, bson.M{op: bson.M{"followers": follower}}); err != nil {
		return fmt.Errorf("update followee doc: %w", err)
	}
	return nil
}

func (r *UserRepo) PushRecentSearch(ctx context.Context, userID, target primitive.ObjectID) error {
	// pull first so a re-search moves the entry to the front
	if _, err := r.col.UpdateByID(ctx, userID, bson.M{"$pull": bson.M{"recentSearches": target}}); err != nil {
		return fmt.Errorf("dedupe recent search: %w", err)
	}
	update := bson.M{"$push": bson.M{"recentSearches": bson.M{
		"$each":     bson.A{target},
		"$position": 0,
		"$slice":    domain.MaxRecentSearches,
	}}}
	if _, err := r.col.UpdateByID(ctx, userID, update); err != nil {
		return fmt.Errorf("push recent search: %w", err)
	}
	return nil
}

func (r *UserRepo) RemoveRecentSearch(ctx context.Context, userID, target primitive.ObjectID) error {
	_, err := r.col.UpdateByID(ctx, userID, bson.M{"$pull": bson.M{"recentSearches": target}})
	if err != nil {
		return fmt.Errorf("remove recent search: %w", err)
	}
	return nil
}

func regexQuote(s string) string {
	special := `\.+*?()|[]{}^$`
	out := make([]rune, 0, len(s))
	for _, c := range s {
		for _, sp := range special {
			if c == sp {
				out = append(out, '\\')
				break
			}
		}
		out = append(out, c)
	}
	return string(out)
}
