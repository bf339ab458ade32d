package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pulsegram/internal/domain"
)

// UserService covers profiles, the social graph, search, and the bounded
// recent-search list.
type UserService struct {
	users         domain.UserRepository
	notifications *NotificationService
	tx            domain.TxRunner
	log           zerolog.Logger
}

func NewUserService(users domain.UserRepository, notifications *NotificationService, tx domain.TxRunner, log zerolog.Logger) *UserService {
	return &UserService{users: users, notifications: notifications, tx: tx, log: log}
}

func (s *UserService) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user not found", domain.ErrNotFound)
	}
	return user, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, NormalizeHandle(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user not found", domain.ErrNotFound)
	}
	return user, nil
}

type UpdateProfileInput struct {
	FullName  *string
	Bio       *string
	AvatarURL *string
	DOB       *string
}

func (s *UserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, in UpdateProfileInput) (*domain.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", domain.ErrInvalidInput)
		}
		user.FullName = name
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}
	if in.AvatarURL != nil {
		user.AvatarURL = *in.AvatarURL
	}
	if in.DOB != nil {
		user.DOB = *in.DOB
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ToggleFollow flips the follow edge from actor to target. Both user
// documents are mutated inside one transaction so a successful call never
// leaves a half-applied edge. Following fires a notification; unfollowing
// does not.
func (s *UserService) ToggleFollow(ctx context.Context, actor, target primitive.ObjectID) (following bool, err error) {
	if actor == target {
		return false, fmt.Errorf("%w: cannot follow yourself", domain.ErrInvalidInput)
	}
	targetUser, err := s.users.GetByID(ctx, target)
	if err != nil {
		return false, err
	}
	if targetUser == nil {
		return false, fmt.Errorf("%w: user not found", domain.ErrNotFound)
	}
	actorUser, err := s.users.GetByID(ctx, actor)
	if err != nil {
		return false, err
	}
	if actorUser == nil {
		return false, fmt.Errorf("%w: user not found", domain.ErrNotFound)
	}

	follow := !domain.ContainsID(actorUser.Following, target)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.users.SetFollow(ctx, actor, target, follow)
	})
	if err != nil {
		return false, fmt.Errorf("toggle follow: %w", err)
	}

	if follow {
		s.notifications.Notify(ctx, domain.Notification{
			Recipient: target,
			Sender:    actor,
			Type:      domain.NotificationFollow,
		})
	}
	return follow, nil
}

func (s *UserService) ListFollowers(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*domain.User, error) {
	return s.listGraph(ctx, userID, page, limit, func(u *domain.User) []primitive.ObjectID { return u.Followers })
}

func (s *UserService) ListFollowing(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*domain.User, error) {
	return s.listGraph(ctx, userID, page, limit, func(u *domain.User) []primitive.ObjectID { return u.Following })
}

func (s *UserService) listGraph(ctx context.Context, userID primitive.ObjectID, page, limit int, pick func(*domain.User) []primitive.ObjectID) ([]*domain.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := pick(user)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= len(ids) {
		return []*domain.User{}, nil
	}
	end := start + limit
	if end > len(ids) {
		end = len(ids)
	}
	return s.users.ListByIDs(ctx, ids[start:end])
}

func (s *UserService) Search(ctx context.Context, query string, limit int) ([]*domain.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", domain.ErrInvalidInput)
	}
	return s.users.Search(ctx, strings.TrimPrefix(query, "@"), limit)
}

// RecordRecentSearch stores a selected profile in the actor's MRU list,
// bounded and deduplicated by the repository.
func (s *UserService) RecordRecentSearch(ctx context.Context, actor, target primitive.ObjectID) error {
	targetUser, err := s.users.GetByID(ctx, target)
	if err != nil {
		return err
	}
	if targetUser == nil {
		return fmt.Errorf("%w: user not found", domain.ErrNotFound)
	}
	return s.users.PushRecentSearch(ctx, actor, target)
}

func (s *UserService) RecentSearches(ctx context.Context, userID primitive.ObjectID) ([]*domain.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(user.RecentSearches) == 0 {
		return []*domain.User{}, nil
	}
	found, err := s.users.ListByIDs(ctx, user.RecentSearches)
	if err != nil {
		return nil, err
	}
	// preserve MRU order; ListByIDs has no ordering guarantee
	byID := make(map[primitive.ObjectID]*domain.User, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}
	ordered := make([]*domain.User, 0, len(user.RecentSearches))
	for _, id := range user.RecentSearches {
		if u, ok := byID[id]; ok {
			ordered = append(ordered, u)
		}
	}
	return ordered, nil
}

func (s *UserService) RemoveRecentSearch(ctx context.Context, userID, target primitive.ObjectID) error {
	return s.users.RemoveRecentSearch(ctx, userID, target)
}
