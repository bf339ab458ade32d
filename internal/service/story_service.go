package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pulsegram/internal/domain"
	"pulsegram/internal/media"
)

const storyLifetime = 24 * time.Hour

// StoryService handles ephemeral stories. Expiry is enforced on every read;
// the storage TTL only reclaims disk.
type StoryService struct {
	stories domain.StoryRepository
	users   domain.UserRepository
	assets  media.AssetStore
	log     zerolog.Logger
	now     func() time.Time
}

func NewStoryService(stories domain.StoryRepository, users domain.UserRepository, assets media.AssetStore, log zerolog.Logger) *StoryService {
	return &StoryService{stories: stories, users: users, assets: assets, log: log, now: func() time.Time { return time.Now().UTC() }}
}

type CreateStoryInput struct {
	MediaURL string
	AssetKey string
	Kind     string
	Duration int
}

func (s *StoryService) Create(ctx context.Context, author primitive.ObjectID, in CreateStoryInput) (*domain.Story, error) {
	if in.MediaURL == "" {
		return nil, fmt.Errorf("%w: story media is required", domain.ErrInvalidInput)
	}
	switch in.Kind {
	case domain.MediaImage:
	case domain.MediaVideo:
		if in.Duration < domain.MinVideoDuration || in.Duration > domain.MaxVideoDuration {
			s.cleanupAsset(ctx, in.AssetKey)
			return nil, fmt.Errorf("%w: video duration must be between %d and %d seconds", domain.ErrInvalidInput, domain.MinVideoDuration, domain.MaxVideoDuration)
		}
	default:
		s.cleanupAsset(ctx, in.AssetKey)
		return nil, fmt.Errorf("%w: unknown media kind %q", domain.ErrInvalidInput, in.Kind)
	}

	now := s.now()
	story := &domain.Story{
		User:      author,
		MediaURL:  in.MediaURL,
		AssetKey:  in.AssetKey,
		Kind:      in.Kind,
		CreatedAt: now,
		ExpiresAt: now.Add(storyLifetime),
	}
	if err := s.stories.Create(ctx, story); err != nil {
		return nil, err
	}
	return story, nil
}

func (s *StoryService) cleanupAsset(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.assets.Remove(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("asset", key).Msg("remove story asset")
	}
}

func (s *StoryService) Delete(ctx context.Context, storyID, actor primitive.ObjectID) error {
	story, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		return err
	}
	if story == nil {
		return fmt.Errorf("%w: story not found", domain.ErrNotFound)
	}
	if story.User != actor {
		return fmt.Errorf("%w: only the author can delete a story", domain.ErrForbidden)
	}
	s.cleanupAsset(ctx, story.AssetKey)
	return s.stories.Delete(ctx, storyID)
}

// StoryGroup is one author's unexpired stories, oldest first.
type StoryGroup struct {
	Author  *domain.User    `json:"author"`
	Stories []*domain.Story `json:"stories"`
}

// Feed returns unexpired stories from the viewer and everyone they follow,
// grouped per author. The viewer's own group, when present, comes first.
func (s *StoryService) Feed(ctx context.Context, viewer primitive.ObjectID) ([]*StoryGroup, error) {
	user, err := s.users.GetByID(ctx, viewer)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user not found", domain.ErrNotFound)
	}
	authors := append([]primitive.ObjectID{viewer}, user.Following...)
	stories, err := s.stories.ListActiveByUsers(ctx, authors, s.now())
	if err != nil {
		return nil, err
	}
	byAuthor := make(map[primitive.ObjectID][]*domain.Story)
	order := make([]primitive.ObjectID, 0)
	for _, st := range stories {
		if _, seen := byAuthor[st.User]; !seen {
			order = append(order, st.User)
		}
		byAuthor[st.User] = append(byAuthor[st.User], st)
	}

	groups := make([]*StoryGroup, 0, len(order))
	appendGroup := func(id primitive.ObjectID) error {
		author, err := s.users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if author == nil {
			return nil
		}
		groups = append(groups, &StoryGroup{Author: author, Stories: byAuthor[id]})
		return nil
	}
	if _, ok := byAuthor[viewer]; ok {
		if err := appendGroup(viewer); err != nil {
			return nil, err
		}
	}
	for _, id := range order {
		if id == viewer {
			continue
		}
		if err := appendGroup(id); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// View marks the story seen by the viewer. The author is never recorded in
// their own viewer list.
func (s *StoryService) View(ctx context.Context, storyID, viewer primitive.ObjectID) (*domain.Story, error) {
	story, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if story == nil || !story.ExpiresAt.After(s.now()) {
		return nil, fmt.Errorf("%w: story not found", domain.ErrNotFound)
	}
	if viewer != story.User && !domain.ContainsID(story.Viewers, viewer) {
		if err := s.stories.AddViewer(ctx, storyID, viewer); err != nil {
			return nil, err
		}
		story.Viewers = append(story.Viewers, viewer)
	}
	return story, nil
}
