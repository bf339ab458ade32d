package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pulsegram/internal/domain"
	"pulsegram/internal/media"
)

// PostService covers post CRUD, like/save toggles, the follow feed, and the
// deletion cascade across comments, notifications, shared chat messages,
// and remote media assets.
type PostService struct {
	posts         domain.PostRepository
	comments      domain.CommentRepository
	messages      domain.MessageRepository
	chats         domain.ChatRepository
	users         domain.UserRepository
	notifications *NotificationService
	notifRepo     domain.NotificationRepository
	assets        media.AssetStore
	pub           Publisher
	tx            domain.TxRunner
	log           zerolog.Logger
}

func NewPostService(
	posts domain.PostRepository,
	comments domain.CommentRepository,
	messages domain.MessageRepository,
	chats domain.ChatRepository,
	users domain.UserRepository,
	notifications *NotificationService,
	notifRepo domain.NotificationRepository,
	assets media.AssetStore,
	pub Publisher,
	tx domain.TxRunner,
	log zerolog.Logger,
) *PostService {
	return &PostService{
		posts:         posts,
		comments:      comments,
		messages:      messages,
		chats:         chats,
		users:         users,
		notifications: notifications,
		notifRepo:     notifRepo,
		assets:        assets,
		pub:           pub,
		tx:            tx,
		log:           log,
	}
}

type CreatePostInput struct {
	Caption    string
	Media      []domain.MediaItem
	Visibility string
}

func (s *PostService) Create(ctx context.Context, author primitive.ObjectID, in CreatePostInput) (*domain.Post, error) {
	in.Caption = strings.TrimSpace(in.Caption)
	if in.Caption == "" && len(in.Media) == 0 {
		return nil, fmt.Errorf("%w: a post needs a caption or media", domain.ErrInvalidInput)
	}
	switch in.Visibility {
	case "":
		in.Visibility = domain.VisibilityPublic
	case domain.VisibilityPublic, domain.VisibilityFollowers, domain.VisibilityPrivate:
	default:
		return nil, fmt.Errorf("%w: unknown visibility %q", domain.ErrInvalidInput, in.Visibility)
	}

	for _, item := range in.Media {
		if err := s.validateMediaItem(ctx, item, in.Media); err != nil {
			return nil, err
		}
	}

	post := &domain.Post{
		Author:     author,
		Caption:    in.Caption,
		Media:      in.Media,
		Visibility: in.Visibility,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	if err := s.users.AdjustPostsCount(ctx, author, 1); err != nil {
		s.log.Error().Err(err).Str("user", author.Hex()).Msg("bump posts count")
	}
	return post, nil
}

// validateMediaItem rejects malformed media. A rejected upload has its
// already-stored assets removed from the remote host, best-effort.
func (s *PostService) validateMediaItem(ctx context.Context, item domain.MediaItem, all []domain.MediaItem) error {
	bad := func(format string, args ...any) error {
		s.removeAssets(ctx, all)
		return fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidInput}, args...)...)
	}
	if item.URL == "" {
		return bad("media url is required")
	}
	switch item.Kind {
	case domain.MediaImage:
	case domain.MediaVideo:
		if item.Duration < domain.MinVideoDuration || item.Duration > domain.MaxVideoDuration {
			return bad("video duration must be between %d and %d seconds", domain.MinVideoDuration, domain.MaxVideoDuration)
		}
	default:
		return bad("unknown media kind %q", item.Kind)
	}
	return nil
}

func (s *PostService) removeAssets(ctx context.Context, items []domain.MediaItem) {
	for _, item := range items {
		if item.AssetKey == "" {
			continue
		}
		if err := s.assets.Remove(ctx, item.AssetKey); err != nil {
			s.log.Warn().Err(err).Str("asset", item.AssetKey).Msg("remove media asset")
		}
	}
}

// Get returns the post if the viewer may see it. viewer is nil for
// unauthenticated requests.
func (s *PostService) Get(ctx context.Context, id primitive.ObjectID, viewer *primitive.ObjectID) (*domain.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("%w: post not found", domain.ErrNotFound)
	}
	ok, err := s.canView(ctx, post, viewer)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: post not found", domain.ErrNotFound)
	}
	return post, nil
}

func (s *PostService) canView(ctx context.Context, post *domain.Post, viewer *primitive.ObjectID) (bool, error) {
	if viewer != nil && *viewer == post.Author {
		return true, nil
	}
	switch post.Visibility {
	case domain.VisibilityPublic:
		return true, nil
	case domain.VisibilityPrivate:
		return false, nil
	case domain.VisibilityFollowers:
		if viewer == nil {
			return false, nil
		}
		author, err := s.users.GetByID(ctx, post.Author)
		if err != nil {
			return false, err
		}
		return author != nil && domain.ContainsID(author.Followers, *viewer), nil
	}
	return false, nil
}

// Feed returns posts from the people the viewer follows plus their own,
// newest-first.
func (s *PostService) Feed(ctx context.Context, viewer primitive.ObjectID, page, limit int) ([]*domain.Post, error) {
	user, err := s.users.GetByID(ctx, viewer)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user not found", domain.ErrNotFound)
	}
	visible := []string{domain.VisibilityPublic, domain.VisibilityFollowers}
	return s.posts.ListFeed(ctx, viewer, user.Following, visible, page, limit)
}

func (s *PostService) ListByAuthor(ctx context.Context, author primitive.ObjectID, viewer *primitive.ObjectID, page, limit int) ([]*domain.Post, error) {
	visible := []string{domain.VisibilityPublic}
	if viewer != nil {
		if *viewer == author {
			visible = []string{domain.VisibilityPublic, domain.VisibilityFollowers, domain.VisibilityPrivate}
		} else {
			authorUser, err := s.users.GetByID(ctx, author)
			if err != nil {
				return nil, err
			}
			if authorUser != nil && domain.ContainsID(authorUser.Followers, *viewer) {
				visible = []string{domain.VisibilityPublic, domain.VisibilityFollowers}
			}
		}
	}
	return s.posts.ListByAuthor(ctx, author, visible, page, limit)
}

type UpdatePostInput struct {
	Caption    *string
	Visibility *string
}

func (s *PostService) Update(ctx context.Context, id, actor primitive.ObjectID, in UpdatePostInput) (*domain.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("%w: post not found", domain.ErrNotFound)
	}
	if post.Author != actor {
		return nil, fmt.Errorf("%w: only the author can edit a post", domain.ErrForbidden)
	}
	if in.Caption != nil {
		post.Caption = strings.TrimSpace(*in.Caption)
		post.IsEdited = true
	}
	if in.Visibility != nil {
		switch *in.Visibility {
		case domain.VisibilityPublic, domain.VisibilityFollowers, domain.VisibilityPrivate:
			post.Visibility = *in.Visibility
		default:
			return nil, fmt.Errorf("%w: unknown visibility %q", domain.ErrInvalidInput, *in.Visibility)
		}
	}
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes a post and cascades: remote media assets first
// (best-effort), then shared chat messages, notifications, and comments,
// the post itself, and the author's post counter. Every chat that lost its
// last message gets it recomputed and its room notified.
func (s *PostService) Delete(ctx context.Context, id, actor primitive.ObjectID) error {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if post == nil {
		return fmt.Errorf("%w: post not found", domain.ErrNotFound)
	}
	if post.Author != actor {
		return fmt.Errorf("%w: only the author can delete a post", domain.ErrForbidden)
	}

	// remote cleanup first: a crash mid-sequence leaves at most orphaned
	// cleanup, never a dangling reference to a still-existing post
	s.removeAssets(ctx, post.Media)

	shared, err := s.messages.ListByPost(ctx, id)
	if err != nil {
		return fmt.Errorf("list shared messages: %w", err)
	}
	affected := make(map[primitive.ObjectID]struct{}, len(shared))
	for _, m := range shared {
		affected[m.Chat] = struct{}{}
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.messages.DeleteByPost(ctx, id); err != nil {
			return err
		}
		if _, err := s.notifRepo.DeleteByPost(ctx, id); err != nil {
			return err
		}
		if _, err := s.comments.DeleteByPost(ctx, id); err != nil {
			return err
		}
		if err := s.posts.Delete(ctx, id); err != nil {
			return err
		}
		return s.users.AdjustPostsCount(ctx, post.Author, -1)
	})
	if err != nil {
		return fmt.Errorf("delete post cascade: %w", err)
	}

	for chatID := range affected {
		s.refreshChatAfterCascade(ctx, chatID, id)
	}
	return nil
}

func (s *PostService) refreshChatAfterCascade(ctx context.Context, chatID, postID primitive.ObjectID) {
	room := chatID.Hex()
	last, err := s.messages.LastForChat(ctx, chatID)
	if err != nil {
		s.log.Error().Err(err).Str("chat", room).Msg("recompute last message")
		return
	}
	if last == nil {
		if err := s.chats.ClearLastMessage(ctx, chatID); err != nil {
			s.log.Error().Err(err).Str("chat", room).Msg("clear last message")
			return
		}
	} else if err := s.chats.SetLastMessage(ctx, chatID, last.ID, last.CreatedAt); err != nil {
		s.log.Error().Err(err).Str("chat", room).Msg("update last message")
		return
	}
	s.pub.Publish(room, EventMessagesDeleted, map[string]string{"postId": postID.Hex()})
	if chat, err := s.chats.GetByID(ctx, chatID); err == nil && chat != nil {
		s.pub.Publish(room, EventChatUpdated, chat)
	}
}

// ToggleLike flips the actor's like on a post; liking fires a notification
// to the author.
func (s *PostService) ToggleLike(ctx context.Context, postID, actor primitive.ObjectID) (liked bool, err error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return false, err
	}
	if post == nil {
		return false, fmt.Errorf("%w: post not found", domain.ErrNotFound)
	}
	liked = !domain.ContainsID(post.Likes, actor)
	if err := s.posts.SetLike(ctx, postID, actor, liked); err != nil {
		return false, err
	}
	if liked {
		s.notifications.Notify(ctx, domain.Notification{
			Recipient: post.Author,
			Sender:    actor,
			Type:      domain.NotificationLike,
			Post:      &post.ID,
		})
	}
	return liked, nil
}

func (s *PostService) ToggleSave(ctx context.Context, postID, actor primitive.ObjectID) (saved bool, err error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return false, err
	}
	if post == nil {
		return false, fmt.Errorf("%w: post not found", domain.ErrNotFound)
	}
	saved = !domain.ContainsID(post.Saves, actor)
	if err := s.posts.SetSave(ctx, postID, actor, saved); err != nil {
		return false, err
	}
	return saved, nil
}

func (s *PostService) ListSaved(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*domain.Post, error) {
	return s.posts.ListSavedBy(ctx, userID, page, limit)
}
