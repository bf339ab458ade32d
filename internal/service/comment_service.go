package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pulsegram/internal/domain"
)

const maxCommentRunes = 1000

// CommentService keeps the thread two levels deep: replies to replies are
// flattened onto the top-level parent.
type CommentService struct {
	comments      domain.CommentRepository
	posts         domain.PostRepository
	notifications *NotificationService
	log           zerolog.Logger
}

func NewCommentService(comments domain.CommentRepository, posts domain.PostRepository, notifications *NotificationService, log zerolog.Logger) *CommentService {
	return &CommentService{comments: comments, posts: posts, notifications: notifications, log: log}
}

type CreateCommentInput struct {
	Content string
	Parent  *primitive.ObjectID
}

func (s *CommentService) Create(ctx context.Context, postID, author primitive.ObjectID, in CreateCommentInput) (*domain.Comment, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		return nil, fmt.Errorf("%w: comment content is required", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(in.Content) > maxCommentRunes {
		return nil, fmt.Errorf("%w: comment exceeds %d characters", domain.ErrInvalidInput, maxCommentRunes)
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("%w: post not found", domain.ErrNotFound)
	}

	notifyTarget := post.Author
	var replyTo *primitive.ObjectID
	if in.Parent != nil {
		parent, err := s.comments.GetByID(ctx, *in.Parent)
		if err != nil {
			return nil, err
		}
		if parent == nil || parent.Post != postID {
			return nil, fmt.Errorf("%w: parent comment not found", domain.ErrNotFound)
		}
		// replying to a reply attaches to the top-level comment instead
		if parent.ParentComment != nil {
			in.Parent = parent.ParentComment
		}
		parentAuthor := parent.Author
		replyTo = &parentAuthor
		notifyTarget = parent.Author
	}

	comment := &domain.Comment{
		Post:          postID,
		Author:        author,
		Text:          in.Content,
		ParentComment: in.Parent,
		ReplyToUser:   replyTo,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	if err := s.posts.AdjustCommentsCount(ctx, postID, 1); err != nil {
		s.log.Error().Err(err).Str("post", postID.Hex()).Msg("bump comments count")
	}
	s.notifications.Notify(ctx, domain.Notification{
		Recipient: notifyTarget,
		Sender:    author,
		Type:      domain.NotificationComment,
		Post:      &postID,
		Comment:   &comment.ID,
	})
	return comment, nil
}

// Delete removes a comment, its replies when it is top-level, and adjusts
// the post counter by the number of removed documents. Allowed for the
// comment author or the post author.
func (s *CommentService) Delete(ctx context.Context, commentID, actor primitive.ObjectID) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment == nil {
		return fmt.Errorf("%w: comment not found", domain.ErrNotFound)
	}
	post, err := s.posts.GetByID(ctx, comment.Post)
	if err != nil {
		return err
	}
	if comment.Author != actor && (post == nil || post.Author != actor) {
		return fmt.Errorf("%w: not allowed to delete this comment", domain.ErrForbidden)
	}

	removed := int64(1)
	if comment.ParentComment == nil {
		n, err := s.comments.DeleteReplies(ctx, commentID)
		if err != nil {
			return err
		}
		removed += n
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		return err
	}
	if post != nil {
		if err := s.posts.AdjustCommentsCount(ctx, comment.Post, -int(removed)); err != nil {
			s.log.Error().Err(err).Str("post", comment.Post.Hex()).Msg("drop comments count")
		}
	}
	return nil
}

// CommentThread is a top-level comment with its flattened replies.
type CommentThread struct {
	Comment *domain.Comment   `json:"comment"`
	Replies []*domain.Comment `json:"replies"`
}

func (s *CommentService) ListForPost(ctx context.Context, postID primitive.ObjectID, page, limit int) ([]*CommentThread, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("%w: post not found", domain.ErrNotFound)
	}
	top, err := s.comments.ListTopLevel(ctx, postID, page, limit)
	if err != nil {
		return nil, err
	}
	threads := make([]*CommentThread, 0, len(top))
	for _, c := range top {
		replies, err := s.comments.ListReplies(ctx, c.ID, 1, 100)
		if err != nil {
			return nil, err
		}
		threads = append(threads, &CommentThread{Comment: c, Replies: replies})
	}
	return threads, nil
}
