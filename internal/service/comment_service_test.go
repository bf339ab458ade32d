package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pulsegram/internal/domain"
	"pulsegram/internal/service"
)

type commentFixture struct {
	comments *MockCommentRepo
	posts    *MockPostRepo
	notifs   *MockNotificationRepo
	svc      *service.CommentService
}

func newCommentFixture() *commentFixture {
	f := &commentFixture{
		comments: new(MockCommentRepo),
		posts:    new(MockPostRepo),
		notifs:   new(MockNotificationRepo),
	}
	ns := service.NewNotificationService(f.notifs, zerolog.Nop())
	f.svc = service.NewCommentService(f.comments, f.posts, ns, zerolog.Nop())
	return f
}

func TestCreateComment(t *testing.T) {
	postAuthor := primitive.NewObjectID()
	commenter := primitive.NewObjectID()
	postID := primitive.NewObjectID()
	post := &domain.Post{ID: postID, Author: postAuthor}

	t.Run("TopLevelNotifiesPostAuthor", func(t *testing.T) {
		f := newCommentFixture()
		f.posts.On("GetByID", mock.Anything, postID).Return(post, nil)
		f.comments.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Comment) bool {
			return c.Text == "nice shot" && c.ParentComment == nil
		})).Return(nil)
		f.posts.On("AdjustCommentsCount", mock.Anything, postID, 1).Return(nil)
		f.notifs.On("Create", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
			return n.Type == domain.NotificationComment && n.Recipient == postAuthor
		})).Return(nil)

		c, err := f.svc.Create(context.Background(), postID, commenter, service.CreateCommentInput{Content: " nice shot "})
		assert.NoError(t, err)
		assert.NotNil(t, c)
	})

	t.Run("ReplyToReplyFlattens", func(t *testing.T) {
		f := newCommentFixture()
		topID := primitive.NewObjectID()
		replyAuthor := primitive.NewObjectID()
		reply := &domain.Comment{
			ID:            primitive.NewObjectID(),
			Post:          postID,
			Author:        replyAuthor,
			ParentComment: &topID,
		}

		f.posts.On("GetByID", mock.Anything, postID).Return(post, nil)
		f.comments.On("GetByID", mock.Anything, reply.ID).Return(reply, nil)
		f.comments.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Comment) bool {
			return c.ParentComment != nil && *c.ParentComment == topID &&
				c.ReplyToUser != nil && *c.ReplyToUser == replyAuthor
		})).Return(nil)
		f.posts.On("AdjustCommentsCount", mock.Anything, postID, 1).Return(nil)
		f.notifs.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := f.svc.Create(context.Background(), postID, commenter, service.CreateCommentInput{
			Content: "agreed",
			Parent:  &reply.ID,
		})
		assert.NoError(t, err)
		f.comments.AssertExpectations(t)
	})

	t.Run("OverlongRejected", func(t *testing.T) {
		f := newCommentFixture()
		_, err := f.svc.Create(context.Background(), postID, commenter, service.CreateCommentInput{
			Content: strings.Repeat("x", 1001),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("ParentFromAnotherPostRejected", func(t *testing.T) {
		f := newCommentFixture()
		foreign := &domain.Comment{ID: primitive.NewObjectID(), Post: primitive.NewObjectID()}

		f.posts.On("GetByID", mock.Anything, postID).Return(post, nil)
		f.comments.On("GetByID", mock.Anything, foreign.ID).Return(foreign, nil)

		_, err := f.svc.Create(context.Background(), postID, commenter, service.CreateCommentInput{
			Content: "hi",
			Parent:  &foreign.ID,
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestDeleteComment(t *testing.T) {
	postAuthor := primitive.NewObjectID()
	commenter := primitive.NewObjectID()
	postID := primitive.NewObjectID()
	post := &domain.Post{ID: postID, Author: postAuthor}

	t.Run("TopLevelTakesRepliesAlong", func(t *testing.T) {
		f := newCommentFixture()
		top := &domain.Comment{ID: primitive.NewObjectID(), Post: postID, Author: commenter}

		f.comments.On("GetByID", mock.Anything, top.ID).Return(top, nil)
		f.posts.On("GetByID", mock.Anything, postID).Return(post, nil)
		f.comments.On("DeleteReplies", mock.Anything, top.ID).Return(int64(2), nil)
		f.comments.On("Delete", mock.Anything, top.ID).Return(nil)
		f.posts.On("AdjustCommentsCount", mock.Anything, postID, -3).Return(nil)

		assert.NoError(t, f.svc.Delete(context.Background(), top.ID, commenter))
		f.posts.AssertCalled(t, "AdjustCommentsCount", mock.Anything, postID, -3)
	})

	t.Run("PostAuthorMayModerate", func(t *testing.T) {
		f := newCommentFixture()
		parent := primitive.NewObjectID()
		reply := &domain.Comment{ID: primitive.NewObjectID(), Post: postID, Author: commenter, ParentComment: &parent}

		f.comments.On("GetByID", mock.Anything, reply.ID).Return(reply, nil)
		f.posts.On("GetByID", mock.Anything, postID).Return(post, nil)
		f.comments.On("Delete", mock.Anything, reply.ID).Return(nil)
		f.posts.On("AdjustCommentsCount", mock.Anything, postID, -1).Return(nil)

		assert.NoError(t, f.svc.Delete(context.Background(), reply.ID, postAuthor))
	})

	t.Run("BystanderForbidden", func(t *testing.T) {
		f := newCommentFixture()
		c := &domain.Comment{ID: primitive.NewObjectID(), Post: postID, Author: commenter}

		f.comments.On("GetByID", mock.Anything, c.ID).Return(c, nil)
		f.posts.On("GetByID", mock.Anything, postID).Return(post, nil)

		err := f.svc.Delete(context.Background(), c.ID, primitive.NewObjectID())
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}
