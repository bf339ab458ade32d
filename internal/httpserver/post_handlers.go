package httpserver

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pulsegram/internal/domain"
	"pulsegram/internal/service"
)

// viewerID returns the optional-auth viewer, nil when anonymous.
func viewerID(r *http.Request) *primitive.ObjectID {
	if u := CurrentUser(r); u != nil {
		id := u.ID
		return &id
	}
	return nil
}

type createPostRequest struct {
	Caption    string             `json:"caption"`
	Media      []domain.MediaItem `json:"media"`
	Visibility string             `json:"visibility"`
}

func handleCreatePost(postSvc *service.PostService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPostRequest
		if !decodeBody(w, r, &req) {
			return
		}
		post, err := postSvc.Create(r.Context(), CurrentUserID(r), service.CreatePostInput{
			Caption:    req.Caption,
			Media:      req.Media,
			Visibility: req.Visibility,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusCreated, post)
	}
}

func handleGetPost(postSvc *service.PostService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "postID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		post, err := postSvc.Get(r.Context(), id, viewerID(r))
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, post)
	}
}

func handleFeed(postSvc *service.PostService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		posts, err := postSvc.Feed(r.Context(), CurrentUserID(r), queryInt(r, "page", 1), queryInt(r, "limit", 20))
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, posts)
	}
}

func handleListUserPosts(postSvc *service.PostService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		author, ok := pathID(r, "userID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		posts, err := postSvc.ListByAuthor(r.Context(), author, viewerID(r), queryInt(r, "page", 1), queryInt(r, "limit", 20))
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, posts)
	}
}

type updatePostRequest struct {
	Caption    *string `json:"caption"`
	Visibility *string `json:"visibility"`
}

func handleUpdatePost(postSvc *service.PostService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "postID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		var req updatePostRequest
		if !decodeBody(w, r, &req) {
			return
		}
		post, err := postSvc.Update(r.Context(), id, CurrentUserID(r), service.UpdatePostInput{
			Caption:    req.Caption,
			Visibility: req.Visibility,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, post)
	}
}

func handleDeletePost(postSvc *service.PostService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "postID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		if err := postSvc.Delete(r.Context(), id, CurrentUserID(r)); err != nil {
			respondError(w, err)
			return
		}
		respondMessage(w, http.StatusOK, "post deleted")
	}
}

func handleToggleLike(postSvc *service.PostService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "postID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		liked, err := postSvc.ToggleLike(r.Context(), id, CurrentUserID(r))
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, map[string]bool{"liked": liked})
	}
}

func handleToggleSave(postSvc *service.PostService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "postID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		saved, err := postSvc.ToggleSave(r.Context(), id, CurrentUserID(r))
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, map[string]bool{"saved": saved})
	}
}

func handleListSaved(postSvc *service.PostService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		posts, err := postSvc.ListSaved(r.Context(), CurrentUserID(r), queryInt(r, "page", 1), queryInt(r, "limit", 20))
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, posts)
	}
}

type createCommentRequest struct {
	Content string              `json:"content"`
	Parent  *primitive.ObjectID `json:"parentComment"`
}

func handleCreateComment(commentSvc *service.CommentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, ok := pathID(r, "postID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		var req createCommentRequest
		if !decodeBody(w, r, &req) {
			return
		}
		comment, err := commentSvc.Create(r.Context(), postID, CurrentUserID(r), service.CreateCommentInput{
			Content: req.Content,
			Parent:  req.Parent,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusCreated, comment)
	}
}

func handleListComments(commentSvc *service.CommentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, ok := pathID(r, "postID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		threads, err := commentSvc.ListForPost(r.Context(), postID, queryInt(r, "page", 1), queryInt(r, "limit", 20))
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, threads)
	}
}

func handleDeleteComment(commentSvc *service.CommentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID, ok := pathID(r, "commentID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		if err := commentSvc.Delete(r.Context(), commentID, CurrentUserID(r)); err != nil {
			respondError(w, err)
			return
		}
		respondMessage(w, http.StatusOK, "comment deleted")
	}
}
