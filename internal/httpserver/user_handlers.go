package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pulsegram/internal/domain"
	"pulsegram/internal/service"
)

func pathID(r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	return id, err == nil
}

func queryInt(r *http.Request, name string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil && v > 0 {
		return v
	}
	return def
}

func handleGetUserByID(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "userID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		user, err := userSvc.GetByID(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, user)
	}
}

func handleGetUser(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := service.NormalizeHandle(chi.URLParam(r, "username"))
		user, err := userSvc.GetByUsername(r.Context(), username)
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, user)
	}
}

type updateProfileRequest struct {
	FullName  *string `json:"fullName"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatarUrl"`
	DOB       *string `json:"dob"`
}

func handleUpdateProfile(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateProfileRequest
		if !decodeBody(w, r, &req) {
			return
		}
		user, err := userSvc.UpdateProfile(r.Context(), CurrentUserID(r), service.UpdateProfileInput{
			FullName:  req.FullName,
			Bio:       req.Bio,
			AvatarURL: req.AvatarURL,
			DOB:       req.DOB,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, user)
	}
}

func handleToggleFollow(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target, ok := pathID(r, "userID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		following, err := userSvc.ToggleFollow(r.Context(), CurrentUserID(r), target)
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, map[string]bool{"following": following})
	}
}

func handleListFollowers(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(r, "userID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		users, err := userSvc.ListFollowers(r.Context(), userID, queryInt(r, "page", 1), queryInt(r, "limit", 20))
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, users)
	}
}

func handleListFollowing(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(r, "userID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		users, err := userSvc.ListFollowing(r.Context(), userID, queryInt(r, "page", 1), queryInt(r, "limit", 20))
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, users)
	}
}

func handleSearchUsers(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := userSvc.Search(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit", 10))
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, users)
	}
}

func handleRecentSearches(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := userSvc.RecentSearches(r.Context(), CurrentUserID(r))
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, users)
	}
}

func handleRecordRecentSearch(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target, ok := pathID(r, "userID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		if err := userSvc.RecordRecentSearch(r.Context(), CurrentUserID(r), target); err != nil {
			respondError(w, err)
			return
		}
		respondMessage(w, http.StatusOK, "recorded")
	}
}

func handleRemoveRecentSearch(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target, ok := pathID(r, "userID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		if err := userSvc.RemoveRecentSearch(r.Context(), CurrentUserID(r), target); err != nil {
			respondError(w, err)
			return
		}
		respondMessage(w, http.StatusOK, "removed")
	}
}
