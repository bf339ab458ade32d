package httpserver

import (
	"net/http"

	"pulsegram/internal/domain"
	"pulsegram/internal/service"
)

type createStoryRequest struct {
	MediaURL string `json:"mediaUrl"`
	AssetKey string `json:"assetKey"`
	Kind     string `json:"kind"`
	Duration int    `json:"duration"`
}

func handleCreateStory(storySvc *service.StoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createStoryRequest
		if !decodeBody(w, r, &req) {
			return
		}
		story, err := storySvc.Create(r.Context(), CurrentUserID(r), service.CreateStoryInput{
			MediaURL: req.MediaURL,
			AssetKey: req.AssetKey,
			Kind:     req.Kind,
			Duration: req.Duration,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusCreated, story)
	}
}

func handleStoryFeed(storySvc *service.StoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groups, err := storySvc.Feed(r.Context(), CurrentUserID(r))
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, groups)
	}
}

func handleViewStory(storySvc *service.StoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "storyID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		story, err := storySvc.View(r.Context(), id, CurrentUserID(r))
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, story)
	}
}

func handleDeleteStory(storySvc *service.StoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "storyID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		if err := storySvc.Delete(r.Context(), id, CurrentUserID(r)); err != nil {
			respondError(w, err)
			return
		}
		respondMessage(w, http.StatusOK, "story deleted")
	}
}
