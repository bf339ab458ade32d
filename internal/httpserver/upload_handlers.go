package httpserver

import (
	"net/http"
	"path"
	"strings"
	"time"

	"pulsegram/internal/domain"
	"pulsegram/internal/media"
)

const (
	uploadURLTTL   = 15 * time.Minute
	downloadURLTTL = 24 * time.Hour
)

var allowedUploadExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
	".mp4": true, ".mov": true, ".webm": true,
}

type presignUploadRequest struct {
	FileName string `json:"fileName"`
}

// handlePresignUpload hands the client a short-lived PUT URL; media bytes
// never pass through the API server.
func handlePresignUpload(assets media.AssetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req presignUploadRequest
		if !decodeBody(w, r, &req) {
			return
		}
		ext := strings.ToLower(path.Ext(req.FileName))
		if !allowedUploadExts[ext] {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		key := "uploads/" + media.NewAssetKey() + ext
		url, err := assets.PresignPut(r.Context(), key, uploadURLTTL)
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, map[string]string{
			"assetKey":  key,
			"uploadUrl": url,
		})
	}
}

func handlePresignDownload(assets media.AssetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("key")
		if key == "" || !strings.HasPrefix(key, "uploads/") {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		url, err := assets.PresignGet(r.Context(), key, downloadURLTTL)
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, map[string]string{"url": url})
	}
}
