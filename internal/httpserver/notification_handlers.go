package httpserver

import (
	"net/http"

	"pulsegram/internal/domain"
	"pulsegram/internal/service"
)

func handleListNotifications(notifSvc *service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := notifSvc.List(r.Context(), CurrentUserID(r), queryInt(r, "page", 1), queryInt(r, "limit", 20))
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, page)
	}
}

func handleMarkNotificationRead(notifSvc *service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "notificationID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		if err := notifSvc.MarkRead(r.Context(), id, CurrentUserID(r)); err != nil {
			respondError(w, err)
			return
		}
		respondMessage(w, http.StatusOK, "marked read")
	}
}

func handleMarkAllNotificationsRead(notifSvc *service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := notifSvc.MarkAllRead(r.Context(), CurrentUserID(r)); err != nil {
			respondError(w, err)
			return
		}
		respondMessage(w, http.StatusOK, "all marked read")
	}
}

func handleDeleteNotification(notifSvc *service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "notificationID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		if err := notifSvc.Delete(r.Context(), id, CurrentUserID(r)); err != nil {
			respondError(w, err)
			return
		}
		respondMessage(w, http.StatusOK, "notification removed")
	}
}

func handleClearNotifications(notifSvc *service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := notifSvc.Clear(r.Context(), CurrentUserID(r)); err != nil {
			respondError(w, err)
			return
		}
		respondMessage(w, http.StatusOK, "notifications cleared")
	}
}
