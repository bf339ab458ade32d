package httpserver

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pulsegram/internal/domain"
	"pulsegram/internal/service"
)

type openChatRequest struct {
	UserID primitive.ObjectID `json:"userId"`
}

func handleOpenChat(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req openChatRequest
		if !decodeBody(w, r, &req) {
			return
		}
		chat, err := chatSvc.GetOrCreateDirect(r.Context(), CurrentUserID(r), req.UserID)
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, chat)
	}
}

func handleListChats(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chats, err := chatSvc.List(r.Context(), CurrentUserID(r))
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, chats)
	}
}

func handleGetChat(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := pathID(r, "chatID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		chat, err := chatSvc.Get(r.Context(), chatID, CurrentUserID(r))
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, chat)
	}
}

func handleHideChat(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := pathID(r, "chatID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		if err := chatSvc.Hide(r.Context(), chatID, CurrentUserID(r)); err != nil {
			respondError(w, err)
			return
		}
		respondMessage(w, http.StatusOK, "chat hidden")
	}
}

type sendMessageRequest struct {
	Content  string              `json:"content"`
	MediaURL string              `json:"mediaUrl"`
	Type     string              `json:"type"`
	PostID   *primitive.ObjectID `json:"postId"`
}

func handleSendMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := pathID(r, "chatID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		var req sendMessageRequest
		if !decodeBody(w, r, &req) {
			return
		}
		msg, err := msgSvc.Send(r.Context(), chatID, CurrentUserID(r), service.SendMessageInput{
			Content:  req.Content,
			MediaURL: req.MediaURL,
			Type:     req.Type,
			PostID:   req.PostID,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusCreated, msg)
	}
}

func handleListMessages(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := pathID(r, "chatID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		msgs, err := msgSvc.List(r.Context(), chatID, CurrentUserID(r), queryInt(r, "page", 1), queryInt(r, "limit", 50))
		if err != nil {
			respondError(w, err)
			return
		}
		respondData(w, http.StatusOK, msgs)
	}
}

func handleMarkChatRead(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := pathID(r, "chatID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		if err := msgSvc.MarkRead(r.Context(), chatID, CurrentUserID(r)); err != nil {
			respondError(w, err)
			return
		}
		respondMessage(w, http.StatusOK, "marked read")
	}
}

func handleDeleteMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgID, ok := pathID(r, "messageID")
		if !ok {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		forEveryone := r.URL.Query().Get("for") == "everyone"
		if err := msgSvc.Delete(r.Context(), msgID, CurrentUserID(r), forEveryone); err != nil {
			respondError(w, err)
			return
		}
		respondMessage(w, http.StatusOK, "message deleted")
	}
}
