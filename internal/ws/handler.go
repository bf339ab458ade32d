package ws

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pulsegram/internal/domain"
	"pulsegram/internal/security"
)

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

// MakeHandler returns the HTTP handler for the /ws endpoint. The client is
// authenticated through the access-token cookie with the same chain as the
// session middleware, then may join and leave chat rooms. Joins are admitted
// only for chat participants.
func MakeHandler(
	hub *Hub,
	tokens *security.TokenService,
	users domain.UserRepository,
	chats domain.ChatRepository,
	allowedOrigins []string,
	log zerolog.Logger,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{CheckOrigin: checkOrigin}

	canJoin := func(ctx context.Context, chatID, userID primitive.ObjectID) bool {
		chat, err := chats.GetByID(ctx, chatID)
		if err != nil {
			log.Error().Err(err).Str("chat", chatID.Hex()).Msg("ws: load chat for join check")
			return false
		}
		return chat != nil && domain.ContainsID(chat.Participants, userID)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(security.AccessTokenCookie)
		if err != nil || cookie.Value == "" {
			http.Error(w, "missing access token", http.StatusUnauthorized)
			return
		}
		claims := tokens.VerifyAccess(cookie.Value)
		if claims == nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			http.Error(w, "invalid token subject", http.StatusUnauthorized)
			return
		}
		user, err := users.GetByID(r.Context(), userID)
		if err != nil || user == nil {
			http.Error(w, "user not found", http.StatusUnauthorized)
			return
		}
		if user.TokenVersion != claims.TokenVersion {
			http.Error(w, "session invalidated", http.StatusUnauthorized)
			return
		}
		if !user.IsVerified {
			http.Error(w, "account not verified", http.StatusForbidden)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		client := NewClient(hub, conn, user.ID, canJoin)
		go client.WritePump()
		client.ReadPump(r.Context())
	}
}
