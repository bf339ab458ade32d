package httpserver

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pulsegram/internal/domain"
	"pulsegram/internal/security"
)

type contextKey string

const userContextKey contextKey = "currentUser"

// WithUser returns a new context carrying the current user.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// CurrentUser extracts the current user from context, if any.
func CurrentUser(r *http.Request) *domain.User {
	if v := r.Context().Value(userContextKey); v != nil {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// CurrentUserID is a convenience for handlers that only need the id.
func CurrentUserID(r *http.Request) primitive.ObjectID {
	if u := CurrentUser(r); u != nil {
		return u.ID
	}
	return primitive.NilObjectID
}

func resolveUser(r *http.Request, tokens *security.TokenService, users domain.UserRepository) (*domain.User, string) {
	cookie, err := r.Cookie(security.AccessTokenCookie)
	if err != nil || cookie.Value == "" {
		return nil, "authentication required"
	}
	claims := tokens.VerifyAccess(cookie.Value)
	if claims == nil {
		return nil, "invalid or expired session"
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, "invalid or expired session"
	}
	user, err := users.GetByID(r.Context(), id)
	if err != nil || user == nil {
		return nil, "invalid or expired session"
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, "session invalidated"
	}
	return user, ""
}

// AuthMiddleware validates the access token cookie and attaches the user to
// the request context. Unverified accounts are refused.
func AuthMiddleware(tokens *security.TokenService, users domain.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, reason := resolveUser(r, tokens, users)
			if user == nil {
				writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: reason})
				return
			}
			if !user.IsVerified {
				writeJSON(w, http.StatusForbidden, envelope{Success: false, Message: "please verify your email"})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// OptionalAuthMiddleware attaches the user when a valid session cookie is
// present and lets the request through anonymously otherwise.
func OptionalAuthMiddleware(tokens *security.TokenService, users domain.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, _ := resolveUser(r, tokens, users); user != nil && user.IsVerified {
				r = r.WithContext(WithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}
