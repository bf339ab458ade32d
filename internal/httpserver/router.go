package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"pulsegram/internal/config"
	"pulsegram/internal/media"
	"pulsegram/internal/security"
	"pulsegram/internal/service"
	mongostore "pulsegram/internal/store/mongo"
	"pulsegram/internal/ws"
)

// NewRouter constructs the main HTTP router and wires repositories,
// services, routes, and middleware.
func NewRouter(
	cfg *config.Config,
	store *mongostore.Store,
	hub *ws.Hub,
	tokens *security.TokenService,
	hasher *security.PasswordHasher,
	rdb *redis.Client,
	assets media.AssetStore,
	mail service.Mailer,
	log zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Repositories
	userRepo := mongostore.NewUserRepo(store)
	postRepo := mongostore.NewPostRepo(store)
	commentRepo := mongostore.NewCommentRepo(store)
	storyRepo := mongostore.NewStoryRepo(store)
	chatRepo := mongostore.NewChatRepo(store)
	msgRepo := mongostore.NewMessageRepo(store)
	notifRepo := mongostore.NewNotificationRepo(store)

	// Services
	var pub service.Publisher = hub
	notifSvc := service.NewNotificationService(notifRepo, log)
	authSvc := service.NewAuthService(userRepo, tokens, hasher, mail, service.AuthConfig{
		FrontendOrigin:  cfg.FrontendOrigin,
		VerifyExpiry:    cfg.VerifyExpiry,
		OTPExpiry:       cfg.OTPExpiry,
		ResetLinkExpiry: cfg.ResetLinkExpiry,
	}, log)
	userSvc := service.NewUserService(userRepo, notifSvc, store, log)
	postSvc := service.NewPostService(postRepo, commentRepo, msgRepo, chatRepo, userRepo, notifSvc, notifRepo, assets, pub, store, log)
	commentSvc := service.NewCommentService(commentRepo, postRepo, notifSvc, log)
	storySvc := service.NewStoryService(storyRepo, userRepo, assets, log)
	chatSvc := service.NewChatService(chatRepo, userRepo, log)
	msgSvc := service.NewMessageService(msgRepo, chatRepo, postRepo, store, pub, log)

	cookies := cookieWriter{
		secure:     cfg.CookieSecure,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTTL,
	}

	requireAuth := AuthMiddleware(tokens, userRepo)
	optionalAuth := OptionalAuthMiddleware(tokens, userRepo)
	limiter := NewRateLimiter(rdb, cfg.RateLimitWindow, cfg.RateLimitThreshold)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(limiter.Middleware)

			r.Post("/register", handleRegister(authSvc))
			r.Get("/verify-email", handleVerifyEmail(authSvc))
			r.Post("/verify-email", handleVerifyEmail(authSvc))
			r.Post("/login", handleLogin(authSvc, cookies))
			r.Post("/refresh", handleRefresh(authSvc, cookies))
			r.Post("/forgot-password", handleForgotPassword(authSvc))
			r.Post("/verify-otp", handleVerifyOTP(authSvc))
			r.Post("/reset-password", handleResetPassword(authSvc, cookies))
			r.Post("/logout", handleLogout(cookies))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout-all", handleLogoutAll(authSvc, cookies))
				r.Get("/me", handleMe())
			})
		})

		r.Route("/users", func(r chi.Router) {
			// public reads carry an optional session for visibility trimming
			r.With(optionalAuth).Get("/{userID}/posts", handleListUserPosts(postSvc))
			r.With(optionalAuth).Get("/by-username/{username}", handleGetUser(userSvc))
			r.With(optionalAuth).Get("/{userID}", handleGetUserByID(userSvc))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/search", handleSearchUsers(userSvc))
				r.Get("/me", handleMe())
				r.Patch("/me", handleUpdateProfile(userSvc))
				r.Route("/me/recent-searches", func(r chi.Router) {
					r.Get("/", handleRecentSearches(userSvc))
					r.Post("/{userID}", handleRecordRecentSearch(userSvc))
					r.Delete("/{userID}", handleRemoveRecentSearch(userSvc))
				})
				r.Post("/{userID}/follow", handleToggleFollow(userSvc))
				r.Get("/{userID}/followers", handleListFollowers(userSvc))
				r.Get("/{userID}/following", handleListFollowing(userSvc))
			})
		})

		r.Route("/posts", func(r chi.Router) {
			r.With(optionalAuth).Get("/{postID}", handleGetPost(postSvc))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", handleCreatePost(postSvc))
				r.Post("/uploads", handlePresignUpload(assets))
				r.Get("/feed", handleFeed(postSvc))
				r.Get("/me/saved", handleListSaved(postSvc))
				r.Patch("/{postID}", handleUpdatePost(postSvc))
				r.Delete("/{postID}", handleDeletePost(postSvc))
				r.Post("/{postID}/like", handleToggleLike(postSvc))
				r.Post("/{postID}/save", handleToggleSave(postSvc))
				r.Post("/{postID}/comments", handleCreateComment(commentSvc))
				r.Get("/{postID}/comments", handleListComments(commentSvc))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Delete("/comments/{commentID}", handleDeleteComment(commentSvc))

			r.Route("/stories", func(r chi.Router) {
				r.Post("/", handleCreateStory(storySvc))
				r.Get("/feed", handleStoryFeed(storySvc))
				r.Post("/{storyID}/view", handleViewStory(storySvc))
				r.Delete("/{storyID}", handleDeleteStory(storySvc))
			})

			r.Route("/chats", func(r chi.Router) {
				r.Post("/direct", handleOpenChat(chatSvc))
				r.Get("/", handleListChats(chatSvc))
				r.Get("/{chatID}", handleGetChat(chatSvc))
				r.Post("/{chatID}/hide", handleHideChat(chatSvc))
				r.Post("/{chatID}/messages", handleSendMessage(msgSvc))
				r.Get("/{chatID}/messages", handleListMessages(msgSvc))
				r.Post("/{chatID}/read", handleMarkChatRead(msgSvc))
			})
			r.Delete("/messages/{messageID}", handleDeleteMessage(msgSvc))

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", handleListNotifications(notifSvc))
				r.Post("/read-all", handleMarkAllNotificationsRead(notifSvc))
				r.Post("/{notificationID}/read", handleMarkNotificationRead(notifSvc))
				r.Delete("/{notificationID}", handleDeleteNotification(notifSvc))
				r.Delete("/", handleClearNotifications(notifSvc))
			})

			r.Route("/uploads", func(r chi.Router) {
				r.Post("/presign", handlePresignUpload(assets))
				r.Get("/url", handlePresignDownload(assets))
			})
		})
	})

	r.Get("/ws", ws.MakeHandler(hub, tokens, userRepo, chatRepo, cfg.CORSOrigins, log))

	return r
}
