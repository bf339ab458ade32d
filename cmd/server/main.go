package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pulsegram/internal/config"
	"pulsegram/internal/httpserver"
	"pulsegram/internal/mailer"
	"pulsegram/internal/media"
	"pulsegram/internal/security"
	mongostore "pulsegram/internal/store/mongo"
	"pulsegram/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	logger := log.With().Str("app", cfg.AppName).Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDB)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to mongodb")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.Close(ctx)
	}()

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	err = store.EnsureIndexes(ctx)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("ensure indexes")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		// throttling degrades gracefully without Redis
		logger.Warn().Err(err).Msg("redis unreachable, rate limiting disabled")
		rdb = nil
	}

	assets, err := media.New(media.Config{
		Endpoint:  cfg.MediaEndpoint,
		AccessKey: cfg.MediaAccessKey,
		SecretKey: cfg.MediaSecretKey,
		UseSSL:    cfg.MediaUseSSL,
		Bucket:    cfg.MediaBucket,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("init media storage")
	}
	ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	err = assets.EnsureBucket(ctx)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("ensure media bucket")
	}

	smtp := mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	outbox := mailer.NewOutbox(smtp, logger, 256, 3, 5*time.Second)
	defer outbox.Close()

	tokens := security.NewTokenService(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTTL)
	hasher := security.NewPasswordHasher(0)

	hub := ws.NewHub()

	router := httpserver.NewRouter(cfg, store, hub, tokens, hasher, rdb, assets, outbox, logger)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr()).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
