package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"fychat/internal/chat"
	"fychat/internal/config"
	"fychat/internal/db"
	myMiddleware "fychat/internal/middleware"
	"fychat/internal/remote"
)

func main() {
	// 1. Config
	cfg := config.Load()

	// 2. Logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// 3. Conversation store: Postgres when configured, in-memory otherwise.
	var store chat.ConversationStore
	if cfg.DatabaseURL != "" {
		database, err := db.NewDatabase(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		if err := database.AutoMigrate(); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		defer database.Conn.Close()
		logger.Info().Msg("connected to PostgreSQL")
		store = chat.NewSQLStore(database.Conn)
	} else {
		logger.Warn().Msg("no DATABASE_URL, messages will not survive restarts")
		store = chat.NewMemStore()
	}

	// 4. Collaborators: profile + push APIs, profile cache when redis is up.
	httpClient := &http.Client{Timeout: cfg.RemoteTimeout}
	var profiles chat.Profiles = remote.NewProfileClient(cfg.ProfileAPIBase, httpClient, logger)
	push := remote.NewPushClient(cfg.ProfileAPIBase, httpClient, logger)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		redisClient := redis.NewClient(opts)
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisClient.Close()
		logger.Info().Msg("connected to Redis")
		profiles = remote.NewProfileCache(profiles, redisClient, cfg.ProfileCacheTTL, logger)
	}

	// 5. Core service + handlers
	svc := chat.NewService(store, profiles, push, logger)

	var socketTokens *myMiddleware.SocketTokens
	var validator chat.TokenValidator
	if cfg.JWTSecret != "" {
		socketTokens = myMiddleware.NewSocketTokens(cfg.JWTSecret, cfg.TokenTTL)
		validator = socketTokens
	}
	handler := chat.NewHandler(svc, validator, logger)
	apiKeyAuth := myMiddleware.NewAPIKeyAuth(cfg.APIKey, cfg.IPAllowlist, cfg.IPAllowlistFile, logger)

	// 6. Routes
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(myMiddleware.Logger(logger))
	r.Use(chimw.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", handler.Health)

	// Realtime endpoint; identity comes from the handshake itself.
	r.Get("/ws", handler.ServeWs)

	// Synchronous query surface (API-key gated).
	r.Group(func(r chi.Router) {
		r.Use(apiKeyAuth.Handle)

		r.Get("/messages/{userID}", handler.GetConversationSummary)
		r.Get("/info/{userID}", handler.GetUserInfo)
		r.Get("/chat-list/{userID}", handler.GetChatList)
		r.Get("/set-read/{from}/{to}", handler.SetRead)
		r.Get("/set-read/{from}/{to}/{timeRef}", handler.SetRead)
		r.Get("/chat-history/{from}/{to}", handler.GetChatHistory)
		r.Get("/chat-history/{from}/{to}/{start}", handler.GetChatHistory)
		r.Get("/chat-history/{from}/{to}/{start}/{limit}", handler.GetChatHistory)
		r.Get("/unread-total/{userID}", handler.GetUnreadTotal)
		r.Get("/socket-info", handler.GetSocketInfo)

		r.Get("/token/{userID}", func(w http.ResponseWriter, req *http.Request) {
			userID := chi.URLParam(req, "userID")
			if socketTokens == nil || !chat.ValidID(userID) {
				handler.Error(w, http.StatusBadRequest, "cannot mint token")
				return
			}
			token, err := socketTokens.Mint(userID)
			if err != nil {
				handler.Error(w, http.StatusInternalServerError, "token signing failed")
				return
			}
			handler.JSON(w, http.StatusOK, map[string]string{"token": token})
		})
	})

	// 7. Serve with graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting fychat server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}
	logger.Info().Msg("server stopped")
}
