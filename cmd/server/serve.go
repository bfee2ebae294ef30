package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aura-scribe-backend/internal/config"
	"aura-scribe-backend/internal/database"
	"aura-scribe-backend/internal/handlers"
	"aura-scribe-backend/internal/logging"
	"aura-scribe-backend/internal/middleware"
	"aura-scribe-backend/internal/repository"
	"aura-scribe-backend/internal/router"
	"aura-scribe-backend/internal/services"
	"aura-scribe-backend/migrations"
)

func runServe(cmd *cobra.Command, args []string) error {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	logger, err := logging.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger.Info("starting Aura Scribe backend", zap.String("env", cfg.Server.Env))

	ctx := context.Background()

	// ──── Step 2: Optional Redis (persona cache) ────
	githubLoader := services.NewPersonaLoader(cfg.Persona, logger)
	var personas services.PersonaLoader = githubLoader
	if cfg.RedisURL != "" && cfg.Persona.CacheTTL > 0 {
		redisClient, err := database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer redisClient.Close()
		personas = services.NewCachedPersonaLoader(
			githubLoader,
			services.NewRedisPersonaCache(redisClient),
			githubLoader.CacheKey(),
			cfg.Persona.CacheTTL,
			logger,
		)
		logger.Info("persona cache enabled", zap.Duration("ttl", cfg.Persona.CacheTTL))
	} else {
		logger.Info("persona cache disabled, persona is fetched on every chat turn")
	}

	// ──── Step 3: Optional PostgreSQL (turn journal) ────
	var recorder *repository.TurnRepo
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres connection failed: %w", err)
		}
		defer pool.Close()

		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			return fmt.Errorf("database migration failed: %w", err)
		}
		recorder = repository.NewTurnRepo(pool)
		logger.Info("turn journal enabled")
	}

	// ──── Step 4: Initialize Gemini Client ────
	gateway, err := services.NewGeminiGateway(ctx, cfg.Gemini, logger)
	if err != nil {
		return fmt.Errorf("gemini client initialization failed: %w", err)
	}
	defer gateway.Close()
	logger.Info("gemini gateway ready",
		zap.String("model", cfg.Gemini.Model),
		zap.Int("max_output_tokens", cfg.Gemini.MaxOutputTokens))

	// ──── Step 5: Auth Gate ────
	clerkAuth, err := middleware.NewClerkAuth(cfg.Clerk, logger)
	if err != nil {
		return fmt.Errorf("clerk auth initialization failed: %w", err)
	}
	defer clerkAuth.Close()

	var chatLimiter *middleware.RateLimiter
	if cfg.Chat.RatePerMinute > 0 {
		chatLimiter = middleware.NewRateLimiter(cfg.Chat.RatePerMinute, cfg.Chat.RateBurst, 10*time.Minute)
		defer chatLimiter.Stop()
	} else {
		logger.Info("chat rate limit disabled")
	}

	// ──── Step 6: Handlers ────
	chatService := services.NewChatService(personas, gateway, cfg.Chat, logger)
	var chatHandler *handlers.ChatHandler
	if recorder != nil {
		chatHandler = handlers.NewChatHandler(chatService, recorder, logger)
	} else {
		chatHandler = handlers.NewChatHandler(chatService, nil, logger)
	}

	r := router.New(
		logger,
		clerkAuth,
		chatLimiter,
		handlers.NewPageHandler(cfg.Server.PublicDir),
		handlers.NewConfigHandler(cfg.Clerk.PublishableKey, cfg.Server.EmbedURL),
		chatHandler,
	)

	// ──── Step 7: Start HTTP Server ────
	// WriteTimeout covers the persona fetch plus generation.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Persona.FetchTimeout + cfg.Gemini.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	shutdownErr := make(chan error, 1)
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		shutdownErr <- server.Shutdown(ctx)
	}()

	logger.Info("Aura Scribe ready", zap.String("addr", "http://localhost:"+cfg.Server.Port))

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return <-shutdownErr
}
