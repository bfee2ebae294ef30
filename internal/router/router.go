package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"aura-scribe-backend/internal/handlers"
	"aura-scribe-backend/internal/middleware"
)

func New(
	logger *zap.Logger,
	identity middleware.IdentityResolver,
	chatLimiter *middleware.RateLimiter,
	pageHandler *handlers.PageHandler,
	configHandler *handlers.ConfigHandler,
	chatHandler *handlers.ChatHandler,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// ──── Pages ────
	r.Get("/", pageHandler.Landing)
	r.Get("/app", pageHandler.App)

	r.Route("/api", func(r chi.Router) {
		// ──── Public client configuration ────
		r.Get("/clerk-key", configHandler.ClerkKey)
		r.Get("/embed-url", configHandler.EmbedURL)

		// ──── Chat (requires identity) ────
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireIdentity(identity, logger))
			if chatLimiter != nil {
				r.Use(chatLimiter.Middleware)
			}
			r.Post("/chat", chatHandler.Chat)
		})
	})

	// ──── Static assets ────
	r.Handle("/*", pageHandler.Static())

	return r
}
