package handlers

import (
	"net/http"

	"aura-scribe-backend/internal/models"
)

// ConfigHandler exposes the public, non-secret values the browser needs.
// Its error bodies carry only the error message.
type ConfigHandler struct {
	clerkPublishableKey string
	embedURL            string
}

func NewConfigHandler(clerkPublishableKey, embedURL string) *ConfigHandler {
	return &ConfigHandler{
		clerkPublishableKey: clerkPublishableKey,
		embedURL:            embedURL,
	}
}

func (h *ConfigHandler) ClerkKey(w http.ResponseWriter, r *http.Request) {
	if h.clerkPublishableKey == "" {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Clerk key missing"})
		return
	}
	writeJSON(w, http.StatusOK, models.ClerkKeyResponse{Key: h.clerkPublishableKey})
}

func (h *ConfigHandler) EmbedURL(w http.ResponseWriter, r *http.Request) {
	if h.embedURL == "" {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Embed URL is not configured on the server."})
		return
	}
	writeJSON(w, http.StatusOK, models.EmbedURLResponse{URL: h.embedURL})
}
