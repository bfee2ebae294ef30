package handlers

import (
	"encoding/json"
	"net/http"

	"aura-scribe-backend/internal/middleware"
	"aura-scribe-backend/internal/models"
)

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error:     message,
		RequestID: r.Header.Get(middleware.RequestIDHeader),
	}
}
