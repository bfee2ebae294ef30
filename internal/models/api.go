package models

// API Error response
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type ClerkKeyResponse struct {
	Key string `json:"key"`
}

type EmbedURLResponse struct {
	URL string `json:"url"`
}
