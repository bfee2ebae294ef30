package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"aura-scribe-backend/internal/middleware"
	"aura-scribe-backend/internal/models"
	"aura-scribe-backend/internal/services"
)

const maxChatBodyBytes = 1 << 20

const (
	msgUnauthorized       = "Unauthorized"
	msgInvalidBody        = "Invalid request body"
	msgMessageRequired    = "Message is required"
	msgServiceUnavailable = "The Scribe is unavailable right now. Please try again later."
	msgGenerationFailed   = "The Scribe could not generate a response. Please try again."
)

type chatReplier interface {
	Reply(ctx context.Context, req models.ChatRequest) (string, error)
}

type turnRecorder interface {
	Record(ctx context.Context, t *models.TurnRecord) error
}

type ChatHandler struct {
	chat     chatReplier
	recorder turnRecorder
	logger   *zap.Logger
}

// NewChatHandler wires the chat endpoint. recorder may be nil when the turn
// journal is not configured.
func NewChatHandler(chat chatReplier, recorder turnRecorder, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chat:     chat,
		recorder: recorder,
		logger:   logger,
	}
}

// Chat answers POST /api/chat. Every request gets a JSON body: the reply, or
// an error with 401, 400 or 500.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, errorResp(msgUnauthorized, r))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp(msgInvalidBody, r))
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp(msgMessageRequired, r))
		return
	}

	start := time.Now()
	reply, err := h.chat.Reply(r.Context(), req)

	rec := &models.TurnRecord{
		UserID:       userID,
		RequestID:    r.Header.Get(middleware.RequestIDHeader),
		HistoryTurns: len(req.History),
		MessageChars: len(req.Message),
		LatencyMS:    time.Since(start).Milliseconds(),
	}

	if err != nil {
		kind := services.FailureKind(err)
		h.logger.Error("chat turn failed",
			zap.String("user_id", userID),
			zap.String("failure_kind", kind),
			zap.Error(err))

		rec.Status = models.TurnFailed
		rec.FailureKind = &kind
		h.record(r.Context(), rec)

		message := msgGenerationFailed
		if kind == models.FailureServiceUnavailable {
			message = msgServiceUnavailable
		}
		writeJSON(w, http.StatusInternalServerError, errorResp(message, r))
		return
	}

	rec.Status = models.TurnResponded
	rec.ResponseChars = len(reply)
	h.record(r.Context(), rec)

	writeJSON(w, http.StatusOK, models.ChatResponse{Response: reply})
}

// record writes the journal entry. Failures are logged and never change the
// response.
func (h *ChatHandler) record(ctx context.Context, rec *models.TurnRecord) {
	if h.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	if err := h.recorder.Record(ctx, rec); err != nil {
		h.logger.Warn("failed to record chat turn",
			zap.String("request_id", rec.RequestID),
			zap.Error(err))
	}
}
