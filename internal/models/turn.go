package models

import (
	"time"

	"github.com/google/uuid"
)

type TurnStatus string

const (
	TurnResponded TurnStatus = "responded"
	TurnFailed    TurnStatus = "failed"
)

// Failure kinds a chat turn can end in.
const (
	FailureServiceUnavailable = "service_unavailable"
	FailureGeneration         = "generation_error"
)

// TurnRecord is the journal entry written for each answered chat turn.
// It carries sizes and timings only, never message or response text.
type TurnRecord struct {
	ID            uuid.UUID  `json:"id"`
	UserID        string     `json:"user_id"`
	RequestID     string     `json:"request_id"`
	Status        TurnStatus `json:"status"`
	FailureKind   *string    `json:"failure_kind,omitempty"`
	HistoryTurns  int        `json:"history_turns"`
	MessageChars  int        `json:"message_chars"`
	ResponseChars int        `json:"response_chars"`
	LatencyMS     int64      `json:"latency_ms"`
	CreatedAt     time.Time  `json:"created_at"`
}
