package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"aura-scribe-backend/internal/models"
)

// execer is the part of *pgxpool.Pool the journal needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TurnRepo appends chat turn metadata to chat_turns.
type TurnRepo struct {
	pool execer
}

func NewTurnRepo(pool execer) *TurnRepo {
	return &TurnRepo{pool: pool}
}

func (r *TurnRepo) Record(ctx context.Context, t *models.TurnRecord) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat_turns (
			id, user_id, request_id, status, failure_kind,
			history_turns, message_chars, response_chars, latency_ms, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		t.ID, t.UserID, t.RequestID, string(t.Status), t.FailureKind,
		t.HistoryTurns, t.MessageChars, t.ResponseChars, t.LatencyMS, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record chat turn: %w", err)
	}
	return nil
}
