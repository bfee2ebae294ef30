package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aura-scribe-backend/internal/config"
	"aura-scribe-backend/internal/models"
)

type recordingGateway struct {
	reply string
	err   error

	calls        int
	systemPrompt string
	message      string
	history      []models.Turn
}

func (g *recordingGateway) Generate(ctx context.Context, systemPrompt, message string, history []models.Turn) (string, error) {
	g.calls++
	g.systemPrompt = systemPrompt
	g.message = message
	g.history = history
	return g.reply, g.err
}

var testChatConfig = config.ChatConfig{MaxHistoryTurns: 40, MaxHistoryChars: 32000}

func TestChatService_ScribeScenario(t *testing.T) {
	personas := &stubPersonaLoader{persona: "You are Scribe."}
	gateway := &recordingGateway{reply: "Document as dysmenorrhea."}
	svc := NewChatService(personas, gateway, testChatConfig, zap.NewNop())

	reply, err := svc.Reply(context.Background(), models.ChatRequest{Message: "I have severe cramps"})
	require.NoError(t, err)

	assert.Equal(t, "Document as dysmenorrhea.", reply)
	assert.Equal(t, 1, personas.calls)
	assert.Equal(t, 1, gateway.calls)

	instruction := composeInstruction(gateway.systemPrompt, gateway.message)
	assert.True(t, strings.HasPrefix(instruction, "You are Scribe."))
	assert.Contains(t, instruction, "I have severe cramps")
	assert.Equal(t, "I have severe cramps", gateway.message)
}

func TestChatService_HistoryPassedThroughUnmodified(t *testing.T) {
	history := []models.Turn{{Role: "user", Text: "a"}, {Role: "model", Text: "b"}}
	gateway := &recordingGateway{reply: "ok"}
	svc := NewChatService(&stubPersonaLoader{persona: "P"}, gateway, testChatConfig, zap.NewNop())

	_, err := svc.Reply(context.Background(), models.ChatRequest{Message: "m", History: history})
	require.NoError(t, err)

	assert.Equal(t, []models.Turn{{Role: "user", Text: "a"}, {Role: "model", Text: "b"}}, gateway.history)
}

func TestChatService_ContextReachesSystemPrompt(t *testing.T) {
	gateway := &recordingGateway{reply: "ok"}
	svc := NewChatService(&stubPersonaLoader{persona: "P"}, gateway, testChatConfig, zap.NewNop())

	logs := "Date: 2024-03-01, Pain: 8/10, Symptoms: cramps, Notes: bad day"
	_, err := svc.Reply(context.Background(), models.ChatRequest{Message: "m", Context: logs})
	require.NoError(t, err)

	assert.Contains(t, gateway.systemPrompt, logs)
	assert.Contains(t, gateway.systemPrompt, ClinicalGuidelines)
}

func TestChatService_PersonaFailureSkipsGateway(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"missing token", &MissingCredentialError{Credential: CredentialPersona}},
		{"unreachable", &PersonaUnavailableError{Err: errors.New("503")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gateway := &recordingGateway{reply: "never"}
			svc := NewChatService(&stubPersonaLoader{err: tc.err}, gateway, testChatConfig, zap.NewNop())

			reply, err := svc.Reply(context.Background(), models.ChatRequest{Message: "m"})

			assert.Error(t, err)
			assert.Empty(t, reply)
			assert.Zero(t, gateway.calls)
			assert.Equal(t, models.FailureServiceUnavailable, FailureKind(err))
		})
	}
}

func TestChatService_GatewayFailure(t *testing.T) {
	gateway := &recordingGateway{reply: "partial", err: &ModelError{Err: errors.New("quota")}}
	svc := NewChatService(&stubPersonaLoader{persona: "P"}, gateway, testChatConfig, zap.NewNop())

	_, err := svc.Reply(context.Background(), models.ChatRequest{Message: "m"})

	var modelErr *ModelError
	assert.True(t, errors.As(err, &modelErr))
	assert.Equal(t, models.FailureGeneration, FailureKind(err))
	assert.Equal(t, 1, gateway.calls)
}

func TestChatService_LongHistoryIsBounded(t *testing.T) {
	gateway := &recordingGateway{reply: "ok"}
	cfg := config.ChatConfig{MaxHistoryTurns: 4}
	svc := NewChatService(&stubPersonaLoader{persona: "P"}, gateway, cfg, zap.NewNop())

	_, err := svc.Reply(context.Background(), models.ChatRequest{Message: "m", History: alternating(12, "t")})
	require.NoError(t, err)

	assert.Len(t, gateway.history, 4)
}

func TestFailureKind_ModelMissingCredential(t *testing.T) {
	err := &MissingCredentialError{Credential: CredentialModel}
	assert.Equal(t, models.FailureGeneration, FailureKind(err))
}
