package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"aura-scribe-backend/internal/config"
	"aura-scribe-backend/internal/models"
)

// ChatService runs one chat turn: persona first, then generation.
type ChatService struct {
	personas PersonaLoader
	gateway  ModelGateway
	cfg      config.ChatConfig
	logger   *zap.Logger
}

func NewChatService(personas PersonaLoader, gateway ModelGateway, cfg config.ChatConfig, logger *zap.Logger) *ChatService {
	return &ChatService{
		personas: personas,
		gateway:  gateway,
		cfg:      cfg,
		logger:   logger,
	}
}

// Reply loads the persona exactly once and, only if that succeeds, calls the
// model gateway exactly once. Errors come back unwrapped from the component
// that produced them.
func (s *ChatService) Reply(ctx context.Context, req models.ChatRequest) (string, error) {
	persona, err := s.personas.LoadPersona(ctx)
	if err != nil {
		return "", err
	}

	prompt := Prompt{
		Persona:    persona,
		Guidelines: ClinicalGuidelines,
		Context:    req.Context,
		Message:    req.Message,
	}

	history := BoundHistory(req.History, s.cfg.MaxHistoryTurns, s.cfg.MaxHistoryChars)
	if len(history) != len(req.History) {
		s.logger.Info("conversation history trimmed",
			zap.Int("received", len(req.History)),
			zap.Int("kept", len(history)))
	}

	return s.gateway.Generate(ctx, prompt.SystemText(), prompt.Message, history)
}

// FailureKind classifies an error returned by Reply.
func FailureKind(err error) string {
	var missing *MissingCredentialError
	if errors.As(err, &missing) && missing.Credential == CredentialPersona {
		return models.FailureServiceUnavailable
	}
	var unavailable *PersonaUnavailableError
	if errors.As(err, &unavailable) {
		return models.FailureServiceUnavailable
	}
	return models.FailureGeneration
}
