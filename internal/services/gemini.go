package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"aura-scribe-backend/internal/config"
	"aura-scribe-backend/internal/models"
)

// ModelGateway turns a system prompt, a message and prior turns into a reply.
type ModelGateway interface {
	Generate(ctx context.Context, systemPrompt, message string, history []models.Turn) (string, error)
}

var errEmptyResponse = errors.New("empty response from model")

// chatSender issues one chat turn against model, seeded with history.
type chatSender func(ctx context.Context, model *genai.GenerativeModel, history []*genai.Content, msg genai.Part) (*genai.GenerateContentResponse, error)

func sendChat(ctx context.Context, model *genai.GenerativeModel, history []*genai.Content, msg genai.Part) (*genai.GenerateContentResponse, error) {
	cs := model.StartChat()
	cs.History = history
	return cs.SendMessage(ctx, msg)
}

type GeminiGateway struct {
	client *genai.Client
	model  *genai.GenerativeModel
	send   chatSender
	cfg    config.GeminiConfig
	logger *zap.Logger
}

// NewGeminiGateway builds the client when an API key is configured. Without a
// key the gateway is still returned and every Generate call fails fast.
func NewGeminiGateway(ctx context.Context, cfg config.GeminiConfig, logger *zap.Logger) (*GeminiGateway, error) {
	g := &GeminiGateway{send: sendChat, cfg: cfg, logger: logger}
	if cfg.APIKey == "" {
		logger.Warn("Gemini API key missing, chat generation disabled",
			zap.String("credential", CredentialModel))
		return g, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	if cfg.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(cfg.MaxOutputTokens))
	}

	g.client = client
	g.model = model
	return g, nil
}

func (g *GeminiGateway) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

// Generate sends one chat turn. The history seeds the session unmodified and
// the system prompt is prefixed to the outgoing message on every call.
func (g *GeminiGateway) Generate(ctx context.Context, systemPrompt, message string, history []models.Turn) (string, error) {
	if g.model == nil {
		return "", &MissingCredentialError{Credential: CredentialModel}
	}

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.send(ctx, g.model, toContents(history), genai.Text(composeInstruction(systemPrompt, message)))
	if err != nil {
		return "", &ModelError{Err: err}
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			g.logger.Warn("Gemini stopped early",
				zap.Int("candidate", i),
				zap.String("finish_reason", cand.FinishReason.String()))
		}
	}

	text := extractText(resp)
	if text == "" {
		return "", &ModelError{Err: errEmptyResponse}
	}

	g.logger.Debug("Gemini reply generated",
		zap.String("model", g.cfg.Model),
		zap.Int("history_turns", len(history)),
		zap.Duration("elapsed", time.Since(start)))
	return text, nil
}

func toContents(history []models.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		contents = append(contents, &genai.Content{
			Role:  turn.Role,
			Parts: []genai.Part{genai.Text(turn.Text)},
		})
	}
	return contents
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	// Only the first candidate is used.
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return ""
	}
	var text strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String()
}
