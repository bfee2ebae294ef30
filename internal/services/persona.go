package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"aura-scribe-backend/internal/config"
)

// PersonaLoader returns the system prompt that gives the assistant its voice.
type PersonaLoader interface {
	LoadPersona(ctx context.Context) (string, error)
}

// GitHubPersonaLoader reads the persona document through the GitHub contents
// API, asking for the raw file rather than the base64 JSON wrapper.
type GitHubPersonaLoader struct {
	cfg        config.PersonaConfig
	httpClient *http.Client
	logger     *zap.Logger
}

func NewPersonaLoader(cfg config.PersonaConfig, logger *zap.Logger) *GitHubPersonaLoader {
	return &GitHubPersonaLoader{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// CacheKey identifies the document this loader fetches.
func (l *GitHubPersonaLoader) CacheKey() string {
	return fmt.Sprintf("persona:%s/%s/%s", l.cfg.Owner, l.cfg.Repo, l.cfg.Path)
}

func (l *GitHubPersonaLoader) contentsURL() string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		strings.TrimRight(l.cfg.APIURL, "/"),
		url.PathEscape(l.cfg.Owner),
		url.PathEscape(l.cfg.Repo),
		escapePath(l.cfg.Path),
	)
}

// LoadPersona performs exactly one fetch. There is no retry and no caching
// here; see CachedPersonaLoader for the optional cache.
func (l *GitHubPersonaLoader) LoadPersona(ctx context.Context) (string, error) {
	if l.cfg.Token == "" {
		l.logger.Error("persona token missing, the scribe has no voice",
			zap.String("credential", CredentialPersona))
		return "", &MissingCredentialError{Credential: CredentialPersona}
	}

	if l.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.FetchTimeout)
		defer cancel()
	}

	start := time.Now()
	body, err := l.fetch(ctx)
	if err != nil {
		l.logger.Error("persona source unreachable",
			zap.String("path", l.cfg.Path),
			zap.Error(err))
		return "", &PersonaUnavailableError{Err: err}
	}

	l.logger.Debug("persona fetched",
		zap.String("path", l.cfg.Path),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))
	return body, nil
}

func (l *GitHubPersonaLoader) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.contentsURL(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+l.cfg.Token)
	req.Header.Set("Accept", "application/vnd.github.v3.raw")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(data), nil
}

// escapePath escapes each segment but keeps the slashes GitHub expects.
func escapePath(p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
