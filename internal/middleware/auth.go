package middleware

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"aura-scribe-backend/internal/config"
	"aura-scribe-backend/internal/models"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// sessionCookie is where Clerk's browser SDK keeps the session token.
const sessionCookie = "__session"

var (
	ErrNoToken      = errors.New("missing session token")
	ErrInvalidToken = errors.New("invalid session token")
	ErrNoKeySource  = errors.New("no Clerk verification key configured")
)

// IdentityResolver establishes who is calling, or fails.
type IdentityResolver interface {
	Resolve(r *http.Request) (string, error)
}

type clerkClaims struct {
	jwt.RegisteredClaims
	AuthorizedParty string `json:"azp,omitempty"`
	SessionID       string `json:"sid,omitempty"`
}

// ClerkAuth verifies Clerk session tokens. The verification key is either a
// static PEM key or fetched from the Clerk JWKS endpoint.
type ClerkAuth struct {
	staticKey         *rsa.PublicKey
	jwks              keyfunc.Keyfunc
	stopJWKS          context.CancelFunc
	authorizedParties []string
	parser            *jwt.Parser
}

func NewClerkAuth(cfg config.ClerkConfig, logger *zap.Logger) (*ClerkAuth, error) {
	a := &ClerkAuth{
		authorizedParties: cfg.AuthorizedParties,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithLeeway(5*time.Second),
			jwt.WithExpirationRequired(),
		),
	}

	switch {
	case cfg.JWTKey != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(normalizePEM(cfg.JWTKey)))
		if err != nil {
			return nil, fmt.Errorf("failed to parse CLERK_JWT_KEY: %w", err)
		}
		a.staticKey = key
	case cfg.SecretKey != "":
		ctx, cancel := context.WithCancel(context.Background())
		jwks, err := newClerkKeyfunc(ctx, cfg.APIURL, cfg.SecretKey, logger)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to set up Clerk JWKS: %w", err)
		}
		a.jwks = jwks
		a.stopJWKS = cancel
	default:
		logger.Warn("no Clerk verification key configured, all protected requests will be rejected")
	}

	return a, nil
}

// Resolve returns the Clerk user id (the token subject).
func (a *ClerkAuth) Resolve(r *http.Request) (string, error) {
	tokenStr := extractToken(r)
	if tokenStr == "" {
		return "", ErrNoToken
	}
	if a.staticKey == nil && a.jwks == nil {
		return "", ErrNoKeySource
	}

	var keyFunc jwt.Keyfunc
	if a.staticKey != nil {
		keyFunc = func(*jwt.Token) (interface{}, error) { return a.staticKey, nil }
	} else {
		// A key set refetch must not be abandoned when this caller goes away.
		keyFunc = a.jwks.KeyfuncCtx(context.WithoutCancel(r.Context()))
	}

	claims := &clerkClaims{}
	_, err := a.parser.ParseWithClaims(tokenStr, claims, keyFunc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if len(a.authorizedParties) > 0 && claims.AuthorizedParty != "" &&
		!slices.Contains(a.authorizedParties, claims.AuthorizedParty) {
		return "", fmt.Errorf("%w: unauthorized party %q", ErrInvalidToken, claims.AuthorizedParty)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Close stops the background key set refresh, if any.
func (a *ClerkAuth) Close() {
	if a.stopJWKS != nil {
		a.stopJWKS()
	}
}

func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// normalizePEM restores newlines in keys pasted into a single env line.
func normalizePEM(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}

// RequireIdentity rejects requests the resolver cannot identify and attaches
// the identity to the context otherwise.
func RequireIdentity(resolver IdentityResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := resolver.Resolve(r)
			if err != nil || userID == "" {
				logger.Debug("identity not resolved",
					zap.String("path", r.URL.Path),
					zap.Error(err))
				writeError(w, http.StatusUnauthorized, "Unauthorized", r)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID extracts user_id from request context
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

func writeError(w http.ResponseWriter, status int, message string, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error:     message,
		RequestID: r.Header.Get("X-Request-ID"),
	})
}
