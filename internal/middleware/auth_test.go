package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aura-scribe-backend/internal/config"
)

func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func publicPEM(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	s, err := token.SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims(sub string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub": sub,
		"sid": "sess_1",
		"azp": "http://localhost:3000",
		"iat": time.Now().Unix(),
		"nbf": time.Now().Add(-time.Minute).Unix(),
		"exp": time.Now().Add(time.Minute).Unix(),
	}
}

func bearerRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestClerkAuth_StaticKeyBearer(t *testing.T) {
	key := newTestKey(t)
	auth, err := NewClerkAuth(config.ClerkConfig{JWTKey: publicPEM(t, key)}, zap.NewNop())
	require.NoError(t, err)

	userID, err := auth.Resolve(bearerRequest(signToken(t, key, "", validClaims("user_123"))))
	require.NoError(t, err)
	assert.Equal(t, "user_123", userID)
}

func TestClerkAuth_SingleLinePEM(t *testing.T) {
	key := newTestKey(t)
	oneLine := strings.ReplaceAll(publicPEM(t, key), "\n", `\n`)
	auth, err := NewClerkAuth(config.ClerkConfig{JWTKey: oneLine}, zap.NewNop())
	require.NoError(t, err)

	userID, err := auth.Resolve(bearerRequest(signToken(t, key, "", validClaims("user_1"))))
	require.NoError(t, err)
	assert.Equal(t, "user_1", userID)
}

func TestClerkAuth_SessionCookie(t *testing.T) {
	key := newTestKey(t)
	auth, err := NewClerkAuth(config.ClerkConfig{JWTKey: publicPEM(t, key)}, zap.NewNop())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req.AddCookie(&http.Cookie{Name: "__session", Value: signToken(t, key, "", validClaims("user_cookie"))})

	userID, err := auth.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "user_cookie", userID)
}

func TestClerkAuth_Rejections(t *testing.T) {
	key := newTestKey(t)
	other := newTestKey(t)
	auth, err := NewClerkAuth(config.ClerkConfig{
		JWTKey:            publicPEM(t, key),
		AuthorizedParties: []string{"http://localhost:3000"},
	}, zap.NewNop())
	require.NoError(t, err)

	expired := validClaims("user_1")
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	noExp := validClaims("user_1")
	delete(noExp, "exp")

	noSub := validClaims("")

	foreignParty := validClaims("user_1")
	foreignParty["azp"] = "https://evil.example"

	hsToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("user_1")).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     *http.Request
		wantErr error
	}{
		{"no token", httptest.NewRequest(http.MethodPost, "/api/chat", nil), ErrNoToken},
		{"basic scheme", func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
			r.Header.Set("Authorization", "Basic abc")
			return r
		}(), ErrNoToken},
		{"garbage", bearerRequest("not-a-jwt"), ErrInvalidToken},
		{"expired", bearerRequest(signToken(t, key, "", expired)), ErrInvalidToken},
		{"missing exp", bearerRequest(signToken(t, key, "", noExp)), ErrInvalidToken},
		{"empty subject", bearerRequest(signToken(t, key, "", noSub)), ErrInvalidToken},
		{"wrong signer", bearerRequest(signToken(t, other, "", validClaims("user_1"))), ErrInvalidToken},
		{"hmac algorithm", bearerRequest(hsToken), ErrInvalidToken},
		{"unauthorized party", bearerRequest(signToken(t, key, "", foreignParty)), ErrInvalidToken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			userID, err := auth.Resolve(tc.req)
			assert.Empty(t, userID)
			assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
		})
	}
}

func TestClerkAuth_NoKeySourceRejects(t *testing.T) {
	key := newTestKey(t)
	auth, err := NewClerkAuth(config.ClerkConfig{}, zap.NewNop())
	require.NoError(t, err)

	_, err = auth.Resolve(bearerRequest(signToken(t, key, "", validClaims("user_1"))))
	assert.ErrorIs(t, err, ErrNoKeySource)
}

func TestClerkAuth_InvalidPEM(t *testing.T) {
	_, err := NewClerkAuth(config.ClerkConfig{JWTKey: "not a key"}, zap.NewNop())
	assert.Error(t, err)
}

func jwksServer(t *testing.T, key *rsa.PrivateKey, kid string, hits *int32, failFirst int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(hits, 1)
		if n <= failFirst {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if r.URL.Path != "/v1/jwks" || r.Header.Get("Authorization") != "Bearer sk_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		e := big.NewInt(int64(key.PublicKey.E)).Bytes()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"keys": []map[string]string{{
				"kid": kid,
				"kty": "RSA",
				"alg": "RS256",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(e),
			}},
		})
	}))
}

func TestClerkAuth_JWKS(t *testing.T) {
	key := newTestKey(t)
	var hits int32
	srv := jwksServer(t, key, "ins_1", &hits, 0)
	defer srv.Close()

	auth, err := NewClerkAuth(config.ClerkConfig{SecretKey: "sk_test", APIURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)
	defer auth.Close()

	for i := 0; i < 3; i++ {
		userID, err := auth.Resolve(bearerRequest(signToken(t, key, "ins_1", validClaims("user_jwks"))))
		require.NoError(t, err)
		assert.Equal(t, "user_jwks", userID)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "keys are cached by kid")

	// An unknown kid refetches once, then further refetches are throttled.
	_, err = auth.Resolve(bearerRequest(signToken(t, key, "ins_unknown", validClaims("user_jwks"))))
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))

	_, err = auth.Resolve(bearerRequest(signToken(t, key, "ins_other", validClaims("user_jwks"))))
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestClerkAuth_JWKSRecoversFromFailedFetch(t *testing.T) {
	key := newTestKey(t)
	var hits int32
	srv := jwksServer(t, key, "ins_1", &hits, 1)
	defer srv.Close()

	auth, err := NewClerkAuth(config.ClerkConfig{SecretKey: "sk_test", APIURL: srv.URL}, zap.NewNop())
	require.NoError(t, err, "an unreachable key set must not fail startup")
	defer auth.Close()
	require.Equal(t, int32(1), atomic.LoadInt32(&hits))

	userID, err := auth.Resolve(bearerRequest(signToken(t, key, "ins_1", validClaims("user_jwks"))))
	require.NoError(t, err)
	assert.Equal(t, "user_jwks", userID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestClerkAuth_JWKSFetchSurvivesCallerCancel(t *testing.T) {
	key := newTestKey(t)
	var hits int32
	srv := jwksServer(t, key, "ins_1", &hits, 1)
	defer srv.Close()

	auth, err := NewClerkAuth(config.ClerkConfig{SecretKey: "sk_test", APIURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)
	defer auth.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := bearerRequest(signToken(t, key, "ins_1", validClaims("user_jwks"))).WithContext(ctx)

	userID, err := auth.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "user_jwks", userID)
}

type stubResolver struct {
	userID string
	err    error
}

func (s stubResolver) Resolve(r *http.Request) (string, error) { return s.userID, s.err }

func TestRequireIdentity(t *testing.T) {
	var seen string
	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		seen = GetUserID(r.Context())
	})

	t.Run("attaches identity", func(t *testing.T) {
		called, seen = false, ""
		rr := httptest.NewRecorder()
		RequireIdentity(stubResolver{userID: "user_1"}, zap.NewNop())(next).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/chat", nil))

		assert.True(t, called)
		assert.Equal(t, "user_1", seen)
	})

	t.Run("rejects with 401", func(t *testing.T) {
		called = false
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		req.Header.Set("X-Request-ID", "req-1")
		RequireIdentity(stubResolver{err: ErrNoToken}, zap.NewNop())(next).ServeHTTP(rr, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.JSONEq(t, `{"error":"Unauthorized","request_id":"req-1"}`, rr.Body.String())
	})

	t.Run("rejects empty identity", func(t *testing.T) {
		called = false
		rr := httptest.NewRecorder()
		RequireIdentity(stubResolver{}, zap.NewNop())(next).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/chat", nil))

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
