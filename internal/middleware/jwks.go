package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	jwksFetchTimeout    = 10 * time.Second
	jwksRefreshInterval = time.Hour
	// An unknown kid may force a refetch once per jwksUnknownKIDEvery.
	jwksUnknownKIDEvery = 15 * time.Second
	jwksRateLimitWait   = 2 * time.Second
)

// bearerTransport authenticates requests to the Clerk Backend API.
type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(req)
}

// newClerkKeyfunc returns a key function backed by Clerk's JWKS endpoint.
// A failed initial fetch is not fatal: the set is refetched in the background
// and on the first token carrying an unknown kid. The refresh goroutine stops
// when ctx is cancelled.
func newClerkKeyfunc(ctx context.Context, apiURL, secretKey string, logger *zap.Logger) (keyfunc.Keyfunc, error) {
	jwksURL := strings.TrimRight(apiURL, "/") + "/v1/jwks"

	parsedURL, err := url.Parse(jwksURL)
	if err != nil {
		return nil, fmt.Errorf("invalid JWKS URL: %w", err)
	}

	storage, err := jwkset.NewStorageFromHTTP(parsedURL, jwkset.HTTPClientStorageOptions{
		Client: &http.Client{
			Transport: bearerTransport{token: secretKey, base: http.DefaultTransport},
		},
		Ctx:                       ctx,
		HTTPTimeout:               jwksFetchTimeout,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           jwksRefreshInterval,
		RefreshErrorHandler: func(ctx context.Context, err error) {
			logger.Warn("Clerk JWKS fetch failed", zap.String("url", jwksURL), zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS storage: %w", err)
	}

	client, err := jwkset.NewHTTPClient(jwkset.HTTPClientOptions{
		HTTPURLs:          map[string]jwkset.Storage{jwksURL: storage},
		RateLimitWaitMax:  jwksRateLimitWait,
		RefreshUnknownKID: rate.NewLimiter(rate.Every(jwksUnknownKIDEvery), 1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}

	return keyfunc.New(keyfunc.Options{Ctx: ctx, Storage: client})
}
