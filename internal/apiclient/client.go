package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"taskdeck/internal/session"
)

const (
	// tokenFetchTimeout bounds how long a request waits for credentials. A
	// slow provider must not stall the request; it proceeds unauthenticated.
	tokenFetchTimeout = 3 * time.Second
	// cachedTokenLifetime caps how long a fetched token is served from cache,
	// regardless of its nominal expiry.
	cachedTokenLifetime = 50 * time.Minute
)

// ErrUnauthorized is returned when the server rejects the request's
// credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ErrNotFound is returned when the requested resource does not exist.
var ErrNotFound = errors.New("not found")

// UnauthorizedHandler is invoked when the server returns 401 for an
// authenticated request, after the cached token has been invalidated.
type UnauthorizedHandler func()

// Client issues authenticated requests against the taskdeck API. Tokens come
// from the credential cache when possible and from the provider otherwise; a
// provider failure downgrades the request to unauthenticated rather than
// failing it outright.
type Client struct {
	baseURL        string
	http           *http.Client
	provider       session.Provider
	cache          *session.CredentialCache
	onUnauthorized UnauthorizedHandler
	logger         *slog.Logger
	handling401    atomic.Bool
}

// New builds a Client for the API at baseURL.
func New(baseURL string, provider session.Provider, cache *session.CredentialCache, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		http:     &http.Client{Timeout: 15 * time.Second},
		provider: provider,
		cache:    cache,
		logger:   logger,
	}
}

// OnUnauthorized registers the handler invoked after a 401 response.
func (c *Client) OnUnauthorized(fn UnauthorizedHandler) {
	c.onUnauthorized = fn
}

// token returns the access token to attach, or "" to proceed without one.
func (c *Client) token(ctx context.Context) string {
	if token, ok := c.cache.Get(); ok {
		return token
	}

	ctx, cancel := context.WithTimeout(ctx, tokenFetchTimeout)
	defer cancel()

	sess, err := c.provider.Session(ctx)
	if err != nil {
		c.logger.Warn("token fetch failed; proceeding unauthenticated", "error", err)
		return ""
	}
	if sess == nil {
		return ""
	}

	expiry := time.Now().Add(cachedTokenLifetime)
	if sess.ExpiresAt.Before(expiry) {
		expiry = sess.ExpiresAt
	}
	c.cache.Put(sess.AccessToken, expiry)

	return sess.AccessToken
}

// do issues the request with credentials attached and decodes a JSON response
// into out (when out is non-nil). On 401 the cached token is dropped and the
// unauthorized handler fires; the request is not retried.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusUnauthorized {
		c.cache.Invalidate()
		c.notifyUnauthorized()
		return ErrUnauthorized
	}

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// notifyUnauthorized fires the handler, collapsing concurrent 401s into one
// notification.
func (c *Client) notifyUnauthorized() {
	if c.onUnauthorized == nil {
		return
	}
	if !c.handling401.CompareAndSwap(false, true) {
		return
	}
	defer c.handling401.Store(false)
	c.onUnauthorized()
}

// decodeAPIError turns the server's error envelope into an error value.
func decodeAPIError(resp *http.Response) error {
	var envelope struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&envelope)

	if resp.StatusCode == http.StatusNotFound {
		if envelope.Error != "" {
			return fmt.Errorf("%w: %s", ErrNotFound, envelope.Error)
		}
		return ErrNotFound
	}
	if envelope.Error != "" {
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, envelope.Error)
	}
	return fmt.Errorf("server error (%d)", resp.StatusCode)
}
