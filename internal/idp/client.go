package idp

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
	"sync"
	"time"

	"github.com/google/uuid"

	"taskdeck/internal/session"
)

// ErrInvalidCredentials is returned when the server rejects an email/password pair.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrEmailNotConfirmed is returned when the account exists but the email
// address has not been confirmed yet.
var ErrEmailNotConfirmed = errors.New("email not confirmed")

// ErrEmailTaken is returned when signing up with an already-registered email.
var ErrEmailTaken = errors.New("email already registered")

// accessTokenSkew is subtracted from stored expiries so a token about to
// lapse mid-request counts as expired.
const accessTokenSkew = 30 * time.Second

// Client implements session.Provider against the taskdeck API server. It
// keeps device credentials in a TokenFile and notifies subscribers of session
// changes.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  *TokenFile
	logger  *slog.Logger

	mu      sync.Mutex
	subs    map[int]chan session.Event
	nextSub int
}

// NewClient builds a Client for the API at baseURL.
func NewClient(baseURL string, tokens *TokenFile, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
		logger:  logger,
		subs:    make(map[int]chan session.Event),
	}
}

// authResponse mirrors the server's auth endpoint payloads.
type authResponse struct {
	User struct {
		ID          uuid.UUID  `json:"id"`
		Email       string     `json:"email"`
		ConfirmedAt *time.Time `json:"confirmedAt"`
	} `json:"user"`
	Session *struct {
		AccessToken      string    `json:"accessToken"`
		AccessExpiresAt  time.Time `json:"accessExpiresAt"`
		RefreshToken     string    `json:"refreshToken"`
		RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
		UserID           uuid.UUID `json:"userId"`
		UserEmail        string    `json:"userEmail"`
	} `json:"session"`
	ConfirmationRequired bool `json:"confirmationRequired"`
}

// SignUp registers an account. When the server requires email confirmation no
// session is returned and the second result is true.
func (c *Client) SignUp(ctx context.Context, email, password string, fullName *string) (*session.Session, bool, error) {
	payload := map[string]any{"email": email, "password": password}
	if fullName != nil {
		payload["fullName"] = *fullName
	}

	var response authResponse
	if err := c.postJSON(ctx, "/api/auth/signup", payload, &response); err != nil {
		return nil, false, err
	}

	if response.Session == nil {
		return nil, response.ConfirmationRequired, nil
	}

	sess, err := c.adoptSession(&response)
	if err != nil {
		return nil, false, err
	}
	c.emit(session.Event{Type: session.EventSignedIn, Session: sess})
	return sess, false, nil
}

// SignIn authenticates with email and password, stores the credentials, and
// emits SIGNED_IN.
func (c *Client) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	var response authResponse
	if err := c.postJSON(ctx, "/api/auth/signin", map[string]any{"email": email, "password": password}, &response); err != nil {
		return nil, err
	}
	if response.Session == nil {
		return nil, fmt.Errorf("sign-in response missing session")
	}

	sess, err := c.adoptSession(&response)
	if err != nil {
		return nil, err
	}
	c.emit(session.Event{Type: session.EventSignedIn, Session: sess})
	return sess, nil
}

// Session returns the current session, refreshing the access token when the
// stored one has lapsed. It returns (nil, nil) when the device holds no
// usable credentials.
func (c *Client) Session(ctx context.Context) (*session.Session, error) {
	creds, err := c.tokens.Load()
	if err != nil {
		return nil, err
	}
	if creds == nil || creds.RefreshToken == "" {
		return nil, nil
	}

	now := time.Now()
	if creds.RefreshExpiresAt.Before(now) {
		// Refresh token lapsed; the stored credentials are dead weight.
		_ = c.tokens.Clear()
		return nil, nil
	}

	if creds.AccessToken != "" && creds.AccessExpiresAt.After(now.Add(accessTokenSkew)) {
		return &session.Session{
			AccessToken: creds.AccessToken,
			ExpiresAt:   creds.AccessExpiresAt,
			UserID:      creds.UserID,
			UserEmail:   creds.UserEmail,
		}, nil
	}

	return c.refresh(ctx, creds)
}

// refresh trades the refresh token for a fresh access token and emits
// TOKEN_REFRESHED.
func (c *Client) refresh(ctx context.Context, creds *storedCredentials) (*session.Session, error) {
	var response authResponse
	err := c.postJSON(ctx, "/api/auth/token", map[string]any{"refreshToken": creds.RefreshToken}, &response)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			// Server no longer recognizes the session.
			_ = c.tokens.Clear()
			c.emit(session.Event{Type: session.EventSignedOut})
			return nil, nil
		}
		return nil, err
	}
	if response.Session == nil {
		return nil, fmt.Errorf("token response missing session")
	}

	sess, err := c.adoptSession(&response)
	if err != nil {
		return nil, err
	}
	c.emit(session.Event{Type: session.EventTokenRefreshed, Session: sess})
	return sess, nil
}

// SignOut revokes the refresh session server-side and clears stored
// credentials. Local credentials are cleared even when the server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	creds, loadErr := c.tokens.Load()

	clearErr := c.tokens.Clear()
	c.emit(session.Event{Type: session.EventSignedOut})

	if loadErr != nil || creds == nil || creds.RefreshToken == "" {
		return clearErr
	}

	if err := c.postJSON(ctx, "/api/auth/signout", map[string]any{"refreshToken": creds.RefreshToken}, nil); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return clearErr
}

// UpdateEmail changes the account email using the current access token.
func (c *Client) UpdateEmail(ctx context.Context, email string) error {
	sess, err := c.Session(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrInvalidCredentials
	}

	body, _ := json.Marshal(map[string]any{"email": email})
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+"/api/auth/user", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+sess.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	// Keep the stored identity in step with the server.
	if creds, err := c.tokens.Load(); err == nil && creds != nil {
		creds.UserEmail = strings.ToLower(strings.TrimSpace(email))
		if err := c.tokens.Save(*creds); err != nil {
			c.logger.Warn("update stored email failed", "error", err)
		}
	}
	return nil
}

// Subscribe registers an event channel. INITIAL_SESSION is delivered exactly
// once per subscription, after the stored session has been checked; its
// Session is nil when the device is signed out or the check fails.
func (c *Client) Subscribe() (<-chan session.Event, func()) {
	ch := make(chan session.Event, 16)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		sess, err := c.Session(ctx)
		if err != nil {
			c.logger.Warn("initial session check failed", "error", err)
			sess = nil
		}
		c.deliver(id, session.Event{Type: session.EventInitialSession, Session: sess})
	}()

	cancel := func() {
		c.mu.Lock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

// adoptSession persists the response credentials and returns the session view.
func (c *Client) adoptSession(response *authResponse) (*session.Session, error) {
	s := response.Session
	if err := c.tokens.Save(storedCredentials{
		RefreshToken:     s.RefreshToken,
		RefreshExpiresAt: s.RefreshExpiresAt,
		AccessToken:      s.AccessToken,
		AccessExpiresAt:  s.AccessExpiresAt,
		UserID:           s.UserID,
		UserEmail:        s.UserEmail,
	}); err != nil {
		return nil, fmt.Errorf("store credentials: %w", err)
	}

	return &session.Session{
		AccessToken: s.AccessToken,
		ExpiresAt:   s.AccessExpiresAt,
		UserID:      s.UserID,
		UserEmail:   s.UserEmail,
	}, nil
}

func (c *Client) emit(event session.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.subs {
		select {
		case ch <- event:
		default:
			c.logger.Warn("dropping session event for slow subscriber", "subscriber", id, "type", event.Type)
		}
	}
}

func (c *Client) deliver(id int, event session.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.subs[id]
	if !ok {
		return
	}
	select {
	case ch <- event:
	default:
		c.logger.Warn("dropping session event for slow subscriber", "subscriber", id, "type", event.Type)
	}
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeAPIError maps the server's error envelope onto sentinel errors.
func decodeAPIError(resp *http.Response) error {
	var envelope struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&envelope)

	switch {
	case envelope.Code == "email_not_confirmed":
		return ErrEmailNotConfirmed
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrInvalidCredentials
	case resp.StatusCode == http.StatusConflict:
		return ErrEmailTaken
	}

	if envelope.Error != "" {
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, envelope.Error)
	}
	return fmt.Errorf("server error (%d)", resp.StatusCode)
}
