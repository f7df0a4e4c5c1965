package idp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"taskdeck/internal/session"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tokens := NewTokenFile(filepath.Join(t.TempDir(), "credentials.json"))
	return NewClient(server.URL, tokens, nil), server
}

func writeAuthResponse(w http.ResponseWriter, userID uuid.UUID, access, refresh string, accessTTL time.Duration) {
	w.Header().Set("Content-Type", "application/json")
	now := time.Now()
	_ = json.NewEncoder(w).Encode(map[string]any{
		"user": map[string]any{"id": userID, "email": "user@example.com", "confirmedAt": now},
		"session": map[string]any{
			"accessToken":      access,
			"accessExpiresAt":  now.Add(accessTTL),
			"refreshToken":     refresh,
			"refreshExpiresAt": now.Add(30 * 24 * time.Hour),
			"userId":           userID,
			"userEmail":        "user@example.com",
		},
	})
}

func TestSignInStoresCredentials(t *testing.T) {
	userID := uuid.New()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/signin" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		writeAuthResponse(w, userID, "access-1", "refresh-1", time.Hour)
	}))

	sess, err := client.SignIn(context.Background(), "user@example.com", "password-123")
	if err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}
	if sess.UserID != userID || sess.AccessToken != "access-1" {
		t.Fatalf("unexpected session %+v", sess)
	}

	// The stored session is served without another network call.
	restored, err := client.Session(context.Background())
	if err != nil {
		t.Fatalf("session failed: %v", err)
	}
	if restored == nil || restored.AccessToken != "access-1" {
		t.Fatalf("expected stored session, got %+v", restored)
	}
}

func TestSignInInvalidCredentials(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid email or password"}`))
	}))

	_, err := client.SignIn(context.Background(), "user@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignInUnconfirmedEmail(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"confirm your email","code":"email_not_confirmed"}`))
	}))

	_, err := client.SignIn(context.Background(), "user@example.com", "password-123")
	if !errors.Is(err, ErrEmailNotConfirmed) {
		t.Fatalf("expected ErrEmailNotConfirmed, got %v", err)
	}
}

func TestSessionRefreshesExpiredAccessToken(t *testing.T) {
	userID := uuid.New()
	var refreshCalls int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/signin":
			// Hand out an access token that is already about to lapse.
			writeAuthResponse(w, userID, "short-lived", "refresh-1", time.Second)
		case "/api/auth/token":
			refreshCalls++
			var payload struct {
				RefreshToken string `json:"refreshToken"`
			}
			_ = json.NewDecoder(r.Body).Decode(&payload)
			if payload.RefreshToken != "refresh-1" {
				t.Fatalf("unexpected refresh token %q", payload.RefreshToken)
			}
			writeAuthResponse(w, userID, "access-2", "refresh-1", time.Hour)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	if _, err := client.SignIn(context.Background(), "user@example.com", "password-123"); err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}

	sess, err := client.Session(context.Background())
	if err != nil {
		t.Fatalf("session failed: %v", err)
	}
	if sess == nil || sess.AccessToken != "access-2" {
		t.Fatalf("expected refreshed token, got %+v", sess)
	}
	if refreshCalls != 1 {
		t.Fatalf("expected one refresh call, got %d", refreshCalls)
	}
}

func TestSessionWithRevokedRefreshTokenSignsOut(t *testing.T) {
	userID := uuid.New()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/signin":
			writeAuthResponse(w, userID, "short-lived", "refresh-1", time.Second)
		case "/api/auth/token":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid email or password"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	if _, err := client.SignIn(context.Background(), "user@example.com", "password-123"); err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}

	sess, err := client.Session(context.Background())
	if err != nil {
		t.Fatalf("expected a clean signed-out result, got %v", err)
	}
	if sess != nil {
		t.Fatalf("expected nil session after revocation")
	}
}

func TestSessionWithoutCredentials(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("no network call expected, got %s", r.URL.Path)
	}))

	sess, err := client.Session(context.Background())
	if err != nil {
		t.Fatalf("session failed: %v", err)
	}
	if sess != nil {
		t.Fatalf("expected nil session for a fresh device")
	}
}

func TestSubscribeEmitsInitialSessionExactlyOnce(t *testing.T) {
	userID := uuid.New()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAuthResponse(w, userID, "access-1", "refresh-1", time.Hour)
	}))

	if _, err := client.SignIn(context.Background(), "user@example.com", "password-123"); err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}

	events, cancel := client.Subscribe()
	defer cancel()

	select {
	case event := <-events:
		if event.Type != session.EventInitialSession {
			t.Fatalf("expected INITIAL_SESSION first, got %s", event.Type)
		}
		if event.Session == nil || event.Session.UserID != userID {
			t.Fatalf("expected the stored session in the initial event")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the initial event")
	}

	// No second initial event follows.
	select {
	case event := <-events:
		t.Fatalf("unexpected extra event %s", event.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSignOutClearsCredentialsEvenWhenServerFails(t *testing.T) {
	userID := uuid.New()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/signin":
			writeAuthResponse(w, userID, "access-1", "refresh-1", time.Hour)
		case "/api/auth/signout":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"unexpected error"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	if _, err := client.SignIn(context.Background(), "user@example.com", "password-123"); err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}

	if err := client.SignOut(context.Background()); err == nil {
		t.Fatalf("expected the server failure to be reported")
	}

	sess, err := client.Session(context.Background())
	if err != nil || sess != nil {
		t.Fatalf("expected local credentials cleared, got %+v err=%v", sess, err)
	}
}

func TestTokenFileRoundTrip(t *testing.T) {
	tokens := NewTokenFile(filepath.Join(t.TempDir(), "nested", "credentials.json"))

	creds := storedCredentials{
		RefreshToken:     "refresh",
		RefreshExpiresAt: time.Now().Add(time.Hour).Round(time.Second),
		AccessToken:      "access",
		AccessExpiresAt:  time.Now().Add(time.Minute).Round(time.Second),
		UserID:           uuid.New(),
		UserEmail:        "user@example.com",
	}
	if err := tokens.Save(creds); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := tokens.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded == nil || loaded.RefreshToken != creds.RefreshToken || loaded.UserID != creds.UserID {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}

	if err := tokens.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if loaded, err := tokens.Load(); err != nil || loaded != nil {
		t.Fatalf("expected empty state after clear")
	}
	if err := tokens.Clear(); err != nil {
		t.Fatalf("clearing twice should not fail: %v", err)
	}
}
