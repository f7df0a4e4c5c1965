package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"taskdeck/internal/analytics"
	"taskdeck/internal/categories"
	"taskdeck/internal/config"
	"taskdeck/internal/identity"
	"taskdeck/internal/profile"
	"taskdeck/internal/tasks"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	taskRepo := tasks.NewInMemoryRepository(nil)
	categoryRepo := categories.NewInMemoryRepository(nil)

	svcs := Services{
		Identity:  identity.NewService(identity.NewInMemoryRepository(), identity.Options{}),
		Profile:   profile.NewService(profile.NewInMemoryRepository()),
		Tasks:     tasks.NewService(taskRepo),
		Category:  categories.NewService(categoryRepo),
		Analytics: analytics.NewService(taskRepo, categoryRepo),
	}

	cfg := config.Config{
		Environment:    "development",
		AllowedOrigins: []string{"http://localhost:5173"},
		FrontendURL:    "http://localhost:5173",
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := httptest.NewServer(NewRouter(cfg, svcs, logger))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

func signUp(t *testing.T, server *httptest.Server, email string) string {
	t.Helper()

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/auth/signup", "", map[string]any{
		"email":    email,
		"password": "password-123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("sign-up failed with %d: %v", resp.StatusCode, body)
	}

	session, ok := body["session"].(map[string]any)
	if !ok {
		t.Fatalf("expected session in sign-up response, got %v", body)
	}
	token, _ := session["accessToken"].(string)
	if token == "" {
		t.Fatalf("expected access token in session")
	}
	return token
}

func TestSignUpSignInFlow(t *testing.T) {
	server := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/auth/signup", "", map[string]any{
		"email":    "ada@example.com",
		"password": "password-123",
		"fullName": "Ada Lovelace",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", resp.StatusCode, body)
	}
	if _, ok := body["session"]; !ok {
		t.Fatalf("expected a session when confirmation is not required")
	}

	resp, body = doJSON(t, http.MethodPost, server.URL+"/api/auth/signin", "", map[string]any{
		"email":    "ada@example.com",
		"password": "password-123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, body)
	}

	user, _ := body["user"].(map[string]any)
	if user["email"] != "ada@example.com" {
		t.Fatalf("unexpected user %v", user)
	}

	// Sign-up also provisioned a profile.
	session := body["session"].(map[string]any)
	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/profile", session["accessToken"].(string), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected profile, got %d: %v", resp.StatusCode, body)
	}
	if body["email"] != "ada@example.com" {
		t.Fatalf("unexpected profile %v", body)
	}
}

func TestSignInErrorMapping(t *testing.T) {
	server := newTestServer(t)
	signUp(t, server, "ada@example.com")

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/auth/signin", "", map[string]any{
		"email":    "ada@example.com",
		"password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if body["error"] != "invalid email or password" {
		t.Fatalf("unexpected error payload %v", body)
	}

	resp, body = doJSON(t, http.MethodPost, server.URL+"/api/auth/signup", "", map[string]any{
		"email":    "ada@example.com",
		"password": "password-456",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d: %v", resp.StatusCode, body)
	}
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	server := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/tasks", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", resp.StatusCode)
	}
	if body["error"] != "authentication required" {
		t.Fatalf("unexpected error payload %v", body)
	}
	if resp.Header.Get("WWW-Authenticate") != "Bearer" {
		t.Fatalf("expected WWW-Authenticate challenge")
	}

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/tasks", "garbage-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with a bogus token, got %d", resp.StatusCode)
	}
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	server := newTestServer(t)
	token := signUp(t, server, "ada@example.com")

	resp, created := doJSON(t, http.MethodPost, server.URL+"/api/tasks", token, map[string]any{
		"title":    "Buy groceries",
		"priority": "high",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", resp.StatusCode, created)
	}
	taskID, _ := created["id"].(string)
	if taskID == "" {
		t.Fatalf("expected task id in response")
	}

	resp, listed := doJSON(t, http.MethodGet, server.URL+"/api/tasks", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list failed with %d", resp.StatusCode)
	}
	items, _ := listed["tasks"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 task, got %v", listed)
	}

	resp, toggled := doJSON(t, http.MethodPatch, fmt.Sprintf("%s/api/tasks/%s/toggle", server.URL, taskID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle failed with %d: %v", resp.StatusCode, toggled)
	}
	if toggled["status"] != "completed" || toggled["completedAt"] == nil {
		t.Fatalf("expected completed task, got %v", toggled)
	}

	resp, updated := doJSON(t, http.MethodPatch, fmt.Sprintf("%s/api/tasks/%s", server.URL, taskID), token, map[string]any{
		"title": "Buy groceries and fruit",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update failed with %d: %v", resp.StatusCode, updated)
	}
	if updated["title"] != "Buy groceries and fruit" {
		t.Fatalf("unexpected title %v", updated["title"])
	}

	resp, _ = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/tasks/%s", server.URL, taskID), token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete failed with %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/tasks/%s", server.URL, taskID), token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestUsersCannotSeeEachOthersTasks(t *testing.T) {
	server := newTestServer(t)
	adaToken := signUp(t, server, "ada@example.com")
	bobToken := signUp(t, server, "bob@example.com")

	resp, created := doJSON(t, http.MethodPost, server.URL+"/api/tasks", adaToken, map[string]any{"title": "Private"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create failed with %d", resp.StatusCode)
	}
	taskID := created["id"].(string)

	resp, _ = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/tasks/%s", server.URL, taskID), bobToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected another user's lookup to 404, got %d", resp.StatusCode)
	}

	resp, listed := doJSON(t, http.MethodGet, server.URL+"/api/tasks", bobToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list failed with %d", resp.StatusCode)
	}
	if items, _ := listed["tasks"].([]any); len(items) != 0 {
		t.Fatalf("expected empty list for the other user, got %v", listed)
	}
}

func TestCategoryDeleteDetachesTasks(t *testing.T) {
	server := newTestServer(t)
	token := signUp(t, server, "ada@example.com")

	resp, category := doJSON(t, http.MethodPost, server.URL+"/api/categories", token, map[string]any{"name": "Work"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create category failed with %d: %v", resp.StatusCode, category)
	}
	categoryID := category["id"].(string)

	resp, task := doJSON(t, http.MethodPost, server.URL+"/api/tasks", token, map[string]any{
		"title":      "Report",
		"categoryId": categoryID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create task failed with %d: %v", resp.StatusCode, task)
	}

	resp, _ = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/categories/%s", server.URL, categoryID), token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete category failed with %d", resp.StatusCode)
	}

	resp, got := doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/tasks/%s", server.URL, task["id"]), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get task failed with %d", resp.StatusCode)
	}
	if got["categoryId"] != nil {
		t.Fatalf("expected task detached from deleted category, got %v", got["categoryId"])
	}
}

func TestTokenRefreshAndSignOut(t *testing.T) {
	server := newTestServer(t)

	_, body := doJSON(t, http.MethodPost, server.URL+"/api/auth/signup", "", map[string]any{
		"email":    "ada@example.com",
		"password": "password-123",
	})
	session := body["session"].(map[string]any)
	refreshToken := session["refreshToken"].(string)

	resp, refreshed := doJSON(t, http.MethodPost, server.URL+"/api/auth/token", "", map[string]any{
		"refreshToken": refreshToken,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh failed with %d: %v", resp.StatusCode, refreshed)
	}
	newSession := refreshed["session"].(map[string]any)
	if newSession["accessToken"] == session["accessToken"] {
		t.Fatalf("expected a fresh access token")
	}

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/auth/signout", "", map[string]any{
		"refreshToken": refreshToken,
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("sign-out failed with %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/auth/token", "", map[string]any{
		"refreshToken": refreshToken,
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected revoked refresh token rejected, got %d", resp.StatusCode)
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	server := newTestServer(t)
	token := signUp(t, server, "ada@example.com")

	resp, created := doJSON(t, http.MethodPost, server.URL+"/api/tasks", token, map[string]any{"title": "Done thing"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create failed with %d", resp.StatusCode)
	}
	taskID := created["id"].(string)
	if resp, _ = doJSON(t, http.MethodPatch, fmt.Sprintf("%s/api/tasks/%s/toggle", server.URL, taskID), token, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle failed with %d", resp.StatusCode)
	}

	resp, stats := doJSON(t, http.MethodGet, server.URL+"/api/analytics/statistics?period=week", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("statistics failed with %d: %v", resp.StatusCode, stats)
	}
	if stats["totalTasks"].(float64) != 1 || stats["completedTasks"].(float64) != 1 {
		t.Fatalf("unexpected statistics %v", stats)
	}

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/analytics/statistics?period=decade", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown period, got %d", resp.StatusCode)
	}

	resp, productivity := doJSON(t, http.MethodGet, server.URL+"/api/analytics/productivity", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("productivity failed with %d: %v", resp.StatusCode, productivity)
	}
	if points, _ := productivity["productivity"].([]any); len(points) != 7 {
		t.Fatalf("expected a week of points by default, got %v", productivity)
	}
}

func TestExportDownload(t *testing.T) {
	server := newTestServer(t)
	token := signUp(t, server, "ada@example.com")

	if resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/tasks", token, map[string]any{"title": "Exported"}); resp.StatusCode != http.StatusCreated {
		t.Fatalf("create failed with %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/tasks/export", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export failed with %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected CSV content type, got %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Fatalf("expected attachment disposition, got %q", cd)
	}

	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "Exported") {
		t.Fatalf("expected the task in the export, got %q", raw)
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz failed with %d", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected health payload %v", body)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected security headers on every response")
	}
}
