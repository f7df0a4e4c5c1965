package http

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskdeck/internal/identity"
	"taskdeck/internal/profile"
)

// AuthHandler exposes HTTP endpoints for account and credential management.
type AuthHandler struct {
	identitySvc *identity.Service
	profileSvc  *profile.Service
	logger      *slog.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(identitySvc *identity.Service, profileSvc *profile.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{identitySvc: identitySvc, profileSvc: profileSvc, logger: logger}
}

type userPayload struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Provider    string     `json:"provider,omitempty"`
	ConfirmedAt *time.Time `json:"confirmedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt time.Time  `json:"lastLoginAt"`
}

type sessionPayload struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
	UserID           uuid.UUID `json:"userId"`
	UserEmail        string    `json:"userEmail"`
}

func toUserPayload(user *identity.User) userPayload {
	return userPayload{
		ID:          user.ID,
		Email:       user.Email,
		Provider:    user.OAuthProvider,
		ConfirmedAt: user.ConfirmedAt,
		CreatedAt:   user.CreatedAt,
		LastLoginAt: user.LastLoginAt,
	}
}

func toSessionPayload(user *identity.User, pair *identity.TokenPair) sessionPayload {
	return sessionPayload{
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		UserID:           user.ID,
		UserEmail:        user.Email,
	}
}

func (h *AuthHandler) handleAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, identity.ErrEmailNotConfirmed):
		writeErrorCode(w, http.StatusForbidden, "email_not_confirmed", "confirm your email address before signing in")
	case errors.Is(err, identity.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, identity.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("auth operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "unexpected error")
	}
}

// SignUp registers a new account. When confirmation is not required the
// response also carries a signed-in session, so clients can proceed directly.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string  `json:"email"`
		Password string  `json:"password"`
		FullName *string `json:"fullName"`
	}
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}

	user, err := h.identitySvc.SignUp(r.Context(), payload.Email, payload.Password)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	if _, err := h.profileSvc.EnsureExists(r.Context(), user.ID, user.Email, payload.FullName); err != nil {
		h.logger.Error("create profile after sign-up", "error", err, "user_id", user.ID)
	}

	response := map[string]any{"user": toUserPayload(user)}

	if user.Confirmed() {
		signedIn, pair, err := h.identitySvc.SignIn(r.Context(), payload.Email, payload.Password, r.UserAgent(), clientIPFromRequest(r))
		if err != nil {
			h.handleAuthError(w, err)
			return
		}
		response["session"] = toSessionPayload(signedIn, pair)
	} else {
		response["confirmationRequired"] = true
	}

	writeJSON(w, http.StatusCreated, response)
}

// SignIn verifies credentials and issues a session.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}

	user, pair, err := h.identitySvc.SignIn(r.Context(), payload.Email, payload.Password, r.UserAgent(), clientIPFromRequest(r))
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":    toUserPayload(user),
		"session": toSessionPayload(user, pair),
	})
}

// Token exchanges a refresh token for a fresh access token.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}

	user, pair, err := h.identitySvc.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":    toUserPayload(user),
		"session": toSessionPayload(user, pair),
	})
}

// SignOut revokes the refresh session. Unknown tokens are treated as already
// signed out.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}

	if err := h.identitySvc.SignOut(r.Context(), payload.RefreshToken); err != nil {
		h.handleAuthError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me returns the account behind the bearer token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserPayload(user)})
}

// UpdateUser changes account attributes. Only the email address is mutable
// for now; the profile keeps a copy and is synced alongside.
func (h *AuthHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var payload struct {
		Email string `json:"email"`
	}
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}
	if strings.TrimSpace(payload.Email) == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.identitySvc.UpdateEmail(r.Context(), user.ID, payload.Email); err != nil {
		h.handleAuthError(w, err)
		return
	}

	if err := h.profileSvc.SyncEmail(r.Context(), user.ID, strings.ToLower(strings.TrimSpace(payload.Email))); err != nil {
		h.logger.Error("sync profile email", "error", err, "user_id", user.ID)
	}

	updated := *user
	updated.Email = strings.ToLower(strings.TrimSpace(payload.Email))
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserPayload(&updated)})
}

func clientIPFromRequest(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
