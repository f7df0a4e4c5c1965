package http

import (
	"errors"
	"log/slog"
	"net/http"

	"taskdeck/internal/profile"
)

// ProfileHandler exposes HTTP endpoints for the user's profile.
type ProfileHandler struct {
	svc    *profile.Service
	logger *slog.Logger
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(svc *profile.Service, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{svc: svc, logger: logger}
}

func (h *ProfileHandler) handleProfileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		writeError(w, http.StatusNotFound, "profile not found")
	case errors.Is(err, profile.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("profile operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "unexpected error")
	}
}

// Get returns the caller's profile.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	p, err := h.svc.Get(r.Context(), user.ID)
	if err != nil {
		h.handleProfileError(w, err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// Update applies partial changes to the caller's profile.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var payload struct {
		FullName             *string                  `json:"fullName"`
		AvatarURL            *string                  `json:"avatarUrl"`
		ThemePreference      *profile.ThemePreference `json:"themePreference"`
		CustomColor          *string                  `json:"customColor"`
		NotificationsEnabled *bool                    `json:"notificationsEnabled"`
	}
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}

	updated, err := h.svc.Update(r.Context(), user.ID, profile.UpdateInput{
		FullName:             payload.FullName,
		AvatarURL:            payload.AvatarURL,
		ThemePreference:      payload.ThemePreference,
		CustomColor:          payload.CustomColor,
		NotificationsEnabled: payload.NotificationsEnabled,
	})
	if err != nil {
		h.handleProfileError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}
