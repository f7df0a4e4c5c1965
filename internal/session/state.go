package session

import (
	"github.com/google/uuid"
)

// AuthUser is the signed-in account as the client sees it.
type AuthUser struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// Profile carries the user's display preferences, mirrored from the server.
type Profile struct {
	ID                   uuid.UUID `json:"id"`
	Email                string    `json:"email"`
	FullName             *string   `json:"fullName"`
	AvatarURL            *string   `json:"avatarUrl"`
	ThemePreference      string    `json:"themePreference"`
	CustomColor          string    `json:"customColor"`
	NotificationsEnabled bool      `json:"notificationsEnabled"`
}

// AuthState is the client's view of who is signed in. IsAuthenticated always
// tracks User: it is true exactly when User is non-nil. Profile is only ever
// set for the current User.
type AuthState struct {
	User            *AuthUser `json:"user"`
	Profile         *Profile  `json:"profile"`
	IsAuthenticated bool      `json:"isAuthenticated"`
	IsLoading       bool      `json:"isLoading"`
}

// Status summarizes AuthState for display.
type Status string

const (
	StatusBooting       Status = "booting"
	StatusAuthenticated Status = "authenticated"
	StatusAnonymous     Status = "anonymous"
)

// Status derives the display status from the state flags.
func (s AuthState) Status() Status {
	if s.IsLoading {
		return StatusBooting
	}
	if s.IsAuthenticated {
		return StatusAuthenticated
	}
	return StatusAnonymous
}
