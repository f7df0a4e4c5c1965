package profile

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a profile cannot be located.
var ErrNotFound = errors.New("profile not found")

// ErrValidation is returned when input validation fails.
var ErrValidation = errors.New("validation error")

// ValidationError wraps a validation message so callers can distinguish
// client errors from internal failures.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ThemePreference selects the client color scheme.
type ThemePreference string

const (
	ThemeLight ThemePreference = "light"
	ThemeDark  ThemePreference = "dark"
	ThemeAuto  ThemePreference = "auto"
)

// DefaultCustomColor is the accent color assigned to new profiles.
const DefaultCustomColor = "#8B5CF6"

// Profile holds per-user display and notification preferences. Its ID is the
// owning user's ID.
type Profile struct {
	ID                   uuid.UUID       `db:"id" json:"id"`
	Email                string          `db:"email" json:"email"`
	FullName             *string         `db:"full_name" json:"fullName"`
	AvatarURL            *string         `db:"avatar_url" json:"avatarUrl"`
	ThemePreference      ThemePreference `db:"theme_preference" json:"themePreference"`
	CustomColor          string          `db:"custom_color" json:"customColor"`
	NotificationsEnabled bool            `db:"notifications_enabled" json:"notificationsEnabled"`
	CreatedAt            time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updatedAt"`
}

// UpdateInput carries optional profile changes; nil fields are left untouched.
type UpdateInput struct {
	FullName             *string
	AvatarURL            *string
	ThemePreference      *ThemePreference
	CustomColor          *string
	NotificationsEnabled *bool
}
