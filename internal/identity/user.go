package identity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidCredentials is returned when an email/password pair does not match.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrEmailNotConfirmed is returned when a user signs in before confirming their email.
var ErrEmailNotConfirmed = errors.New("email not confirmed")

// ErrEmailTaken is returned when signing up with an email that already has an account.
var ErrEmailTaken = errors.New("email already registered")

// ErrValidation is returned when sign-up input validation fails.
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

// User represents an account in the system.
type User struct {
	ID              uuid.UUID
	Email           string
	PasswordHash    string
	OAuthProvider   string
	OAuthProviderID string
	ConfirmedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastLoginAt     time.Time
}

// Confirmed reports whether the account's email address has been confirmed.
func (u *User) Confirmed() bool {
	return u.ConfirmedAt != nil
}

// RefreshSession is a long-lived credential anchoring a signed-in device.
// The refresh token itself is never stored; only its SHA-256 hash is.
type RefreshSession struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
	UserAgent string
	IPAddress string
}

// AccessToken is a short-lived bearer credential minted from a refresh session.
type AccessToken struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenPair carries the credentials handed to a client after sign-in or refresh.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// GoogleClaims contains the relevant claims from a Google ID token.
type GoogleClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}
