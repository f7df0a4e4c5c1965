package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a change in the identity provider's session state.
type EventType string

const (
	// EventInitialSession is emitted exactly once per subscription, after the
	// provider has settled whether a stored session is usable. Its Session is
	// nil when no usable session exists.
	EventInitialSession EventType = "INITIAL_SESSION"
	// EventSignedIn is emitted when a sign-in completes.
	EventSignedIn EventType = "SIGNED_IN"
	// EventSignedOut is emitted when the session is revoked or discarded.
	EventSignedOut EventType = "SIGNED_OUT"
	// EventTokenRefreshed is emitted when a new access token is minted for an
	// existing session.
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
)

// Session is a usable set of client credentials.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	UserID      uuid.UUID
	UserEmail   string
}

// Event is one change notification from the identity provider.
type Event struct {
	Type    EventType
	Session *Session
}

// Provider is the identity provider as seen by the client core. Session
// returns the current session, refreshing credentials if needed, or nil when
// signed out. Subscribe returns a channel that delivers EventInitialSession
// first, then subsequent changes; the returned func cancels the subscription
// and closes the channel.
type Provider interface {
	Session(ctx context.Context) (*Session, error)
	SignOut(ctx context.Context) error
	Subscribe() (<-chan Event, func())
}

// ProfileFetcher loads the profile belonging to a signed-in user.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
}

// Navigator is notified when the client should return to the sign-in surface.
type Navigator interface {
	NavigateToLogin()
}
